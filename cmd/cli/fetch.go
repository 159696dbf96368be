package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"htmlspider/internal/crawler"
)

func newFetchCmd() *cobra.Command {
	var (
		headers   map[string]string
		userAgent string
	)
	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Fetch a page and print its text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.log.Sync()

			text, err := a.fetcher.Fetch(cmd.Context(), args[0], crawler.Options{
				Headers:   headers,
				UserAgent: userAgent,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringToStringVarP(&headers, "header", "H", nil, "request header as key=value (repeatable)")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "override the User-Agent")
	return cmd
}
