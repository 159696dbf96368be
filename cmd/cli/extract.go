package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"htmlspider/internal/schema"
)

func newExtractCmd() *cobra.Command {
	var (
		schemaPath string
		uniform    bool
	)
	cmd := &cobra.Command{
		Use:   "extract [PAGE_FILE|-]",
		Short: "Extract data from a local HTML file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := schema.Load(schemaPath)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open page: %w", err)
				}
				defer f.Close()
				r = f
			}
			page, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read page: %w", err)
			}

			res, err := newExtractor(uniform).Extract(string(page), sc)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Data)
		},
	}
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "extraction schema (yaml or json)")
	cmd.Flags().BoolVar(&uniform, "uniform-lists", false, "emit an empty list when a selector matches nothing")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
