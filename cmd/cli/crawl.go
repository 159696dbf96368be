package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"htmlspider/internal/ioformats"
	"htmlspider/internal/schema"
)

func newCrawlCmd() *cobra.Command {
	var (
		input       string
		schemaPath  string
		output      string
		concurrency int
		uniform     bool
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a list of URLs and write one NDJSON record per URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.log.Sync()

			targets, err := ioformats.ReadTargets(input)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			sc, err := schema.Load(schemaPath)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			a.log.Infof("crawling %d urls", len(targets))
			items := a.spider(newExtractor(uniform), concurrency).CrawlBatch(cmd.Context(), targets, sc)
			return ioformats.WriteNDJSON(w, items)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file (csv with 'url' column or ndjson)")
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "extraction schema (yaml or json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output NDJSON file (default stdout)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "worker concurrency (default SPIDER_CONCURRENCY)")
	cmd.Flags().BoolVar(&uniform, "uniform-lists", false, "emit an empty list when a selector matches nothing")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
