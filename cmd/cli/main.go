// Command htmlspider fetches pages and extracts structured data from them
// using a YAML or JSON extraction schema.
//
// Usage:
//
//	htmlspider crawl --input urls.csv --schema model.yaml
//	htmlspider fetch https://example.com
//	htmlspider extract --schema model.yaml page.html
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"htmlspider/internal/config"
	"htmlspider/internal/crawler"
	"htmlspider/internal/extractor"
	"htmlspider/internal/spider"
	"htmlspider/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "htmlspider",
		Short: "Fetch pages and extract data with a selector schema",
		Long: `htmlspider fetches HTML pages under a hard deadline and turns them into
structured data following a declarative schema of CSS selectors.

Configuration is read from SPIDER_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newExtractCmd())
	return cmd
}

// app is the wiring shared by all subcommands.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	fetcher *crawler.Fetcher
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		level = "debug"
	}
	log := logger.NewWithLevel(level, cfg.Log.Development)

	client := crawler.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.DialTimeout, cfg.HTTP.SizeCap).
		WithUserAgent(cfg.HTTP.UserAgent)
	return &app{
		cfg:     cfg,
		log:     log,
		fetcher: crawler.NewFetcher(cfg.Spider.Name, client, crawler.WithTimeout(cfg.Spider.FetchTimeout)),
	}, nil
}

func (a *app) spider(ex *extractor.Extractor, concurrency int) *spider.Spider {
	if concurrency <= 0 {
		concurrency = a.cfg.Spider.Concurrency
	}
	return spider.New(a.fetcher, ex, spider.WithLogger(a.log), spider.WithConcurrency(concurrency))
}

func newExtractor(uniform bool) *extractor.Extractor {
	if uniform {
		return extractor.New(extractor.WithUniformLists())
	}
	return extractor.New()
}
