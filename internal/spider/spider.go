// Package spider runs the fetch and extract stages for one URL or a batch.
package spider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"htmlspider/internal/crawler"
	"htmlspider/internal/extractor"
	"htmlspider/internal/models"
	"htmlspider/internal/schema"
	"htmlspider/pkg/logger"
)

const defaultConcurrency = 10

// Page is a crawled page. Result.Document stays valid as long as the Page is
// referenced.
type Page struct {
	URL             string
	Text            string
	Result          *extractor.Result
	FetchDuration   time.Duration
	ExtractDuration time.Duration
}

// Record flattens the page into its JSON form.
func (p *Page) Record(spiderName string) models.CrawlResult {
	return models.CrawlResult{
		SourceURL: p.URL,
		Spider:    spiderName,
		FetchMs:   p.FetchDuration.Milliseconds(),
		ExtractMs: p.ExtractDuration.Milliseconds(),
		Bytes:     len(p.Text),
		Data:      p.Result.Data,
	}
}

type Option func(*Spider)

func WithLogger(l *logger.Logger) Option {
	return func(s *Spider) {
		if l != nil {
			s.log = l
		}
	}
}

// WithConcurrency caps in-flight crawls in CrawlBatch.
func WithConcurrency(n int) Option {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

type Spider struct {
	fetcher     *crawler.Fetcher
	extractor   *extractor.Extractor
	log         *logger.Logger
	concurrency int
}

func New(f *crawler.Fetcher, e *extractor.Extractor, opts ...Option) *Spider {
	s := &Spider{
		fetcher:     f,
		extractor:   e,
		log:         logger.Nop(),
		concurrency: defaultConcurrency,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Spider) Name() string { return s.fetcher.Name() }

// Crawl fetches url and extracts sc from it. Errors from either stage are
// returned as they are.
func (s *Spider) Crawl(ctx context.Context, url string, opts crawler.Options, sc schema.Schema) (*Page, error) {
	start := time.Now()
	text, err := s.fetcher.Fetch(ctx, url, opts)
	fetchDur := time.Since(start)
	if err != nil {
		if crawler.IsTimeout(err) {
			s.log.Warnf("fetch %s timed out after %s", url, fetchDur)
		} else {
			s.log.Errorf("fetch %s: %v", url, err)
		}
		return nil, err
	}

	start = time.Now()
	res, err := s.extractor.Extract(text, sc)
	if err != nil {
		s.log.Errorf("extract %s: %v", url, err)
		return nil, err
	}
	page := &Page{
		URL:             url,
		Text:            text,
		Result:          res,
		FetchDuration:   fetchDur,
		ExtractDuration: time.Since(start),
	}
	s.log.Debugf("crawled %s (%d bytes, fetch %s, extract %s)", url, len(text), page.FetchDuration, page.ExtractDuration)
	return page, nil
}

// CrawlBatch crawls every target with at most the configured number in
// flight. Items come back in input order; a failing target never stops the
// others.
func (s *Spider) CrawlBatch(ctx context.Context, targets []models.Target, sc schema.Schema) []models.BatchItem {
	items := make([]models.BatchItem, len(targets))
	s.CrawlEach(ctx, targets, sc, func(i int, it models.BatchItem) {
		items[i] = it
	})
	return items
}

// CrawlEach is CrawlBatch for callers that want items as they finish. fn gets
// the target's index and its item; calls to fn never overlap.
func (s *Spider) CrawlEach(ctx context.Context, targets []models.Target, sc schema.Schema, fn func(int, models.BatchItem)) models.BatchSummary {
	var (
		mu  sync.Mutex
		sum = models.BatchSummary{Total: len(targets)}
		g   errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for i, t := range targets {
		g.Go(func() error {
			it := s.crawlItem(ctx, t, sc)
			mu.Lock()
			defer mu.Unlock()
			sum.Add(it)
			fn(i, it)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Infof("batch done: %d total, %d ok, %d failed, %d timed out", sum.Total, sum.OK, sum.Failed, sum.TimedOut)
	return sum
}

func (s *Spider) crawlItem(ctx context.Context, t models.Target, sc schema.Schema) models.BatchItem {
	page, err := s.Crawl(ctx, t.URL, t.Options, sc)
	if err != nil {
		return models.BatchItem{URL: t.URL, Error: err.Error(), Timeout: crawler.IsTimeout(err)}
	}
	rec := page.Record(s.Name())
	return models.BatchItem{URL: t.URL, Result: &rec}
}
