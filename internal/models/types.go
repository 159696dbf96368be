
package models

import "htmlspider/internal/crawler"

// CrawlResult is the serialisable outcome of one fetch + extract.
type CrawlResult struct {
	SourceURL string `json:"sourceUrl"`
	Spider    string `json:"spider"`
	FetchMs   int64  `json:"fetchMs"`
	ExtractMs int64  `json:"extractMs"`
	Bytes     int    `json:"bytes"`
	// Data is an *extractor.Object when produced, a decoded map when read back.
	Data any `json:"data"`
}

// BatchItem is one line of batch output. Timeout is set when Error came from
// the fetch deadline rather than the transport.
type BatchItem struct {
	URL     string       `json:"url"`
	Result  *CrawlResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
	Timeout bool         `json:"timeout,omitempty"`
}

// BatchSummary counts outcomes of a batch.
type BatchSummary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Failed   int `json:"failed"`
	TimedOut int `json:"timedOut"`
}

func Summarize(items []BatchItem) BatchSummary {
	s := BatchSummary{Total: len(items)}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add counts one item's outcome. Total is left to the caller.
func (s *BatchSummary) Add(it BatchItem) {
	switch {
	case it.Error == "":
		s.OK++
	case it.Timeout:
		s.TimedOut++
	default:
		s.Failed++
	}
}

// Target is one URL to crawl with the request options handed to the fetcher.
type Target struct {
	URL     string          `json:"url"`
	Options crawler.Options `json:"options,omitempty"`
}
