package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 60 * time.Second

// TimeoutMessage is carried by every FetchTimeout.
const TimeoutMessage = "request timed out"

var ErrEmptyURL = errors.New("empty url")

// Requester is the HTTP capability the Fetcher races against its deadline.
// HTTPClient implements it.
type Requester interface {
	Request(ctx context.Context, url string, opts Options) (string, error)
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context, url string, opts Options) (string, error)

func (f RequesterFunc) Request(ctx context.Context, url string, opts Options) (string, error) {
	return f(ctx, url, opts)
}

// FetchTimeout is returned when the request loses the race against the
// deadline. Its Error text is the JSON form of the record.
type FetchTimeout struct {
	SpiderName string    `json:"spiderName"`
	Message    string    `json:"message"`
	URL        string    `json:"url"`
	Time       time.Time `json:"time"`
}

func (e *FetchTimeout) Error() string {
	b, err := json.Marshal(e)
	if err != nil {
		return e.Message
	}
	return string(b)
}

// IsTimeout reports whether err is, or wraps, a FetchTimeout.
func IsTimeout(err error) bool {
	var ft *FetchTimeout
	return errors.As(err, &ft)
}

type FetcherOption func(*Fetcher)

// WithTimeout replaces DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// Fetcher performs one deadline-bounded request per call. It holds no
// per-call state, so one Fetcher can serve many goroutines.
type Fetcher struct {
	name    string
	req     Requester
	timeout time.Duration
	now     func() time.Time
}

func NewFetcher(name string, req Requester, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		name:    name,
		req:     req,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fetcher) Name() string { return f.name }

func (f *Fetcher) Timeout() time.Duration { return f.timeout }

type fetchResult struct {
	text string
	err  error
}

// Fetch races the request against the fetch timeout. The first to finish
// decides the outcome: the page text, the request's own error unchanged, or
// a *FetchTimeout. On timeout the request context is cancelled so the
// connection is released; its late result is dropped.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (string, error) {
	if url == "" {
		return "", ErrEmptyURL
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// buffered so the request goroutine never blocks after we stop listening
	done := make(chan fetchResult, 1)
	go func() {
		text, err := f.req.Request(reqCtx, url, opts)
		done <- fetchResult{text: text, err: err}
	}()

	timer := time.NewTimer(f.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.text, r.err
	case <-timer.C:
		return "", &FetchTimeout{
			SpiderName: f.name,
			Message:    TimeoutMessage,
			URL:        url,
			Time:       f.now(),
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
