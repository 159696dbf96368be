package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"htmlspider/internal/crawler"
	"htmlspider/internal/extractor"
	"htmlspider/internal/ioformats"
	"htmlspider/internal/models"
	"htmlspider/internal/schema"
	"htmlspider/internal/spider"
	"htmlspider/pkg/logger"
)

const (
	maxBatch  = 500
	maxUpload = 32 << 20
)

type crawlReq struct {
	URL          string          `json:"url"`
	Options      crawler.Options `json:"options"`
	Schema       schema.Schema   `json:"schema"`
	UniformLists bool            `json:"uniformLists"`
}

// batchReq takes plain URLs sharing Options, or Targets with their own.
type batchReq struct {
	URLs         []string        `json:"urls"`
	Targets      []models.Target `json:"targets"`
	Options      crawler.Options `json:"options"`
	Schema       schema.Schema   `json:"schema"`
	UniformLists bool            `json:"uniformLists"`
}

type batchResp struct {
	Summary models.BatchSummary `json:"summary"`
	Items   []models.BatchItem  `json:"items"`
}

type handler struct {
	log         *logger.Logger
	fetcher     *crawler.Fetcher
	concurrency int
	// writeWindow is how long past each finished batch item the response may
	// still be written. Zero leaves the server's WriteTimeout alone.
	writeWindow time.Duration
}

func (h *handler) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "spider": h.fetcher.Name()})
	})
	// POST /crawl  { "url": "https://...", "schema": {...} }
	mux.HandleFunc("POST /crawl", h.crawl)
	// POST /crawl/batch  { "urls": ["https://...", "..."], "schema": {...} }
	mux.HandleFunc("POST /crawl/batch", h.crawlBatch)
	// POST /crawl/upload (multipart file=..., schema=...) -> NDJSON stream
	mux.HandleFunc("POST /crawl/upload", h.crawlUpload)
	return withRequestID(logRequest(h.log, mux))
}

func (h *handler) spider(uniform bool) *spider.Spider {
	ex := extractor.New()
	if uniform {
		ex = extractor.New(extractor.WithUniformLists())
	}
	return spider.New(h.fetcher, ex, spider.WithLogger(h.log), spider.WithConcurrency(h.concurrency))
}

func (h *handler) crawl(w http.ResponseWriter, r *http.Request) {
	var req crawlReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload: " + err.Error()})
		return
	}
	if req.URL == "" || req.Schema.Len() == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url and schema are required"})
		return
	}

	sp := h.spider(req.UniformLists)
	page, err := sp.Crawl(r.Context(), req.URL, req.Options, req.Schema)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page.Record(sp.Name()))
}

func (h *handler) crawlBatch(w http.ResponseWriter, r *http.Request) {
	var req batchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload: " + err.Error()})
		return
	}
	targets := req.Targets
	for _, u := range req.URLs {
		targets = append(targets, models.Target{URL: u, Options: req.Options})
	}
	if len(targets) == 0 || req.Schema.Len() == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "urls and schema are required"})
		return
	}
	if len(targets) > maxBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "too many urls"})
		return
	}

	rc := http.NewResponseController(w)
	items := make([]models.BatchItem, len(targets))
	sum := h.spider(req.UniformLists).CrawlEach(r.Context(), targets, req.Schema, func(i int, it models.BatchItem) {
		items[i] = it
		h.extendWrite(rc)
	})
	writeJSON(w, http.StatusOK, batchResp{Summary: sum, Items: items})
}

// crawlUpload takes a CSV or NDJSON file of targets in the "file" part and a
// schema in the "schema" field, and streams one NDJSON item per target as it
// finishes.
func (h *handler) crawlUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart parse error"})
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file part 'file' required"})
		return
	}
	defer f.Close()

	sc, err := schema.Parse([]byte(r.FormValue("schema")))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	targets, err := ioformats.ReadTargetsFrom(f, hdr.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if len(targets) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no urls found"})
		return
	}
	if len(targets) > maxBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "too many urls"})
		return
	}
	uniform, _ := strconv.ParseBool(r.FormValue("uniformLists"))

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	rc := http.NewResponseController(w)
	h.spider(uniform).CrawlEach(r.Context(), targets, sc, func(_ int, it models.BatchItem) {
		h.extendWrite(rc)
		if err := ioformats.WriteNDJSON(w, []models.BatchItem{it}); err != nil {
			h.log.Warnf("upload write %s: %v", it.URL, err)
			return
		}
		_ = rc.Flush()
	})
}

func (h *handler) extendWrite(rc *http.ResponseController) {
	if h.writeWindow <= 0 {
		return
	}
	// recorders and some wrappers cannot move the deadline
	_ = rc.SetWriteDeadline(time.Now().Add(h.writeWindow))
}

// writeError maps crawl errors to status codes. A fetch timeout keeps its
// structured payload so clients can tell it from transport failures.
func writeError(w http.ResponseWriter, err error) {
	var (
		ft *crawler.FetchTimeout
		se *extractor.SelectorError
		st *crawler.StatusError
	)
	switch {
	case errors.As(err, &ft):
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": ft.Message, "timeout": ft})
	case errors.As(err, &se):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.As(err, &st), errors.Is(err, crawler.ErrNonHTML):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	case errors.Is(err, crawler.ErrInvalidURL), errors.Is(err, crawler.ErrEmptyURL):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

const requestIDHeader = "X-Request-ID"

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func logRequest(l *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		l.Infof("%s %s %s id=%s", r.Method, r.URL.Path, time.Since(start), r.Header.Get(requestIDHeader))
	})
}
