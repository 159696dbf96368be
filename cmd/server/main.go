package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"htmlspider/internal/config"
	"htmlspider/internal/crawler"
	"htmlspider/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Errorf("config: %v", err)
		os.Exit(1)
	}
	l := logger.NewWithLevel(cfg.Log.Level, cfg.Log.Development)
	defer l.Sync()

	client := crawler.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.DialTimeout, cfg.HTTP.SizeCap).
		WithUserAgent(cfg.HTTP.UserAgent)
	fetcher := crawler.NewFetcher(cfg.Spider.Name, client, crawler.WithTimeout(cfg.Spider.FetchTimeout))
	h := &handler{
		log:         l,
		fetcher:     fetcher,
		concurrency: cfg.Spider.Concurrency,
		writeWindow: cfg.Spider.FetchTimeout + 10*time.Second,
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.Spider.FetchTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		l.Infof("server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			l.Errorf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	l.Infof("bye")
}
