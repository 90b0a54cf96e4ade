package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheapnut/cheapnut/internal/api"
	"github.com/cheapnut/cheapnut/internal/catalog"
	"github.com/cheapnut/cheapnut/internal/config"
	"github.com/cheapnut/cheapnut/internal/refresh"
	"github.com/cheapnut/cheapnut/internal/scrape"
	"github.com/cheapnut/cheapnut/internal/store"
	"github.com/cheapnut/cheapnut/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		log.Fatalf("init store: %v", err)
	}

	fetchers := []scrape.Fetcher{
		scrape.GroceryStaples(),
		scrape.FastFoodMenu(),
	}
	for _, ms := range cfg.MenuSources {
		fetchers = append(fetchers, scrape.NewMenuSource(ms.Name, ms.Name, ms.URL, cfg.HTTPTimeout))
	}

	orch := refresh.New(s, s, s, fetchers, refresh.Options{
		SourceTimeout:      cfg.SourceTimeout,
		StalenessThreshold: cfg.StalenessThreshold,
		Nutrition:          scrape.NewOpenFoodFactsClient(cfg.OFFBaseURL, cfg.HTTPTimeout),
	})

	engine := catalog.NewEngine(s, catalog.Strategy(cfg.BenchmarkStrategy))
	srv := api.New(engine, orch, cfg.CORSOrigin)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SchedulerInterval > 0 {
		go worker.New(orch, cfg.SchedulerInterval).Start(ctx)
	} else {
		log.Println("refresh scheduler disabled")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		log.Fatalf("server: %v", err)
	case <-ctx.Done():
	}

	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Printf("shutdown: %v", err)
	}
}
