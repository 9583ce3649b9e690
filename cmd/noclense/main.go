package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/noclense/noclense/pkg/config"
	"github.com/noclense/noclense/pkg/logs/session"
	"github.com/noclense/noclense/pkg/logs/store"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: noclense <logfile> [logfile...]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	backend := store.NewElasticsearchBackend(cfg, logger)
	s, err := session.NewSession(cfg, backend, logger)
	if err != nil {
		logger.Fatal("Failed to create session", zap.Error(err))
	}

	ctx := context.Background()
	s.Start(ctx)
	defer s.Close()

	files := os.Args[1:]
	var wg sync.WaitGroup
	wg.Add(len(files))
	err = s.SubscribeAdded(func(batch session.AddedBatch) error {
		logger.Info("Ingested log file",
			zap.String("file_name", batch.FileName),
			zap.Int("entries", batch.Count),
			zap.Int64("total", batch.Total),
		)
		wg.Done()
		return nil
	})
	if err != nil {
		logger.Fatal("Failed to subscribe to batch notifications", zap.Error(err))
	}

	for _, path := range files {
		s.LoadFile(path)
	}
	wg.Wait()

	total, err := s.TotalCount(ctx)
	if err != nil {
		logger.Fatal("Failed to count entries", zap.Error(err))
	}

	timeline, err := s.Timeline(ctx)
	if err != nil {
		logger.Fatal("Failed to build timeline", zap.Error(err))
	}

	correlations, err := s.Correlations(ctx)
	if err != nil {
		logger.Fatal("Failed to build correlation index", zap.Error(err))
	}

	fmt.Printf("entries: %d (mode: %s)\n", total, s.Mode())
	if timeline.MinMs < timeline.MaxMs {
		fmt.Printf("span: %dms\n", timeline.MaxMs-timeline.MinMs)
	}
	fmt.Printf("markers: %d, sessions: %d\n", len(timeline.Markers), len(timeline.Sessions))
	for dim, values := range correlations.Values {
		if len(values) > 0 {
			fmt.Printf("%s: %d distinct\n", dim, len(values))
		}
	}
}
