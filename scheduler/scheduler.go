package scheduler

import (
	"context"
	"sync"
	"time"

	"watchfeed/config"
	"watchfeed/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Fetcher produces the normalized articles of one source's feed.
type Fetcher interface {
	Fetch(ctx context.Context, source string, src config.Source) []models.Article
}

// ArticleStore persists a single article idempotently.
type ArticleStore interface {
	Upsert(ctx context.Context, article models.Article) error
}

// Scheduler drives ingestion: one concurrent bootstrap fetch across
// all sources at startup, then an eternal fixed-interval refresh loop.
// Failures are isolated per source and per article; the loop never
// stops on its own.
type Scheduler struct {
	sources      map[string]config.Source
	fetcher      Fetcher
	store        ArticleStore
	startupDelay time.Duration
	interval     time.Duration
}

func New(sources map[string]config.Source, fetcher Fetcher, store ArticleStore, startupDelay, interval time.Duration) *Scheduler {
	return &Scheduler{
		sources:      sources,
		fetcher:      fetcher,
		store:        store,
		startupDelay: startupDelay,
		interval:     interval,
	}
}

// Run blocks until the context is cancelled. In-flight fetches are
// abandoned at shutdown, not awaited.
func (s *Scheduler) Run(ctx context.Context) {
	s.Bootstrap(ctx)

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.startupDelay):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.refreshAll(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Bootstrap fetches every configured source concurrently and blocks
// until all complete or fail.
func (s *Scheduler) Bootstrap(ctx context.Context) {
	run := uuid.New().String()
	log.WithFields(log.Fields{
		"run":     run,
		"sources": len(s.sources),
	}).Info("Bootstrapping feeds")

	var wg sync.WaitGroup
	for name, src := range s.sources {
		wg.Add(1)
		go func(name string, src config.Source) {
			defer wg.Done()
			s.fetchSource(ctx, run, name, src)
		}(name, src)
	}
	wg.Wait()

	log.WithFields(log.Fields{"run": run}).Info("Bootstrap complete")
}

func (s *Scheduler) refreshAll(ctx context.Context) {
	run := uuid.New().String()
	log.WithFields(log.Fields{"run": run}).Info("Refreshing feeds")

	for name, src := range s.sources {
		if ctx.Err() != nil {
			return
		}
		s.fetchSource(ctx, run, name, src)
	}
}

func (s *Scheduler) fetchSource(ctx context.Context, run string, name string, src config.Source) {
	articles := s.fetcher.Fetch(ctx, name, src)

	stored := 0
	for _, article := range articles {
		if err := s.store.Upsert(ctx, article); err != nil {
			log.WithFields(log.Fields{
				"run":    run,
				"source": name,
				"link":   article.Link,
				"error":  err,
			}).Error("Error storing article")
			continue
		}
		stored++
		articlesStored.WithLabelValues(name).Inc()
	}

	if stored > 0 {
		log.WithFields(log.Fields{
			"run":    run,
			"source": name,
			"count":  stored,
		}).Info("Stored articles")
	}
}
