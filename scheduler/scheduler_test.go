package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"watchfeed/config"
	"watchfeed/models"
	"watchfeed/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu     sync.Mutex
	calls  map[string]int
	result map[string][]models.Article
}

func newStubFetcher(result map[string][]models.Article) *stubFetcher {
	return &stubFetcher{calls: map[string]int{}, result: result}
}

func (f *stubFetcher) Fetch(_ context.Context, source string, _ config.Source) []models.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[source]++
	return f.result[source]
}

func (f *stubFetcher) callCount(source string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[source]
}

type stubArticleStore struct {
	mu       sync.Mutex
	stored   []models.Article
	failLink string
}

func (s *stubArticleStore) Upsert(_ context.Context, article models.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if article.Link == s.failLink {
		return errors.New("disk full")
	}
	s.stored = append(s.stored, article)
	return nil
}

func (s *stubArticleStore) storedLinks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	links := make([]string, 0, len(s.stored))
	for _, a := range s.stored {
		links = append(links, a.Link)
	}
	return links
}

func testSources() map[string]config.Source {
	return map[string]config.Source{
		"ABTW":     {URL: "https://abtw.test/feed"},
		"Fratello": {URL: "https://fratello.test/feed"},
	}
}

func TestBootstrapFetchesAllSources(t *testing.T) {
	fetcher := newStubFetcher(map[string][]models.Article{
		"ABTW":     {{Title: "A", Link: "https://abtw.test/a"}},
		"Fratello": {{Title: "B", Link: "https://fratello.test/b"}},
	})
	store := &stubArticleStore{}

	sched := scheduler.New(testSources(), fetcher, store, time.Minute, time.Hour)
	sched.Bootstrap(context.Background())

	assert.Equal(t, 1, fetcher.callCount("ABTW"))
	assert.Equal(t, 1, fetcher.callCount("Fratello"))
	assert.ElementsMatch(t,
		[]string{"https://abtw.test/a", "https://fratello.test/b"},
		store.storedLinks())
}

func TestBootstrapIsolatesStoreErrors(t *testing.T) {
	fetcher := newStubFetcher(map[string][]models.Article{
		"ABTW": {
			{Title: "Bad", Link: "https://abtw.test/bad"},
			{Title: "Good", Link: "https://abtw.test/good"},
		},
	})
	store := &stubArticleStore{failLink: "https://abtw.test/bad"}

	sched := scheduler.New(map[string]config.Source{"ABTW": {URL: "https://abtw.test/feed"}},
		fetcher, store, time.Minute, time.Hour)
	sched.Bootstrap(context.Background())

	// The failed article does not stop the rest of the batch
	assert.Equal(t, []string{"https://abtw.test/good"}, store.storedLinks())
}

func TestRunRefreshesUntilCancelled(t *testing.T) {
	fetcher := newStubFetcher(nil)
	store := &stubArticleStore{}

	sched := scheduler.New(testSources(), fetcher, store, time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	// Bootstrap plus at least one refresh cycle
	require.Eventually(t, func() bool {
		return fetcher.callCount("ABTW") >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestRunStopsDuringStartupDelay(t *testing.T) {
	fetcher := newStubFetcher(nil)
	store := &stubArticleStore{}

	sched := scheduler.New(testSources(), fetcher, store, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx)
	}()

	// Bootstrap runs, then the scheduler sits in its startup delay
	require.Eventually(t, func() bool {
		return fetcher.callCount("ABTW") == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop during startup delay")
	}
	assert.Equal(t, 1, fetcher.callCount("ABTW"))
}
