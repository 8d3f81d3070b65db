package feeds

import (
	"context"
	"net/http"
	"sync"
	"time"

	"watchfeed/config"
	"watchfeed/images"
	"watchfeed/models"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"
)

const (
	browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	feedAccept       = "application/rss+xml, application/xml"
	feedTimeout      = 15 * time.Second

	defaultWorkers    = 10
	defaultMaxEntries = 50
)

// LatestStore is the single store read the fetcher needs: the newest
// publish time already recorded for a source.
type LatestStore interface {
	LatestPublished(ctx context.Context, source string) (*time.Time, error)
}

// Fetcher downloads one feed, filters its entries against the store's
// latest publish time and normalizes the survivors concurrently.
type Fetcher struct {
	store          LatestStore
	resolver       *images.Resolver
	client         *http.Client
	workers        int
	maxEntries     int
	validateImages bool
}

func NewFetcher(store LatestStore, cfg config.Fetch) *Fetcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}

	return &Fetcher{
		store:          store,
		resolver:       images.NewResolver(),
		client:         &http.Client{Timeout: feedTimeout},
		workers:        workers,
		maxEntries:     maxEntries,
		validateImages: cfg.ValidateImages,
	}
}

// Fetch retrieves and normalizes one source's feed. Failures degrade
// to an empty result; they never propagate to the caller.
func (f *Fetcher) Fetch(ctx context.Context, source string, src config.Source) []models.Article {
	feedFetchesTotal.WithLabelValues(source).Inc()

	latest, err := f.store.LatestPublished(ctx, source)
	if err != nil {
		log.WithFields(log.Fields{
			"source": source,
			"error":  err,
		}).Error("Error reading latest published timestamp")
	}

	parser := gofeed.NewParser()
	parser.Client = f.client
	parser.UserAgent = browserUserAgent

	feed, err := parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		feedFetchErrors.WithLabelValues(source).Inc()
		log.WithFields(log.Fields{
			"source": source,
			"url":    src.URL,
			"error":  err,
		}).Error("Error fetching feed")
		return nil
	}

	items := feed.Items
	if len(items) > f.maxEntries {
		items = items[:f.maxEntries]
	}

	// Recency gate: skip anything not strictly newer than the newest
	// stored entry before doing any expensive per-entry work.
	type job struct {
		entry     models.Entry
		published time.Time
	}
	var jobs []job
	for _, item := range items {
		entry := toEntry(item)
		published := publishTime(entry)
		if latest != nil && !published.After(*latest) {
			continue
		}
		jobs = append(jobs, job{entry: entry, published: published})
	}

	if len(jobs) == 0 {
		log.WithFields(log.Fields{"source": source}).Info("No new entries to process")
		return nil
	}

	jobChan := make(chan job, len(jobs))
	results := make(chan models.Article, len(jobs))
	var wg sync.WaitGroup

	for i := 0; i < f.workers; i++ {
		go func() {
			for j := range jobChan {
				if article, ok := f.processEntry(j.entry, source, src.ImageSelector, j.published); ok {
					entriesProcessed.WithLabelValues(source).Inc()
					results <- article
				} else {
					entriesDropped.WithLabelValues(source).Inc()
				}
				wg.Done()
			}
		}()
	}

	for _, j := range jobs {
		wg.Add(1)
		jobChan <- j
	}
	wg.Wait()
	close(jobChan)
	close(results)

	articles := make([]models.Article, 0, len(jobs))
	for article := range results {
		articles = append(articles, article)
	}

	log.WithFields(log.Fields{
		"source": source,
		"count":  len(articles),
	}).Info("Processed new feed entries")

	return articles
}

// processEntry normalizes a single feed entry. Entries missing a title
// or link are expected noise and dropped without logging.
func (f *Fetcher) processEntry(entry models.Entry, source string, selector string, published time.Time) (models.Article, bool) {
	if entry.Title == "" || entry.Link == "" {
		return models.Article{}, false
	}

	imageURL := f.resolver.Resolve(entry, selector)
	if imageURL != "" {
		imageURL = images.ApplySourceRules(imageURL, source)
		if f.validateImages && !f.resolver.Validate(imageURL) {
			imageURL = ""
		}
	}

	return models.Article{
		Title:     entry.Title,
		Link:      entry.Link,
		Summary:   Summarize(entry.Summary),
		Published: published,
		Source:    source,
		ImageURL:  imageURL,
		Tags:      CleanTags(entry.Categories),
	}, true
}

// toEntry flattens a parsed item into the normalized entry shape all
// downstream processing operates on.
func toEntry(item *gofeed.Item) models.Entry {
	entry := models.Entry{
		Title:           item.Title,
		Link:            item.Link,
		Published:       item.Published,
		PublishedParsed: item.PublishedParsed,
		Updated:         item.Updated,
		UpdatedParsed:   item.UpdatedParsed,
		Summary:         item.Description,
		Content:         item.Content,
		Categories:      item.Categories,
	}

	for _, media := range item.Extensions["media"]["content"] {
		if url := media.Attrs["url"]; url != "" {
			entry.MediaContent = append(entry.MediaContent, url)
		}
	}
	for _, thumb := range item.Extensions["media"]["thumbnail"] {
		if url := thumb.Attrs["url"]; url != "" {
			entry.MediaThumbnails = append(entry.MediaThumbnails, url)
		}
	}

	if item.DublinCoreExt != nil {
		entry.Categories = append(entry.Categories, item.DublinCoreExt.Subject...)
	}

	return entry
}

// publishTime picks the entry's publish time, falling back through
// updated timestamps to now when nothing parses.
func publishTime(entry models.Entry) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.Published != "" {
		return ParseDate(entry.Published)
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return ParseDate(entry.Updated)
}
