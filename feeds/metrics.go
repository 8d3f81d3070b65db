package feeds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchfeed_feed_fetches_total",
		Help: "The total number of feed fetch attempts per source",
	}, []string{"source"})

	feedFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchfeed_feed_fetch_errors_total",
		Help: "The total number of failed feed fetches per source",
	}, []string{"source"})

	entriesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchfeed_entries_processed_total",
		Help: "The number of feed entries that passed the recency filter and were normalized",
	}, []string{"source"})

	entriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchfeed_entries_dropped_total",
		Help: "The number of feed entries dropped for missing required fields",
	}, []string{"source"})
)
