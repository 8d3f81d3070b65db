package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var articlesStored = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "watchfeed_articles_stored_total",
	Help: "The total number of articles written to the store per source",
}, []string{"source"})
