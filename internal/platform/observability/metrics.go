package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PostsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forwarder_posts_total",
		Help: "The total number of source posts by kind and terminal state",
	}, []string{"kind", "outcome"})

	AnchorsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forwarder_anchors_created_total",
		Help: "The total number of placeholder anchors created in the destination",
	}, []string{"kind"})

	MediaBytesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_media_downloaded_bytes_total",
		Help: "Bytes of source media downloaded",
	})

	MediaItemsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forwarder_media_items_skipped_total",
		Help: "Media items dropped from a post because they could not be transferred",
	}, []string{"reason"})

	RateLimitAborts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_rate_limit_aborts_total",
		Help: "Runs aborted because the destination demanded a wait",
	})

	SendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forwarder_post_duration_seconds",
		Help:    "Time spent forwarding one post",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"kind"})

	HistoryPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forwarder_history_pages_total",
		Help: "History pages fetched from the source",
	})
)
