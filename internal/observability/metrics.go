// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostViews counts post detail views.
	PostViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_post_views_total",
		Help: "Total number of post detail views",
	})

	// LikeToggles counts like toggles by resulting state ("liked" or "unliked").
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"state"})

	// CommentsCreated counts submitted comments.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_comments_created_total",
		Help: "Total number of comments created",
	})

	// EmailsSent counts outbound emails by template and outcome ("sent" or "failed").
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_emails_total",
		Help: "Total number of outbound emails by template and outcome",
	}, []string{"template", "outcome"})

	// ImageProcessingFailures counts media operations that failed and were swallowed.
	ImageProcessingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_image_processing_failures_total",
		Help: "Total number of failed image operations by stage",
	}, []string{"stage"})

	// FeedQueryLatency records feed query latency by kind.
	FeedQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_feed_query_latency_seconds",
		Help:    "Feed query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// CacheResults counts cache-aside lookups by outcome ("hit", "miss" or "error").
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_cache_results_total",
		Help: "Total number of cache-aside lookups by outcome",
	}, []string{"outcome"})
)
