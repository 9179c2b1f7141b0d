package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_messages_total",
			Help: "Total number of inbound messages by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI completion attempts by model and outcome",
		},
		[]string{"model", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI completion attempt duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	STTRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stt_requests_total",
			Help: "Total number of speech recognition requests by outcome",
		},
		[]string{"outcome"},
	)
	TranscodeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_total",
			Help: "Total number of audio transcode runs by outcome",
		},
		[]string{"outcome"},
	)

	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_cache_hits_total",
			Help: "Total number of analysis cache hits",
		},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_cache_misses_total",
			Help: "Total number of analysis cache misses",
		},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of messages rejected by the per-user rate limiter",
		},
	)
	FallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analysis_fallback_total",
			Help: "Total number of analyses served by the local fallback analyzer",
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(STTRequestsTotal)
	prometheus.MustRegister(TranscodeTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(FallbackTotal)
}
