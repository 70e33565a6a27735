package datacontext

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacontext_cache_lookups_total",
			Help: "Reads served by cached data contexts, by whether the snapshot was warm",
		},
		[]string{"context", "result"},
	)

	cacheReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacontext_cache_reloads_total",
			Help: "Full snapshot reloads of cached data contexts",
		},
		[]string{"context", "reason"},
	)

	eventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datacontext_events_total",
			Help: "Change events published by data contexts",
		},
		[]string{"context", "type"},
	)
)

func recordLookup(context string, warm bool) {
	result := "miss"
	if warm {
		result = "hit"
	}
	cacheLookups.WithLabelValues(context, result).Inc()
}

func recordReload(context, reason string) {
	cacheReloads.WithLabelValues(context, reason).Inc()
}

func recordEvent(context string, kind EventType) {
	eventsEmitted.WithLabelValues(context, string(kind)).Inc()
}
