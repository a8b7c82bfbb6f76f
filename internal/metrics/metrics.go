// Package metrics provides internal metrics collection for the memory
// engine. This package is internal and should not be imported by
// external projects.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/seedchat/memkit/types"
)

// Collector exposes the engine's prometheus series. It satisfies
// memory.Metrics.
type Collector struct {
	memoriesCreated *prometheus.CounterVec
	memoriesEvicted *prometheus.CounterVec
	retrievals      *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers the engine series on the given registerer.
// A nil registerer uses the default prometheus registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	return &Collector{
		memoriesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memories_created_total",
				Help:      "Total number of memories created",
			},
			[]string{"agent_id", "type"},
		),
		memoriesEvicted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memories_evicted_total",
				Help:      "Total number of memories evicted over capacity",
			},
			[]string{"agent_id"},
		),
		retrievals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "memory_retrievals_total",
				Help:      "Total number of retrieval operations",
			},
			[]string{"agent_id"},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "context_cache_hits_total",
				Help:      "Total number of context cache hits",
			},
		),
		cacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "context_cache_misses_total",
				Help:      "Total number of context cache misses",
			},
		),
		logger: logger.With(zap.String("component", "metrics")),
	}
}

// MemoryCreated counts one created memory.
func (c *Collector) MemoryCreated(agentID string, memType types.MemoryType) {
	c.memoriesCreated.WithLabelValues(agentID, string(memType)).Inc()
}

// MemoriesEvicted counts evicted memories.
func (c *Collector) MemoriesEvicted(agentID string, n int) {
	c.memoriesEvicted.WithLabelValues(agentID).Add(float64(n))
}

// RetrievalPerformed counts one retrieval operation.
func (c *Collector) RetrievalPerformed(agentID string) {
	c.retrievals.WithLabelValues(agentID).Inc()
}

// ContextCacheHit counts one cache hit.
func (c *Collector) ContextCacheHit() {
	c.cacheHits.Inc()
}

// ContextCacheMiss counts one cache miss.
func (c *Collector) ContextCacheMiss() {
	c.cacheMisses.Inc()
}
