package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/seedchat/memkit/types"
)

func TestCollector_Counters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector("memkit", reg, zap.NewNop())

	c.MemoryCreated("agent-1", types.MemoryPreference)
	c.MemoryCreated("agent-1", types.MemoryPreference)
	c.MemoriesEvicted("agent-1", 3)
	c.RetrievalPerformed("agent-1")
	c.ContextCacheHit()
	c.ContextCacheMiss()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.memoriesCreated.WithLabelValues("agent-1", "preference")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.memoriesEvicted.WithLabelValues("agent-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.retrievals.WithLabelValues("agent-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses))
}
