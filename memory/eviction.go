package memory

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/seedchat/memkit/types"
)

// DefaultCapacity bounds the number of memories kept per agent.
const DefaultCapacity = 1000

// EvictionPolicy enforces the per-agent capacity bound. After every
// successful insert the policy deletes exactly the records exceeding
// capacity, removing the lowest-ranked first: ascending by importance,
// then access count, then last access time.
type EvictionPolicy struct {
	store    Store
	capacity int
	logger   *zap.Logger
}

// NewEvictionPolicy creates an EvictionPolicy. A capacity of 0 falls
// back to DefaultCapacity.
func NewEvictionPolicy(store Store, capacity int, logger *zap.Logger) *EvictionPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &EvictionPolicy{
		store:    store,
		capacity: capacity,
		logger:   logger.With(zap.String("component", "eviction")),
	}
}

// Capacity returns the configured per-agent bound.
func (p *EvictionPolicy) Capacity() int {
	return p.capacity
}

// Enforce trims the agent's memory set down to capacity and returns the
// number of records deleted. Store failures degrade to a no-op: a
// failed listing skips the pass entirely, a failed delete skips that
// record.
func (p *EvictionPolicy) Enforce(ctx context.Context, agentID string) int {
	memories, err := p.store.GetByAgent(ctx, agentID)
	if err != nil {
		p.logger.Warn("eviction listing failed", zap.String("agent_id", agentID), zap.Error(err))
		return 0
	}
	excess := len(memories) - p.capacity
	if excess <= 0 {
		return 0
	}

	sort.Slice(memories, func(i, j int) bool {
		return evictionLess(memories[i], memories[j])
	})

	deleted := 0
	for _, m := range memories[:excess] {
		if err := p.store.Delete(ctx, m.ID); err != nil {
			p.logger.Warn("eviction delete failed", zap.String("memory_id", m.ID), zap.Error(err))
			continue
		}
		deleted++
	}

	p.logger.Info("memories evicted",
		zap.String("agent_id", agentID),
		zap.Int("deleted", deleted),
		zap.Int("capacity", p.capacity))

	return deleted
}

// evictionLess orders memories for eviction: least important first,
// ties broken by access count, then by last access time.
func evictionLess(a, b types.Memory) bool {
	if a.Importance != b.Importance {
		return a.Importance < b.Importance
	}
	if a.AccessCount != b.AccessCount {
		return a.AccessCount < b.AccessCount
	}
	return a.LastAccessedAt.Before(b.LastAccessedAt)
}
