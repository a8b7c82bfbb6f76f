package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seedchat/memkit/types"
)

const (
	// DefaultContextualRecall is the retrieval limit used when gathering
	// query-relevant memories for a conversation context block.
	DefaultContextualRecall = 5

	// DefaultContextualLimit caps the memories rendered into one
	// context block.
	DefaultContextualLimit = 10
)

// RetrievalEngine gathers candidate memories, ranks them and writes
// back access statistics. A read causes a write: every returned memory
// has its access count incremented and its last access time refreshed.
type RetrievalEngine struct {
	store  Store
	sim    *Similarity
	now    func() time.Time
	logger *zap.Logger
}

// NewRetrievalEngine creates a RetrievalEngine.
func NewRetrievalEngine(store Store, sim *Similarity, logger *zap.Logger) *RetrievalEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalEngine{
		store:  store,
		sim:    sim,
		now:    time.Now,
		logger: logger.With(zap.String("component", "retrieval")),
	}
}

// RetrieveRelevant merges a substring search with the agent's most
// important memories, ranks the union by (relevance, importance, access
// count) descending, and returns at most limit distinct memories. Each
// returned memory's access statistics are updated best-effort.
func (e *RetrievalEngine) RetrieveRelevant(ctx context.Context, agentID, query string, limit int) []types.Memory {
	if limit <= 0 {
		return nil
	}

	byText, err := e.store.SearchByText(ctx, agentID, query)
	if err != nil {
		e.logger.Warn("text search failed", zap.String("agent_id", agentID), zap.Error(err))
		byText = nil
	}
	byImportance, err := e.store.TopByImportance(ctx, agentID, limit)
	if err != nil {
		e.logger.Warn("importance search failed", zap.String("agent_id", agentID), zap.Error(err))
		byImportance = nil
	}

	type scored struct {
		memory    types.Memory
		relevance float64
	}

	merged := dedupByID(append(byText, byImportance...))
	ranked := make([]scored, len(merged))
	for i, m := range merged {
		ranked[i] = scored{memory: m, relevance: e.sim.Relevance(m, query)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].relevance != ranked[j].relevance {
			return ranked[i].relevance > ranked[j].relevance
		}
		if ranked[i].memory.Importance != ranked[j].memory.Importance {
			return ranked[i].memory.Importance > ranked[j].memory.Importance
		}
		return ranked[i].memory.AccessCount > ranked[j].memory.AccessCount
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	candidates := make([]types.Memory, len(ranked))
	for i, r := range ranked {
		candidates[i] = r.memory
	}

	now := e.now()
	for i := range candidates {
		candidates[i].AccessCount++
		candidates[i].LastAccessedAt = now
		if err := e.store.UpdateAccess(ctx, candidates[i].ID, now); err != nil {
			e.logger.Warn("access update failed", zap.String("memory_id", candidates[i].ID), zap.Error(err))
		}
	}

	return candidates
}

// ContextualMemories merges the memories scoped to a conversation with
// the query-relevant memories of the agent, ranked by (importance,
// access count, last access time) descending, capped at
// DefaultContextualLimit.
func (e *RetrievalEngine) ContextualMemories(ctx context.Context, agentID, conversationID, query string) []types.Memory {
	var scoped []types.Memory
	if conversationID != "" {
		var err error
		scoped, err = e.store.GetByConversation(ctx, conversationID)
		if err != nil {
			e.logger.Warn("conversation listing failed", zap.String("conversation_id", conversationID), zap.Error(err))
			scoped = nil
		}
	}

	relevant := e.RetrieveRelevant(ctx, agentID, query, DefaultContextualRecall)
	merged := dedupByID(append(scoped, relevant...))

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Importance != merged[j].Importance {
			return merged[i].Importance > merged[j].Importance
		}
		if merged[i].AccessCount != merged[j].AccessCount {
			return merged[i].AccessCount > merged[j].AccessCount
		}
		return merged[i].LastAccessedAt.After(merged[j].LastAccessedAt)
	})

	if len(merged) > DefaultContextualLimit {
		merged = merged[:DefaultContextualLimit]
	}
	return merged
}

// EnhancedContextText renders a memory list into the text block that is
// prepended to the model prompt. An empty list renders to an empty
// string so the prompt stays untouched when nothing is known.
func (e *RetrievalEngine) EnhancedContextText(memories []types.Memory) string {
	if len(memories) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("相关记忆：\n")
	for _, m := range memories {
		b.WriteString("- ")
		b.WriteString(m.Content)
		b.WriteString("\n")
		if len(m.Tags) > 0 {
			b.WriteString("  标签: ")
			b.WriteString(strings.Join(m.Tags, "、"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// dedupByID keeps the first occurrence of each memory id, preserving
// order.
func dedupByID(memories []types.Memory) []types.Memory {
	seen := make(map[string]struct{}, len(memories))
	out := memories[:0:0]
	for _, m := range memories {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
