package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seedchat/memkit/types"
)

// DefaultSimilarityThreshold is the lexical overlap a pair of memories
// must exceed before a Similar relation is written.
const DefaultSimilarityThreshold = 0.7

// RelationGraph builds and queries typed, weighted edges between
// memories. Edges are append-only: repeated calls may produce duplicate
// or symmetric edges and no cycle detection is performed.
type RelationGraph struct {
	store     Store
	sim       *Similarity
	threshold float64
	now       func() time.Time
	logger    *zap.Logger
}

// NewRelationGraph creates a RelationGraph. A threshold of 0 falls back
// to DefaultSimilarityThreshold.
func NewRelationGraph(store Store, sim *Similarity, threshold float64, logger *zap.Logger) *RelationGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &RelationGraph{
		store:     store,
		sim:       sim,
		threshold: threshold,
		now:       time.Now,
		logger:    logger.With(zap.String("component", "relation_graph")),
	}
}

// OnMemoryCreated links a freshly created memory to every existing
// memory of the same agent whose content similarity exceeds the
// threshold. Store failures on individual edges are logged and skipped;
// relation building never fails the ingestion that triggered it.
func (g *RelationGraph) OnMemoryCreated(ctx context.Context, created types.Memory, existing []types.Memory) int {
	linked := 0
	for _, other := range existing {
		if other.ID == created.ID {
			continue
		}
		score := g.sim.Score(created.Content, other.Content)
		if score <= g.threshold {
			continue
		}
		rel := types.Relation{
			ID:             uuid.NewString(),
			SourceMemoryID: created.ID,
			TargetMemoryID: other.ID,
			Type:           types.RelationSimilar,
			Strength:       score,
			CreatedAt:      g.now(),
		}
		if err := g.store.InsertRelation(ctx, rel); err != nil {
			g.logger.Warn("relation insert failed",
				zap.String("source", created.ID),
				zap.String("target", other.ID),
				zap.Error(err))
			continue
		}
		linked++
		g.logger.Debug("similar relation created",
			zap.String("source", created.ID),
			zap.String("target", other.ID),
			zap.Float64("strength", score))
	}
	return linked
}

// RelationsFor returns all relations where the memory is source or
// target. A store failure degrades to an empty slice.
func (g *RelationGraph) RelationsFor(ctx context.Context, memoryID string) []types.Relation {
	rels, err := g.store.RelationsFor(ctx, memoryID)
	if err != nil {
		g.logger.Warn("relation query failed", zap.String("memory_id", memoryID), zap.Error(err))
		return nil
	}
	return rels
}
