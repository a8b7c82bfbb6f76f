package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seedchat/memkit/memory"
	"github.com/seedchat/memkit/store"
	"github.com/seedchat/memkit/types"
)

func newTestMemory(id, agentID, content string) types.Memory {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return types.Memory{
		ID:             id,
		AgentID:        agentID,
		Content:        content,
		Type:           types.MemoryConversation,
		Importance:     0.5,
		LastAccessedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestRelationGraph_LinksSimilarMemories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewInMemoryStore(store.InMemoryConfig{}, zap.NewNop())
	graph := memory.NewRelationGraph(st, memory.NewSimilarity(), 0, zap.NewNop())

	existing := newTestMemory("m1", "agent-1", "我 喜欢 编程")
	require.NoError(t, st.Insert(ctx, existing))

	// Jaccard("我 喜欢 编程", "我 喜欢 编程 呀") = 3/4 = 0.75 > 0.7.
	created := newTestMemory("m2", "agent-1", "我 喜欢 编程 呀")
	require.NoError(t, st.Insert(ctx, created))

	linked := graph.OnMemoryCreated(ctx, created, []types.Memory{existing})
	assert.Equal(t, 1, linked)

	rels := graph.RelationsFor(ctx, "m2")
	require.Len(t, rels, 1)
	assert.Equal(t, "m2", rels[0].SourceMemoryID)
	assert.Equal(t, "m1", rels[0].TargetMemoryID)
	assert.Equal(t, types.RelationSimilar, rels[0].Type)
	assert.InDelta(t, 0.75, rels[0].Strength, 1e-9)

	// The edge is visible from both endpoints.
	rels = graph.RelationsFor(ctx, "m1")
	require.Len(t, rels, 1)
}

func TestRelationGraph_IgnoresDissimilarMemories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewInMemoryStore(store.InMemoryConfig{}, zap.NewNop())
	graph := memory.NewRelationGraph(st, memory.NewSimilarity(), 0, zap.NewNop())

	existing := newTestMemory("m1", "agent-1", "今天 天气 不错")
	created := newTestMemory("m2", "agent-1", "我 喜欢 编程")

	linked := graph.OnMemoryCreated(ctx, created, []types.Memory{existing})
	assert.Zero(t, linked)
	assert.Empty(t, graph.RelationsFor(ctx, "m2"))
}

func TestRelationGraph_ThresholdIsStrict(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewInMemoryStore(store.InMemoryConfig{}, zap.NewNop())
	graph := memory.NewRelationGraph(st, memory.NewSimilarity(), 0, zap.NewNop())

	// 7 shared words, union of 10: similarity exactly 0.7, no edge.
	existing := newTestMemory("m1", "agent-1", "a b c d e f g")
	created := newTestMemory("m2", "agent-1", "a b c d e f g h i j")

	linked := graph.OnMemoryCreated(ctx, created, []types.Memory{existing})
	assert.Zero(t, linked)
}

func TestRelationGraph_SkipsSelf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewInMemoryStore(store.InMemoryConfig{}, zap.NewNop())
	graph := memory.NewRelationGraph(st, memory.NewSimilarity(), 0, zap.NewNop())

	created := newTestMemory("m1", "agent-1", "我 喜欢 编程")
	linked := graph.OnMemoryCreated(ctx, created, []types.Memory{created})
	assert.Zero(t, linked)
}

func TestRelationGraph_DanglingEndpointsSurviveDeletion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewInMemoryStore(store.InMemoryConfig{}, zap.NewNop())
	graph := memory.NewRelationGraph(st, memory.NewSimilarity(), 0, zap.NewNop())

	existing := newTestMemory("m1", "agent-1", "我 喜欢 编程")
	created := newTestMemory("m2", "agent-1", "我 喜欢 编程 呀")
	require.NoError(t, st.Insert(ctx, existing))
	require.NoError(t, st.Insert(ctx, created))
	require.Equal(t, 1, graph.OnMemoryCreated(ctx, created, []types.Memory{existing}))

	// Deleting a memory does not cascade to its relations.
	require.NoError(t, st.Delete(ctx, "m1"))
	rels := graph.RelationsFor(ctx, "m2")
	assert.Len(t, rels, 1)
}
