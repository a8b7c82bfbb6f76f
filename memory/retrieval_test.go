package memory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seedchat/memkit/memory"
	"github.com/seedchat/memkit/store"
	"github.com/seedchat/memkit/types"
)

func newRetrieval(t *testing.T) (*store.InMemoryStore, *memory.RetrievalEngine) {
	t.Helper()
	st := store.NewInMemoryStore(store.InMemoryConfig{}, zap.NewNop())
	return st, memory.NewRetrievalEngine(st, memory.NewSimilarity(), zap.NewNop())
}

func TestRetrievalEngine_LimitAndDedup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, engine := newRetrieval(t)

	// High-importance memories that also match the query text: they
	// appear in both search legs and must be deduplicated.
	for i := 0; i < 8; i++ {
		m := newTestMemory(fmt.Sprintf("m%d", i), "agent-1", fmt.Sprintf("我 喜欢 编程 %d", i))
		m.Importance = 0.9
		require.NoError(t, st.Insert(ctx, m))
	}

	got := engine.RetrieveRelevant(ctx, "agent-1", "喜欢 编程", 5)
	assert.Len(t, got, 5)

	seen := make(map[string]bool)
	for _, m := range got {
		assert.False(t, seen[m.ID], "duplicate id %s", m.ID)
		seen[m.ID] = true
	}
}

func TestRetrievalEngine_RanksByRelevanceFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, engine := newRetrieval(t)

	match := newTestMemory("match", "agent-1", "我 喜欢 蓝色")
	match.Importance = 0.4
	important := newTestMemory("important", "agent-1", "明天 开会")
	important.Importance = 0.95

	require.NoError(t, st.Insert(ctx, match))
	require.NoError(t, st.Insert(ctx, important))

	got := engine.RetrieveRelevant(ctx, "agent-1", "我 喜欢 蓝色", 2)
	require.Len(t, got, 2)
	// The lexically relevant memory outranks the merely important one.
	assert.Equal(t, "match", got[0].ID)
	assert.Equal(t, "important", got[1].ID)
}

func TestRetrievalEngine_ReadCausesWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, engine := newRetrieval(t)

	m := newTestMemory("m1", "agent-1", "我 喜欢 蓝色")
	require.NoError(t, st.Insert(ctx, m))

	got := engine.RetrieveRelevant(ctx, "agent-1", "蓝色", 5)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].AccessCount)

	// The write-back is persisted, not just reflected in the copy.
	stored, err := st.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AccessCount)
	assert.True(t, stored.LastAccessedAt.After(m.LastAccessedAt))

	engine.RetrieveRelevant(ctx, "agent-1", "蓝色", 5)
	stored, err = st.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.AccessCount)
}

func TestRetrievalEngine_NonPositiveLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, engine := newRetrieval(t)
	require.NoError(t, st.Insert(ctx, newTestMemory("m1", "agent-1", "内容")))

	assert.Empty(t, engine.RetrieveRelevant(ctx, "agent-1", "内容", 0))
	assert.Empty(t, engine.RetrieveRelevant(ctx, "agent-1", "内容", -1))
}

func TestRetrievalEngine_ContextualMemories(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, engine := newRetrieval(t)

	scoped := newTestMemory("scoped", "agent-1", "现在 的 对话")
	scoped.ConversationID = "conv-1"
	scoped.Importance = 0.3
	require.NoError(t, st.Insert(ctx, scoped))

	relevant := newTestMemory("relevant", "agent-1", "我 喜欢 蓝色")
	relevant.Importance = 0.8
	require.NoError(t, st.Insert(ctx, relevant))

	got := engine.ContextualMemories(ctx, "agent-1", "conv-1", "我 喜欢 蓝色")
	require.Len(t, got, 2)
	// Ranked by importance descending.
	assert.Equal(t, "relevant", got[0].ID)
	assert.Equal(t, "scoped", got[1].ID)
}

func TestRetrievalEngine_ContextualMemoriesCap(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st, engine := newRetrieval(t)

	for i := 0; i < 15; i++ {
		m := newTestMemory(fmt.Sprintf("m%02d", i), "agent-1", fmt.Sprintf("对话 内容 %d", i))
		m.ConversationID = "conv-1"
		m.Importance = float64(i) / 20.0
		m.CreatedAt = m.CreatedAt.Add(time.Duration(i) * time.Second)
		require.NoError(t, st.Insert(ctx, m))
	}

	got := engine.ContextualMemories(ctx, "agent-1", "conv-1", "对话")
	assert.Len(t, got, 10)
}

func TestRetrievalEngine_EnhancedContextText(t *testing.T) {
	t.Parallel()

	_, engine := newRetrieval(t)

	assert.Empty(t, engine.EnhancedContextText(nil))

	withTags := newTestMemory("m1", "agent-1", "我喜欢蓝色")
	withTags.Tags = []string{"偏好"}
	plain := newTestMemory("m2", "agent-1", "明天开会")

	text := engine.EnhancedContextText([]types.Memory{withTags, plain})
	assert.Equal(t, "相关记忆：\n- 我喜欢蓝色\n  标签: 偏好\n- 明天开会\n", text)
}
