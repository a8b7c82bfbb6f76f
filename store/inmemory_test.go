package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seedchat/memkit/memory"
	"github.com/seedchat/memkit/types"
)

func sampleMemory(id, agentID string) types.Memory {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return types.Memory{
		ID:             id,
		AgentID:        agentID,
		ConversationID: "conv-1",
		Content:        "我喜欢蓝色",
		Type:           types.MemoryPreference,
		Importance:     0.7,
		Tags:           []string{"偏好"},
		LastAccessedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestInMemoryStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore(InMemoryConfig{}, nil)

	m := sampleMemory("m1", "agent-1")
	require.NoError(t, s.Insert(ctx, m))

	got, err := s.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, m, got)

	m.Content = "我喜欢绿色"
	require.NoError(t, s.Update(ctx, m))
	got, err = s.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "我喜欢绿色", got.Content)

	require.NoError(t, s.Delete(ctx, "m1"))
	_, err = s.GetByID(ctx, "m1")
	assert.ErrorIs(t, err, memory.ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, s.Delete(ctx, "m1"))
}

func TestInMemoryStore_UpdateMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore(InMemoryConfig{}, nil)

	err := s.Update(ctx, sampleMemory("ghost", "agent-1"))
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestInMemoryStore_ListingsAreScoped(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore(InMemoryConfig{}, nil)

	a := sampleMemory("a", "agent-1")
	b := sampleMemory("b", "agent-1")
	b.ConversationID = "conv-2"
	b.CreatedAt = a.CreatedAt.Add(time.Minute)
	c := sampleMemory("c", "agent-2")

	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))
	require.NoError(t, s.Insert(ctx, c))

	byAgent, err := s.GetByAgent(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, byAgent, 2)
	// Sorted by creation time.
	assert.Equal(t, "a", byAgent[0].ID)
	assert.Equal(t, "b", byAgent[1].ID)

	byConv, err := s.GetByConversation(ctx, "conv-2")
	require.NoError(t, err)
	require.Len(t, byConv, 1)
	assert.Equal(t, "b", byConv[0].ID)
}

func TestInMemoryStore_SearchByText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore(InMemoryConfig{}, nil)

	blue := sampleMemory("blue", "agent-1")
	blue.Content = "I Like Blue"
	green := sampleMemory("green", "agent-1")
	green.Content = "我喜欢绿色"
	other := sampleMemory("other", "agent-2")
	other.Content = "blue too"

	require.NoError(t, s.Insert(ctx, blue))
	require.NoError(t, s.Insert(ctx, green))
	require.NoError(t, s.Insert(ctx, other))

	got, err := s.SearchByText(ctx, "agent-1", "blue")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "blue", got[0].ID)

	got, err = s.SearchByText(ctx, "agent-1", "绿色")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "green", got[0].ID)

	// Empty query matches everything of the agent.
	got, err = s.SearchByText(ctx, "agent-1", "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestInMemoryStore_TopByImportance(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore(InMemoryConfig{}, nil)

	for i, imp := range []float64{0.2, 0.9, 0.5} {
		m := sampleMemory(string(rune('a'+i)), "agent-1")
		m.Importance = imp
		require.NoError(t, s.Insert(ctx, m))
	}

	got, err := s.TopByImportance(ctx, "agent-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	got, err = s.TopByImportance(ctx, "agent-1", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInMemoryStore_UpdateAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore(InMemoryConfig{}, nil)

	m := sampleMemory("m1", "agent-1")
	require.NoError(t, s.Insert(ctx, m))

	at := m.LastAccessedAt.Add(time.Hour)
	require.NoError(t, s.UpdateAccess(ctx, "m1", at))
	require.NoError(t, s.UpdateAccess(ctx, "m1", at.Add(time.Minute)))

	got, err := s.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	assert.Equal(t, at.Add(time.Minute), got.LastAccessedAt)

	assert.ErrorIs(t, s.UpdateAccess(ctx, "ghost", at), memory.ErrNotFound)
}

func TestInMemoryStore_Relations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewInMemoryStore(InMemoryConfig{}, nil)

	r := types.Relation{
		ID:             "r1",
		SourceMemoryID: "m1",
		TargetMemoryID: "m2",
		Type:           types.RelationSimilar,
		Strength:       0.8,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.InsertRelation(ctx, r))

	for _, id := range []string{"m1", "m2"} {
		got, err := s.RelationsFor(ctx, id)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, r, got[0])
	}

	got, err := s.RelationsFor(ctx, "m3")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.DeleteRelation(ctx, "r1"))
	got, err = s.RelationsFor(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	t.Parallel()

	s := NewInMemoryStore(InMemoryConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetByAgent(ctx, "agent-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Insert(ctx, sampleMemory("m1", "agent-1")), context.Canceled)
}
