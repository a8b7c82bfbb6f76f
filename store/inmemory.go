package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seedchat/memkit/memory"
	"github.com/seedchat/memkit/types"
)

// InMemoryConfig configures the in-memory store.
type InMemoryConfig struct {
	// Now is used for tests. Defaults to time.Now.
	Now func() time.Time
}

// InMemoryStore is a mutex-guarded map implementation of memory.Store.
// It is used for local development, tests and small deployments.
type InMemoryStore struct {
	mu        sync.RWMutex
	memories  map[string]types.Memory
	relations map[string]types.Relation

	now    func() time.Time
	logger *zap.Logger
}

var _ memory.Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an InMemoryStore.
func NewInMemoryStore(config InMemoryConfig, logger *zap.Logger) *InMemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &InMemoryStore{
		memories:  make(map[string]types.Memory),
		relations: make(map[string]types.Relation),
		now:       now,
		logger:    logger.With(zap.String("component", "store_inmemory")),
	}
}

// GetByAgent returns all memories of an agent.
func (s *InMemoryStore) GetByAgent(ctx context.Context, agentID string) ([]types.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Memory
	for _, m := range s.memories {
		if m.AgentID == agentID {
			out = append(out, m)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// GetByConversation returns all memories scoped to a conversation.
func (s *InMemoryStore) GetByConversation(ctx context.Context, conversationID string) ([]types.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Memory
	for _, m := range s.memories {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// GetByID returns a single memory, or memory.ErrNotFound.
func (s *InMemoryStore) GetByID(ctx context.Context, id string) (types.Memory, error) {
	if err := ctx.Err(); err != nil {
		return types.Memory{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memories[id]
	if !ok {
		return types.Memory{}, memory.ErrNotFound
	}
	return m, nil
}

// Insert persists a new memory.
func (s *InMemoryStore) Insert(ctx context.Context, m types.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memories[m.ID] = m
	return nil
}

// Update overwrites an existing memory.
func (s *InMemoryStore) Update(ctx context.Context, m types.Memory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memories[m.ID]; !ok {
		return memory.ErrNotFound
	}
	s.memories[m.ID] = m
	return nil
}

// Delete removes a memory. Relations are intentionally left in place;
// dangling endpoints are tolerated by the engine.
func (s *InMemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.memories, id)
	return nil
}

// SearchByText returns the agent's memories whose content contains the
// query, case-insensitively.
func (s *InMemoryStore) SearchByText(ctx context.Context, agentID, query string) ([]types.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	lowerQuery := strings.ToLower(query)
	var out []types.Memory
	for _, m := range s.memories {
		if m.AgentID != agentID {
			continue
		}
		if lowerQuery == "" || strings.Contains(strings.ToLower(m.Content), lowerQuery) {
			out = append(out, m)
		}
	}
	sortByCreatedAt(out)
	return out, nil
}

// TopByImportance returns the agent's n highest-importance memories.
func (s *InMemoryStore) TopByImportance(ctx context.Context, agentID string, n int) ([]types.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Memory
	for _, m := range s.memories {
		if m.AgentID == agentID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// UpdateAccess increments a memory's access count and refreshes its
// last access time.
func (s *InMemoryStore) UpdateAccess(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok {
		return memory.ErrNotFound
	}
	m.AccessCount++
	m.LastAccessedAt = at
	m.UpdatedAt = s.now()
	s.memories[id] = m
	return nil
}

// InsertRelation persists a new relation.
func (s *InMemoryStore) InsertRelation(ctx context.Context, r types.Relation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.relations[r.ID] = r
	return nil
}

// RelationsFor returns relations where the memory is source or target.
func (s *InMemoryStore) RelationsFor(ctx context.Context, memoryID string) ([]types.Relation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Relation
	for _, r := range s.relations {
		if r.SourceMemoryID == memoryID || r.TargetMemoryID == memoryID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteRelation removes a relation by id.
func (s *InMemoryStore) DeleteRelation(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.relations, id)
	return nil
}

// Len reports how many memories the store holds. Tests only.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories)
}

func sortByCreatedAt(memories []types.Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].CreatedAt.Before(memories[j].CreatedAt)
	})
}
