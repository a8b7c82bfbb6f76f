package memory

import (
	"context"
	"errors"
	"time"

	"github.com/seedchat/memkit/types"
)

// ErrNotFound is returned by Store lookups when no record exists.
// Callers distinguish it from collaborator failures via errors.Is.
var ErrNotFound = errors.New("memory: record not found")

// isNotFound reports whether err represents a missing record rather
// than a collaborator failure.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the persistence collaborator for memories and relations.
// Every call may fail; the engine treats failures as no-ops and
// degrades to the documented empty/false defaults instead of
// propagating them.
//
// Implementations are not required to provide cross-call atomicity.
// The engine serializes read-modify-write sequences per agent, but two
// engines sharing one store for the same agent still race.
type Store interface {
	// GetByAgent returns all memories of an agent.
	GetByAgent(ctx context.Context, agentID string) ([]types.Memory, error)

	// GetByConversation returns all memories scoped to a conversation.
	GetByConversation(ctx context.Context, conversationID string) ([]types.Memory, error)

	// GetByID returns a single memory, or ErrNotFound.
	GetByID(ctx context.Context, id string) (types.Memory, error)

	// Insert persists a new memory.
	Insert(ctx context.Context, m types.Memory) error

	// Update overwrites an existing memory, or returns ErrNotFound.
	Update(ctx context.Context, m types.Memory) error

	// Delete removes a memory. Deleting a missing id is not an error.
	// Deletion does not cascade to relations; dangling endpoints are
	// tolerated by the engine.
	Delete(ctx context.Context, id string) error

	// SearchByText returns the agent's memories whose content contains
	// the query, case-insensitively.
	SearchByText(ctx context.Context, agentID, query string) ([]types.Memory, error)

	// TopByImportance returns the agent's n highest-importance memories.
	TopByImportance(ctx context.Context, agentID string, n int) ([]types.Memory, error)

	// UpdateAccess increments a memory's access count and sets its last
	// access time.
	UpdateAccess(ctx context.Context, id string, at time.Time) error

	// InsertRelation persists a new relation. Relations are append-only
	// and immutable once written.
	InsertRelation(ctx context.Context, r types.Relation) error

	// RelationsFor returns relations where the memory is source or target.
	RelationsFor(ctx context.Context, memoryID string) ([]types.Relation, error)

	// DeleteRelation removes a relation by id.
	DeleteRelation(ctx context.Context, id string) error
}
