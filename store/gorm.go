package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/seedchat/memkit/memory"
	"github.com/seedchat/memkit/types"
)

// memoryRow is the relational shape of a memory. Tags and the embedding
// placeholder are stored as JSON text so the schema stays portable
// across sqlite, mysql and postgres.
type memoryRow struct {
	ID              string    `gorm:"primaryKey;size:64"`
	AgentID         string    `gorm:"index;size:64;not null"`
	ConversationID  string    `gorm:"index;size:64"`
	SourceMessageID string    `gorm:"size:64"`
	Content         string    `gorm:"type:text;not null"`
	Type            string    `gorm:"size:32;not null"`
	Importance      float64   `gorm:"index;not null"`
	AccessCount     int       `gorm:"not null;default:0"`
	Tags            string    `gorm:"type:text"`
	Embedding       string    `gorm:"type:text"`
	LastAccessedAt  time.Time `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (memoryRow) TableName() string { return "agent_memories" }

// relationRow is the relational shape of a relation.
type relationRow struct {
	ID             string  `gorm:"primaryKey;size:64"`
	SourceMemoryID string  `gorm:"index;size:64;not null"`
	TargetMemoryID string  `gorm:"index;size:64;not null"`
	Type           string  `gorm:"size:32;not null"`
	Strength       float64 `gorm:"not null"`
	CreatedAt      time.Time
}

func (relationRow) TableName() string { return "memory_relations" }

// GormStore is a GORM-backed implementation of memory.Store.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ memory.Store = (*GormStore)(nil)

// NewGormStore wraps a GORM connection and migrates the two engine
// tables.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&memoryRow{}, &relationRow{}); err != nil {
		return nil, fmt.Errorf("migrate memory schema: %w", err)
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "store_gorm")),
	}, nil
}

// GetByAgent returns all memories of an agent.
func (s *GormStore) GetByAgent(ctx context.Context, agentID string) ([]types.Memory, error) {
	var rows []memoryRow
	err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get by agent: %w", err)
	}
	return s.toMemories(rows), nil
}

// GetByConversation returns all memories scoped to a conversation.
func (s *GormStore) GetByConversation(ctx context.Context, conversationID string) ([]types.Memory, error) {
	var rows []memoryRow
	err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get by conversation: %w", err)
	}
	return s.toMemories(rows), nil
}

// GetByID returns a single memory, or memory.ErrNotFound.
func (s *GormStore) GetByID(ctx context.Context, id string) (types.Memory, error) {
	var row memoryRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Memory{}, memory.ErrNotFound
	}
	if err != nil {
		return types.Memory{}, fmt.Errorf("get by id: %w", err)
	}
	return s.toMemory(row), nil
}

// Insert persists a new memory.
func (s *GormStore) Insert(ctx context.Context, m types.Memory) error {
	row, err := s.toRow(m)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Update overwrites an existing memory, or returns memory.ErrNotFound.
func (s *GormStore) Update(ctx context.Context, m types.Memory) error {
	row, err := s.toRow(m)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).
		Model(&memoryRow{}).
		Where("id = ?", m.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("update memory: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Delete removes a memory. Relations are intentionally not cascaded.
func (s *GormStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&memoryRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

// SearchByText returns the agent's memories whose content contains the
// query, case-insensitively.
func (s *GormStore) SearchByText(ctx context.Context, agentID, query string) ([]types.Memory, error) {
	var rows []memoryRow
	pattern := "%" + strings.ToLower(query) + "%"
	err := s.db.WithContext(ctx).
		Where("agent_id = ? AND LOWER(content) LIKE ?", agentID, pattern).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search by text: %w", err)
	}
	return s.toMemories(rows), nil
}

// TopByImportance returns the agent's n highest-importance memories.
func (s *GormStore) TopByImportance(ctx context.Context, agentID string, n int) ([]types.Memory, error) {
	if n <= 0 {
		return nil, nil
	}
	var rows []memoryRow
	err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("importance DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top by importance: %w", err)
	}
	return s.toMemories(rows), nil
}

// UpdateAccess increments a memory's access count and refreshes its
// last access time.
func (s *GormStore) UpdateAccess(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&memoryRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access_count":     gorm.Expr("access_count + 1"),
			"last_accessed_at": at,
			"updated_at":       at,
		})
	if res.Error != nil {
		return fmt.Errorf("update access: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// InsertRelation persists a new relation.
func (s *GormStore) InsertRelation(ctx context.Context, r types.Relation) error {
	row := relationRow{
		ID:             r.ID,
		SourceMemoryID: r.SourceMemoryID,
		TargetMemoryID: r.TargetMemoryID,
		Type:           string(r.Type),
		Strength:       r.Strength,
		CreatedAt:      r.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert relation: %w", err)
	}
	return nil
}

// RelationsFor returns relations where the memory is source or target.
func (s *GormStore) RelationsFor(ctx context.Context, memoryID string) ([]types.Relation, error) {
	var rows []relationRow
	err := s.db.WithContext(ctx).
		Where("source_memory_id = ? OR target_memory_id = ?", memoryID, memoryID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("relations for: %w", err)
	}
	out := make([]types.Relation, len(rows))
	for i, row := range rows {
		out[i] = types.Relation{
			ID:             row.ID,
			SourceMemoryID: row.SourceMemoryID,
			TargetMemoryID: row.TargetMemoryID,
			Type:           types.RelationType(row.Type),
			Strength:       row.Strength,
			CreatedAt:      row.CreatedAt,
		}
	}
	return out, nil
}

// DeleteRelation removes a relation by id.
func (s *GormStore) DeleteRelation(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&relationRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete relation: %w", err)
	}
	return nil
}

func (s *GormStore) toRow(m types.Memory) (memoryRow, error) {
	tags, err := json.Marshal(m.Tags)
	if err != nil {
		return memoryRow{}, fmt.Errorf("marshal tags: %w", err)
	}
	var embedding []byte
	if m.Embedding != nil {
		embedding, err = json.Marshal(m.Embedding)
		if err != nil {
			return memoryRow{}, fmt.Errorf("marshal embedding: %w", err)
		}
	}
	return memoryRow{
		ID:              m.ID,
		AgentID:         m.AgentID,
		ConversationID:  m.ConversationID,
		SourceMessageID: m.SourceMessageID,
		Content:         m.Content,
		Type:            string(m.Type),
		Importance:      m.Importance,
		AccessCount:     m.AccessCount,
		Tags:            string(tags),
		Embedding:       string(embedding),
		LastAccessedAt:  m.LastAccessedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}, nil
}

// toMemory converts a row back. Malformed tag or embedding payloads are
// treated as absent values, not errors.
func (s *GormStore) toMemory(row memoryRow) types.Memory {
	var tags []string
	if row.Tags != "" {
		if err := json.Unmarshal([]byte(row.Tags), &tags); err != nil {
			s.logger.Warn("malformed tags payload", zap.String("memory_id", row.ID), zap.Error(err))
			tags = nil
		}
	}
	var embedding []float32
	if row.Embedding != "" {
		if err := json.Unmarshal([]byte(row.Embedding), &embedding); err != nil {
			s.logger.Warn("malformed embedding payload", zap.String("memory_id", row.ID), zap.Error(err))
			embedding = nil
		}
	}
	return types.Memory{
		ID:              row.ID,
		AgentID:         row.AgentID,
		ConversationID:  row.ConversationID,
		SourceMessageID: row.SourceMessageID,
		Content:         row.Content,
		Type:            types.MemoryType(row.Type),
		Importance:      row.Importance,
		AccessCount:     row.AccessCount,
		Tags:            tags,
		Embedding:       embedding,
		LastAccessedAt:  row.LastAccessedAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func (s *GormStore) toMemories(rows []memoryRow) []types.Memory {
	out := make([]types.Memory, len(rows))
	for i, row := range rows {
		out[i] = s.toMemory(row)
	}
	return out
}
