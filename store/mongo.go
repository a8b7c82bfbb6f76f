package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/seedchat/memkit/memory"
	"github.com/seedchat/memkit/types"
)

const (
	memoriesCollection  = "agent_memories"
	relationsCollection = "memory_relations"
)

// MongoConfig configures the MongoDB store.
type MongoConfig struct {
	// URI is the mongodb connection string.
	URI string `yaml:"uri" json:"uri"`

	// Database holds the engine collections.
	Database string `yaml:"database" json:"database"`
}

// DefaultMongoConfig returns the MongoDB defaults.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		URI:      "mongodb://localhost:27017",
		Database: "memkit",
	}
}

// memoryDoc is the document shape of a memory.
type memoryDoc struct {
	ID              string    `bson:"_id"`
	AgentID         string    `bson:"agent_id"`
	ConversationID  string    `bson:"conversation_id,omitempty"`
	SourceMessageID string    `bson:"source_message_id,omitempty"`
	Content         string    `bson:"content"`
	Type            string    `bson:"type"`
	Importance      float64   `bson:"importance"`
	AccessCount     int       `bson:"access_count"`
	Tags            []string  `bson:"tags,omitempty"`
	Embedding       []float32 `bson:"embedding,omitempty"`
	LastAccessedAt  time.Time `bson:"last_accessed_at"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

// relationDoc is the document shape of a relation.
type relationDoc struct {
	ID             string    `bson:"_id"`
	SourceMemoryID string    `bson:"source_memory_id"`
	TargetMemoryID string    `bson:"target_memory_id"`
	Type           string    `bson:"type"`
	Strength       float64   `bson:"strength"`
	CreatedAt      time.Time `bson:"created_at"`
}

// MongoStore is a MongoDB-backed implementation of memory.Store.
type MongoStore struct {
	client    *mongo.Client
	memories  *mongo.Collection
	relations *mongo.Collection
	logger    *zap.Logger
}

var _ memory.Store = (*MongoStore)(nil)

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(config MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return NewMongoStoreWithClient(client, config, logger), nil
}

// NewMongoStoreWithClient wraps an existing client.
func NewMongoStoreWithClient(client *mongo.Client, config MongoConfig, logger *zap.Logger) *MongoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := client.Database(config.Database)
	return &MongoStore{
		client:    client,
		memories:  db.Collection(memoriesCollection),
		relations: db.Collection(relationsCollection),
		logger:    logger.With(zap.String("component", "store_mongo")),
	}
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// GetByAgent returns all memories of an agent.
func (s *MongoStore) GetByAgent(ctx context.Context, agentID string) ([]types.Memory, error) {
	return s.findMemories(ctx, bson.M{"agent_id": agentID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// GetByConversation returns all memories scoped to a conversation.
func (s *MongoStore) GetByConversation(ctx context.Context, conversationID string) ([]types.Memory, error) {
	return s.findMemories(ctx, bson.M{"conversation_id": conversationID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// GetByID returns a single memory, or memory.ErrNotFound.
func (s *MongoStore) GetByID(ctx context.Context, id string) (types.Memory, error) {
	var doc memoryDoc
	err := s.memories.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.Memory{}, memory.ErrNotFound
	}
	if err != nil {
		return types.Memory{}, fmt.Errorf("get by id: %w", err)
	}
	return toMemoryFromDoc(doc), nil
}

// Insert persists a new memory.
func (s *MongoStore) Insert(ctx context.Context, m types.Memory) error {
	if _, err := s.memories.InsertOne(ctx, toMemoryDoc(m)); err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}
	return nil
}

// Update overwrites an existing memory, or returns memory.ErrNotFound.
func (s *MongoStore) Update(ctx context.Context, m types.Memory) error {
	res, err := s.memories.ReplaceOne(ctx, bson.M{"_id": m.ID}, toMemoryDoc(m))
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	if res.MatchedCount == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// Delete removes a memory. Relations are intentionally not cascaded.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	if _, err := s.memories.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}

// SearchByText returns the agent's memories whose content contains the
// query, case-insensitively.
func (s *MongoStore) SearchByText(ctx context.Context, agentID, query string) ([]types.Memory, error) {
	filter := bson.M{
		"agent_id": agentID,
		"content":  bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"},
	}
	return s.findMemories(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

// TopByImportance returns the agent's n highest-importance memories.
func (s *MongoStore) TopByImportance(ctx context.Context, agentID string, n int) ([]types.Memory, error) {
	if n <= 0 {
		return nil, nil
	}
	return s.findMemories(ctx, bson.M{"agent_id": agentID}, options.Find().
		SetSort(bson.D{{Key: "importance", Value: -1}}).
		SetLimit(int64(n)))
}

// UpdateAccess increments a memory's access count and refreshes its
// last access time.
func (s *MongoStore) UpdateAccess(ctx context.Context, id string, at time.Time) error {
	res, err := s.memories.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"access_count": 1},
		"$set": bson.M{"last_accessed_at": at, "updated_at": at},
	})
	if err != nil {
		return fmt.Errorf("update access: %w", err)
	}
	if res.MatchedCount == 0 {
		return memory.ErrNotFound
	}
	return nil
}

// InsertRelation persists a new relation.
func (s *MongoStore) InsertRelation(ctx context.Context, r types.Relation) error {
	doc := relationDoc{
		ID:             r.ID,
		SourceMemoryID: r.SourceMemoryID,
		TargetMemoryID: r.TargetMemoryID,
		Type:           string(r.Type),
		Strength:       r.Strength,
		CreatedAt:      r.CreatedAt,
	}
	if _, err := s.relations.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert relation: %w", err)
	}
	return nil
}

// RelationsFor returns relations where the memory is source or target.
func (s *MongoStore) RelationsFor(ctx context.Context, memoryID string) ([]types.Relation, error) {
	filter := bson.M{"$or": []bson.M{
		{"source_memory_id": memoryID},
		{"target_memory_id": memoryID},
	}}
	cursor, err := s.relations.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("relations for: %w", err)
	}
	var docs []relationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode relations: %w", err)
	}
	out := make([]types.Relation, len(docs))
	for i, doc := range docs {
		out[i] = types.Relation{
			ID:             doc.ID,
			SourceMemoryID: doc.SourceMemoryID,
			TargetMemoryID: doc.TargetMemoryID,
			Type:           types.RelationType(doc.Type),
			Strength:       doc.Strength,
			CreatedAt:      doc.CreatedAt,
		}
	}
	return out, nil
}

// DeleteRelation removes a relation by id.
func (s *MongoStore) DeleteRelation(ctx context.Context, id string) error {
	if _, err := s.relations.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete relation: %w", err)
	}
	return nil
}

func (s *MongoStore) findMemories(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]types.Memory, error) {
	cursor, err := s.memories.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find memories: %w", err)
	}
	var docs []memoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode memories: %w", err)
	}
	out := make([]types.Memory, len(docs))
	for i, doc := range docs {
		out[i] = toMemoryFromDoc(doc)
	}
	return out, nil
}

func toMemoryDoc(m types.Memory) memoryDoc {
	return memoryDoc{
		ID:              m.ID,
		AgentID:         m.AgentID,
		ConversationID:  m.ConversationID,
		SourceMessageID: m.SourceMessageID,
		Content:         m.Content,
		Type:            string(m.Type),
		Importance:      m.Importance,
		AccessCount:     m.AccessCount,
		Tags:            m.Tags,
		Embedding:       m.Embedding,
		LastAccessedAt:  m.LastAccessedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toMemoryFromDoc(doc memoryDoc) types.Memory {
	return types.Memory{
		ID:              doc.ID,
		AgentID:         doc.AgentID,
		ConversationID:  doc.ConversationID,
		SourceMessageID: doc.SourceMessageID,
		Content:         doc.Content,
		Type:            types.MemoryType(doc.Type),
		Importance:      doc.Importance,
		AccessCount:     doc.AccessCount,
		Tags:            doc.Tags,
		Embedding:       doc.Embedding,
		LastAccessedAt:  doc.LastAccessedAt,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}
