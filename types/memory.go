package types

import "time"

// MemoryType classifies what kind of information a memory holds.
type MemoryType string

const (
	// MemoryConversation is the default type for ordinary dialogue fragments.
	MemoryConversation MemoryType = "conversation"

	// MemoryFact holds factual statements about the user or the world.
	MemoryFact MemoryType = "fact"

	// MemoryPreference holds likes, dislikes and habitual choices.
	MemoryPreference MemoryType = "preference"

	// MemorySkill holds abilities and how-to knowledge the user mentions.
	MemorySkill MemoryType = "skill"
)

// Valid reports whether the memory type is one of the closed set of variants.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryConversation, MemoryFact, MemoryPreference, MemorySkill:
		return true
	}
	return false
}

// Memory is a durable, scored fragment of conversation content
// associated with an agent.
type Memory struct {
	ID              string     `json:"id"`
	AgentID         string     `json:"agent_id"`
	ConversationID  string     `json:"conversation_id,omitempty"`
	SourceMessageID string     `json:"source_message_id,omitempty"`
	Content         string     `json:"content"`
	Type            MemoryType `json:"type"`
	Importance      float64    `json:"importance"`
	AccessCount     int        `json:"access_count"`
	Tags            []string   `json:"tags,omitempty"`
	Embedding       []float32  `json:"embedding,omitempty"`
	LastAccessedAt  time.Time  `json:"last_accessed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasTag reports whether the memory carries the given tag.
func (m *Memory) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// RelationType classifies the edge between two memories.
type RelationType string

const (
	// RelationSimilar links memories with high lexical overlap.
	RelationSimilar RelationType = "similar"

	// RelationRelated links memories that belong to the same topic.
	RelationRelated RelationType = "related"

	// RelationConflict links memories that contradict each other.
	RelationConflict RelationType = "conflict"

	// RelationUpdate links a memory to the memory it supersedes.
	RelationUpdate RelationType = "update"
)

// Valid reports whether the relation type is one of the closed set of variants.
func (t RelationType) Valid() bool {
	switch t {
	case RelationSimilar, RelationRelated, RelationConflict, RelationUpdate:
		return true
	}
	return false
}

// Relation is a typed, weighted edge linking two memories.
// Relations are created once and are immutable afterwards.
type Relation struct {
	ID             string       `json:"id"`
	SourceMemoryID string       `json:"source_memory_id"`
	TargetMemoryID string       `json:"target_memory_id"`
	Type           RelationType `json:"type"`
	Strength       float64      `json:"strength"`
	CreatedAt      time.Time    `json:"created_at"`
}
