package types

import "time"

// Sender identifies the author of a conversation message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Valid reports whether the sender is one of the closed set of variants.
func (s Sender) Valid() bool {
	switch s {
	case SenderUser, SenderAssistant:
		return true
	}
	return false
}

// Message represents a conversation message as exposed by the
// conversation feed collaborator. The feed is read-only; the engine
// never mutates messages.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Sender         Sender    `json:"sender"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewUserMessage creates a user message with the current timestamp.
func NewUserMessage(id, conversationID, content string) Message {
	return Message{
		ID:             id,
		ConversationID: conversationID,
		Content:        content,
		Sender:         SenderUser,
		Timestamp:      time.Now(),
	}
}

// NewAssistantMessage creates an assistant message with the current timestamp.
func NewAssistantMessage(id, conversationID, content string) Message {
	return Message{
		ID:             id,
		ConversationID: conversationID,
		Content:        content,
		Sender:         SenderAssistant,
		Timestamp:      time.Now(),
	}
}

// MessageFeed provides read-only access to ordered conversation messages.
// Implementations live in the surrounding application.
type MessageFeed interface {
	// MessagesByConversation returns the messages of a conversation in
	// chronological order.
	MessagesByConversation(conversationID string) ([]Message, error)
}
