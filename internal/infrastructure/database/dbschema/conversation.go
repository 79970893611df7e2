package dbschema

import (
	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
	database.RegisterSchemaForAutoMigrate(Message{})
}

// Conversation represents the database schema for conversations
type Conversation struct {
	BaseModel
	PublicID string  `gorm:"type:varchar(50);uniqueIndex;not null"`
	Title    string  `gorm:"type:varchar(256);not null"`
	UserID   string  `gorm:"type:varchar(128);index:idx_conversation_user;not null"`
	Messages []Message `gorm:"foreignKey:ConversationID"`
}

// Message represents the database schema for conversation messages
type Message struct {
	BaseModel
	ConversationID uint   `gorm:"index:idx_message_conversation;not null"`
	PublicID       string `gorm:"type:varchar(50);uniqueIndex;not null"`
	Role           string `gorm:"type:varchar(20);not null"`
	Content        string `gorm:"type:text"`
}

// NewSchemaConversation creates a database schema from domain conversation
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	return &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		PublicID: c.PublicID,
		Title:    c.Title,
		UserID:   c.UserID,
	}
}

// EtoD converts database schema to domain conversation (Entity to Domain)
func (c *Conversation) EtoD() *conversation.Conversation {
	conv := &conversation.Conversation{
		ID:        c.ID,
		PublicID:  c.PublicID,
		Title:     c.Title,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	for i := range c.Messages {
		conv.Messages = append(conv.Messages, *c.Messages[i].EtoD())
	}
	return conv
}

// NewSchemaMessage creates a database schema from domain message
func NewSchemaMessage(m *conversation.Message) *Message {
	return &Message{
		BaseModel: BaseModel{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
		},
		ConversationID: m.ConversationID,
		PublicID:       m.PublicID,
		Role:           string(m.Role),
		Content:        m.Content,
	}
}

// EtoD converts database schema to domain message (Entity to Domain)
func (m *Message) EtoD() *conversation.Message {
	return &conversation.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		PublicID:       m.PublicID,
		Role:           conversation.Role(m.Role),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
}
