package conversation

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation is an ordered exchange of messages owned by one user. It is
// created lazily: no row exists until the opening turn completes and its
// terminal envelope has been durably stored.
type Conversation struct {
	ID        uint
	PublicID  string
	Title     string
	UserID    string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of a conversation. Assistant messages own an ordered
// chunk accumulation in the chunk store, keyed by PublicID after finalize.
type Message struct {
	ID             uint
	ConversationID uint
	PublicID       string
	Role           Role
	Content        string
	CreatedAt      time.Time
}
