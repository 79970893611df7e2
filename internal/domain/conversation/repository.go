package conversation

import (
	"context"
	"time"

	"knowledge-assist/chat-api/pkg/chatwire"
)

// FinalizeTurnParams describes the single transactional unit that makes a
// completed turn visible: conversation row (created on the opening turn),
// user and assistant message rows, and the chunk re-key from the provisional
// accumulation to the permanent message id.
type FinalizeTurnParams struct {
	UserID string

	// ExistingConversationID is set for follow-up turns.
	ExistingConversationID *string
	// NewConversationID and Title are used when the turn opens a conversation.
	NewConversationID string
	Title             string

	UserMessageID      string
	UserMessage        string
	AssistantMessageID string
	AssistantContent   string

	ProvisionalKey string
}

// FinalizeTurnResult carries the identifiers assigned by finalize.
type FinalizeTurnResult struct {
	ConversationID string
	MessageID      string
}

// Repository persists conversations and messages.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]*Conversation, error)
	GetByPublicID(ctx context.Context, userID, publicID string) (*Conversation, error)
	GetMessage(ctx context.Context, userID, messagePublicID string) (*Message, error)
	// FinalizeTurn runs in one transaction. Nothing it writes is visible to
	// other readers until the transaction commits.
	FinalizeTurn(ctx context.Context, params FinalizeTurnParams) (*FinalizeTurnResult, error)
}

// ChunkStore persists the per-message envelope accumulation.
type ChunkStore interface {
	// Append stores one chunk envelope under the given accumulation key.
	// Appending the same (key, sequence) twice is a no-op.
	Append(ctx context.Context, key string, env *chatwire.Envelope) error
	// Read returns the stored chunk envelopes for a finalized message in
	// ascending sequence order.
	Read(ctx context.Context, messageID string) ([]*chatwire.Envelope, error)
	// DeleteProvisionalOlderThan removes abandoned provisional accumulations.
	DeleteProvisionalOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}
