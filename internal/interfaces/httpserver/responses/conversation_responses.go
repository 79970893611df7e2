package responses

import (
	"encoding/json"
	"time"

	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/domain/feedback"
	"knowledge-assist/chat-api/pkg/chatwire"
)

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationDetail includes the full message transcript.
type ConversationDetail struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Messages  []MessageResponse `json:"messages"`
}

// MessageResponse is one transcript entry.
type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationListResponse wraps the conversation list.
type ConversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

// ChunkResponse is one stored envelope, shaped exactly like the live stream
// so replay renders through the same path. A failed turn's list ends with an
// error envelope; only chunk envelopes carry a sequence.
type ChunkResponse struct {
	Type        string          `json:"type"`
	Sequence    *int            `json:"sequence,omitempty"`
	MessageType string          `json:"message_type,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ChunkListResponse wraps a finalized message's chunk replay.
type ChunkListResponse struct {
	MessageID string          `json:"message_id"`
	Chunks    []ChunkResponse `json:"chunks"`
}

// FeedbackResponse echoes a recorded feedback entry.
type FeedbackResponse struct {
	MessageID  string    `json:"message_id"`
	IsPositive bool      `json:"is_positive"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewConversationSummary maps a domain conversation to its list view.
func NewConversationSummary(c *conversation.Conversation) ConversationSummary {
	return ConversationSummary{
		ID:        c.PublicID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// NewConversationDetail maps a domain conversation with its transcript.
func NewConversationDetail(c *conversation.Conversation) ConversationDetail {
	detail := ConversationDetail{
		ID:        c.PublicID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]MessageResponse, 0, len(c.Messages)),
	}
	for i := range c.Messages {
		m := &c.Messages[i]
		detail.Messages = append(detail.Messages, MessageResponse{
			ID:        m.PublicID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return detail
}

// NewChunkListResponse maps stored chunk envelopes for replay.
func NewChunkListResponse(messageID string, envelopes []*chatwire.Envelope) ChunkListResponse {
	resp := ChunkListResponse{
		MessageID: messageID,
		Chunks:    make([]ChunkResponse, 0, len(envelopes)),
	}
	for _, env := range envelopes {
		var sequence *int
		if env.Sequence != nil {
			value := *env.Sequence
			sequence = &value
		}
		resp.Chunks = append(resp.Chunks, ChunkResponse{
			Type:        string(env.Type),
			Sequence:    sequence,
			MessageType: string(env.MessageType),
			Payload:     env.Data,
			Timestamp:   env.Timestamp,
		})
	}
	return resp
}

// NewFeedbackResponse maps a recorded feedback entry.
func NewFeedbackResponse(fb *feedback.Feedback) FeedbackResponse {
	return FeedbackResponse{
		MessageID:  fb.MessagePublicID,
		IsPositive: fb.IsPositive,
		Comment:    fb.Comment,
		CreatedAt:  fb.CreatedAt,
	}
}
