package streamclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"resty.dev/v3"

	"knowledge-assist/chat-api/pkg/chatwire"
)

const commentMaxLength = 255

// ConversationSummary mirrors the server's conversation list entry.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationDetail mirrors the server's conversation detail view.
type ConversationDetail struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Message is one transcript entry of a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type conversationListResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

type chunkResponse struct {
	Type        string          `json:"type"`
	Sequence    *int            `json:"sequence"`
	MessageType string          `json:"message_type"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   time.Time       `json:"timestamp"`
}

type chunkListResponse struct {
	MessageID string          `json:"message_id"`
	Chunks    []chunkResponse `json:"chunks"`
}

type streamRequest struct {
	Message        string  `json:"message"`
	ConversationID *string `json:"conversation_id,omitempty"`
}

type feedbackRequest struct {
	MessageID  string  `json:"message_id"`
	IsPositive bool    `json:"is_positive"`
	Comment    *string `json:"comment,omitempty"`
}

// Client talks to the chat-api over HTTP.
type Client struct {
	http    *resty.Client
	baseURL string
	token   string
}

// New creates a client against the given base URL authenticating with the
// given session token.
func New(baseURL, token string) *Client {
	return &Client{
		http:    resty.New(),
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
	}
}

// OpenStream sends one question and returns a consumer positioned at the
// start of the SSE response. The caller drives Consume and may interrupt it
// with the consumer's Stop, which also releases the connection. For
// follow-up turns conversationID carries the bound id; nil opens a new
// conversation.
func (c *Client) OpenStream(ctx context.Context, message string, conversationID *string) (*Consumer, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.token).
		SetHeader("Accept-Encoding", "identity").
		SetBody(streamRequest{Message: message, ConversationID: conversationID}).
		SetDoNotParseResponse(true).
		Post(c.baseURL + "/v1/chat/stream")
	if err != nil {
		return nil, err
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, fmt.Errorf("empty stream response")
	}

	if resp.IsError() {
		defer resp.RawResponse.Body.Close()
		body, _ := io.ReadAll(resp.RawResponse.Body)
		return nil, fmt.Errorf("stream request failed with status %d: %s", resp.StatusCode(), strings.TrimSpace(string(body)))
	}

	return NewConsumer(resp.RawResponse.Body), nil
}

// StreamMessage sends one question and consumes the SSE response through the
// handler until the terminal envelope.
func (c *Client) StreamMessage(ctx context.Context, message string, conversationID *string, handler Handler) error {
	consumer, err := c.OpenStream(ctx, message, conversationID)
	if err != nil {
		return err
	}
	defer consumer.Stop()
	return consumer.Consume(handler)
}

// ListConversations fetches the caller's conversations, newest first.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	var result conversationListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token).
		SetResult(&result).
		Get(c.baseURL + "/v1/conversations")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list conversations failed with status %d", resp.StatusCode())
	}
	return result.Conversations, nil
}

// GetConversation fetches one conversation with its transcript.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*ConversationDetail, error) {
	var result ConversationDetail
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token).
		SetResult(&result).
		Get(c.baseURL + "/v1/conversations/" + conversationID)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get conversation failed with status %d", resp.StatusCode())
	}
	return &result, nil
}

// GetMessageChunks fetches the stored chunk envelopes of a finalized
// assistant message, reconstructed exactly as they were streamed.
func (c *Client) GetMessageChunks(ctx context.Context, messageID string) ([]*chatwire.Envelope, error) {
	var result chunkListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token).
		SetResult(&result).
		Get(c.baseURL + "/v1/messages/" + messageID + "/chunks")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get message chunks failed with status %d", resp.StatusCode())
	}

	envelopes := make([]*chatwire.Envelope, 0, len(result.Chunks))
	for i := range result.Chunks {
		chunk := result.Chunks[i]
		envelopeType := chatwire.Type(chunk.Type)
		if envelopeType == "" {
			envelopeType = chatwire.TypeChunk
		}
		envelopes = append(envelopes, &chatwire.Envelope{
			Type:        envelopeType,
			Sequence:    chunk.Sequence,
			MessageType: chatwire.MessageType(chunk.MessageType),
			Data:        chunk.Payload,
			Timestamp:   chunk.Timestamp,
		})
	}
	return envelopes, nil
}

// SubmitFeedback records a verdict on an assistant message. The same rules
// the server enforces are checked locally first: comments are capped at 255
// characters and negative feedback requires one.
func (c *Client) SubmitFeedback(ctx context.Context, messageID string, isPositive bool, comment *string) error {
	if messageID == "" {
		return ErrFeedbackUnavailable
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			if len(trimmed) > commentMaxLength {
				return fmt.Errorf("comment exceeds %d characters", commentMaxLength)
			}
			comment = &trimmed
		}
	}
	if !isPositive && comment == nil {
		return fmt.Errorf("negative feedback requires a comment")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+c.token).
		SetBody(feedbackRequest{MessageID: messageID, IsPositive: isPositive, Comment: comment}).
		Post(c.baseURL + "/v1/feedback")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("feedback request failed with status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}
