// Package chatwire defines the streaming wire protocol shared by the
// chat-api server and its clients. Every event on the stream is an
// Envelope serialized as a UTF-8 SSE frame: "data: <json>\n\n".
package chatwire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type identifies the envelope kind.
type Type string

const (
	TypeStatus   Type = "status"
	TypeChunk    Type = "chunk"
	TypeComplete Type = "complete"
	TypeError    Type = "error"
)

// MessageType identifies the payload variant carried by a chunk envelope.
type MessageType string

const (
	MessageTypeText          MessageType = "text"
	MessageTypeQuery         MessageType = "query"
	MessageTypeTabularResult MessageType = "tabular_result"
	MessageTypeChart         MessageType = "chart"
	MessageTypeNarrative     MessageType = "narrative"
)

const (
	// DataPrefix starts every SSE frame on the wire.
	DataPrefix = "data: "
	// FrameSeparator terminates every SSE frame.
	FrameSeparator = "\n\n"
)

// Envelope is the single event shape used for live streaming and storage.
// Sequence and MessageType are set on chunk envelopes only. Sequence numbers
// are assigned per assistant message, starting at zero with no gaps.
type Envelope struct {
	Type           Type            `json:"type"`
	Sequence       *int            `json:"sequence,omitempty"`
	MessageType    MessageType     `json:"message_type,omitempty"`
	Data           json.RawMessage `json:"data,omitempty"`
	ConversationID *string         `json:"conversation_id,omitempty"`
	MessageID      *string         `json:"message_id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewStatus builds a status envelope carrying a human readable progress note.
func NewStatus(message string) *Envelope {
	data, _ := json.Marshal(StatusPayload{Message: message})
	return &Envelope{
		Type:      TypeStatus,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// NewChunk builds a chunk envelope with the given sequence number and payload.
func NewChunk(sequence int, messageType MessageType, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", messageType, err)
	}
	seq := sequence
	return &Envelope{
		Type:        TypeChunk,
		Sequence:    &seq,
		MessageType: messageType,
		Data:        data,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// NewComplete builds the terminal envelope for a successful turn. It carries
// the server assigned identifiers the client reconciles against.
func NewComplete(conversationID, messageID string, chunkCount int, degraded bool) *Envelope {
	data, _ := json.Marshal(CompletePayload{ChunkCount: chunkCount, Degraded: degraded})
	return &Envelope{
		Type:           TypeComplete,
		Data:           data,
		ConversationID: &conversationID,
		MessageID:      &messageID,
		Timestamp:      time.Now().UTC(),
	}
}

// NewError builds the terminal envelope for a failed turn. Identifiers are
// included when the partial accumulation was finalized before the failure.
func NewError(message string, conversationID, messageID *string) *Envelope {
	data, _ := json.Marshal(ErrorPayload{Message: message})
	return &Envelope{
		Type:           TypeError,
		Data:           data,
		ConversationID: conversationID,
		MessageID:      messageID,
		Timestamp:      time.Now().UTC(),
	}
}

// IsTerminal reports whether the envelope ends a stream.
func (e *Envelope) IsTerminal() bool {
	return e.Type == TypeComplete || e.Type == TypeError
}

// Encode renders the envelope as a complete SSE frame.
func (e *Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	frame := make([]byte, 0, len(DataPrefix)+len(body)+len(FrameSeparator))
	frame = append(frame, DataPrefix...)
	frame = append(frame, body...)
	frame = append(frame, FrameSeparator...)
	return frame, nil
}

// Decode parses the JSON body of a frame into an Envelope.
func Decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Type {
	case TypeStatus, TypeChunk, TypeComplete, TypeError:
	default:
		return nil, fmt.Errorf("unknown envelope type %q", env.Type)
	}
	if env.Type == TypeChunk {
		if env.Sequence == nil {
			return nil, fmt.Errorf("chunk envelope missing sequence")
		}
		if _, ok := payloadDecoders[env.MessageType]; !ok {
			return nil, fmt.Errorf("unknown message type %q", env.MessageType)
		}
	}
	return &env, nil
}
