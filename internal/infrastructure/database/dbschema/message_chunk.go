package dbschema

import (
	"time"

	"gorm.io/datatypes"

	"knowledge-assist/chat-api/internal/infrastructure/database"
	"knowledge-assist/chat-api/pkg/chatwire"
)

func init() {
	database.RegisterSchemaForAutoMigrate(MessageChunk{})
}

// MessageChunk stores one envelope of an assistant message: the streamed
// chunks plus, for a failed turn, the terminal error marker. Rows are written
// under a provisional key while streaming and re-keyed to the message public
// id when the turn finalizes. Sequence is the storage position (chunk
// sequence, or one past the last chunk for the marker); the (key, sequence)
// pair is unique so a retried append of the same row is a no-op.
type MessageChunk struct {
	BaseModel
	MessageKey   string         `gorm:"type:varchar(64);uniqueIndex:idx_chunk_key_sequence;index:idx_chunk_key;not null"`
	Sequence     int            `gorm:"uniqueIndex:idx_chunk_key_sequence;not null"`
	EnvelopeType string         `gorm:"type:varchar(16);not null;default:chunk"`
	MessageType  string         `gorm:"type:varchar(30)"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	EmittedAt    time.Time      `gorm:"not null"`
}

// NewSchemaMessageChunk creates a database schema row from an envelope. The
// caller sets env.Sequence to the storage position before appending.
func NewSchemaMessageChunk(key string, env *chatwire.Envelope) *MessageChunk {
	sequence := 0
	if env.Sequence != nil {
		sequence = *env.Sequence
	}
	return &MessageChunk{
		MessageKey:   key,
		Sequence:     sequence,
		EnvelopeType: string(env.Type),
		MessageType:  string(env.MessageType),
		Payload:      datatypes.JSON(env.Data),
		EmittedAt:    env.Timestamp,
	}
}

// EtoD converts a stored row back into the envelope that was streamed.
// Replay depends on this being an exact reconstruction, so the storage
// position is surfaced as a sequence only on chunk envelopes; error markers
// carry none on the wire.
func (c *MessageChunk) EtoD() *chatwire.Envelope {
	env := &chatwire.Envelope{
		Type:        chatwire.Type(c.EnvelopeType),
		MessageType: chatwire.MessageType(c.MessageType),
		Data:        []byte(c.Payload),
		Timestamp:   c.EmittedAt,
	}
	if env.Type == chatwire.TypeChunk {
		sequence := c.Sequence
		env.Sequence = &sequence
	}
	return env
}
