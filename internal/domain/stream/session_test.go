package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assist/chat-api/internal/domain"
	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/infrastructure/engine"
	"knowledge-assist/chat-api/pkg/chatwire"
)

type fakeEngine struct {
	events []json.RawMessage
	err    error
	// callErr makes Stream itself fail
	callErr error
	calls   int
}

func (f *fakeEngine) Stream(ctx context.Context, req engine.StreamRequest) (<-chan json.RawMessage, <-chan error, error) {
	f.calls++
	if f.callErr != nil {
		return nil, nil, f.callErr
	}
	events := make(chan json.RawMessage, len(f.events))
	errs := make(chan error, 1)
	for _, ev := range f.events {
		events <- ev
	}
	if f.err != nil {
		errs <- f.err
	} else {
		close(events)
	}
	return events, errs, nil
}

type fakeFinalizer struct {
	result *conversation.FinalizeTurnResult
	err    error
	calls  int
	order  *[]string
}

func (f *fakeFinalizer) FinalizeTurn(ctx context.Context, principal domain.Principal, existingConversationID *string, userMessage, assistantContent, provisionalKey string) (*conversation.FinalizeTurnResult, error) {
	f.calls++
	if f.order != nil {
		*f.order = append(*f.order, "finalize")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeChunks struct {
	appended []*chatwire.Envelope
	err      error
	order    *[]string
}

func (f *fakeChunks) Append(ctx context.Context, key string, env *chatwire.Envelope) error {
	if f.order != nil {
		*f.order = append(*f.order, fmt.Sprintf("store:%d", *env.Sequence))
	}
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, env)
	return nil
}

func (f *fakeChunks) Read(ctx context.Context, messageID string) ([]*chatwire.Envelope, error) {
	return nil, nil
}

func (f *fakeChunks) DeleteProvisionalOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

type fakeWire struct {
	written []*chatwire.Envelope
	failAt  int // fail on the nth write (1-based), 0 never fails
	order   *[]string
}

func (f *fakeWire) Write(env *chatwire.Envelope) error {
	if f.order != nil && env.Type == chatwire.TypeChunk {
		*f.order = append(*f.order, fmt.Sprintf("wire:%d", *env.Sequence))
	}
	if f.failAt > 0 && len(f.written)+1 >= f.failAt {
		return errors.New("client gone")
	}
	f.written = append(f.written, env)
	return nil
}

func textEvent(content string, final bool) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"delta":{"content":%q,"final":%t}}`, content, final))
}

func testParams() Params {
	return Params{
		Principal:      domain.Principal{ID: "user_1"},
		Message:        "how did we do last quarter",
		ProvisionalKey: "prov_abc123",
	}
}

func TestSessionRunHappyPath(t *testing.T) {
	eng := &fakeEngine{events: []json.RawMessage{
		textEvent("Revenue", false),
		textEvent("Revenue grew 12%", true),
	}}
	finalizer := &fakeFinalizer{result: &conversation.FinalizeTurnResult{
		ConversationID: "conv_x", MessageID: "msg_y",
	}}
	chunks := &fakeChunks{}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	err := session.Run(context.Background(), wire, testParams())
	require.NoError(t, err)

	require.Len(t, wire.written, 4) // status, 2 chunks, complete
	assert.Equal(t, chatwire.TypeStatus, wire.written[0].Type)
	assert.Equal(t, chatwire.TypeChunk, wire.written[1].Type)
	assert.Equal(t, chatwire.TypeChunk, wire.written[2].Type)

	terminal := wire.written[3]
	assert.Equal(t, chatwire.TypeComplete, terminal.Type)
	require.NotNil(t, terminal.ConversationID)
	assert.Equal(t, "conv_x", *terminal.ConversationID)
	require.NotNil(t, terminal.MessageID)
	assert.Equal(t, "msg_y", *terminal.MessageID)

	payload, err := chatwire.DecodeComplete(terminal.Data)
	require.NoError(t, err)
	assert.Equal(t, 2, payload.ChunkCount)
	assert.False(t, payload.Degraded)

	assert.Len(t, chunks.appended, 2)
	assert.Equal(t, 1, finalizer.calls)
	assert.Equal(t, 1, eng.calls)
}

func TestSessionWiresBeforeStoringAndFinalizesLast(t *testing.T) {
	var order []string
	eng := &fakeEngine{events: []json.RawMessage{
		textEvent("a", false),
		textEvent("ab", true),
	}}
	finalizer := &fakeFinalizer{
		result: &conversation.FinalizeTurnResult{ConversationID: "conv_x", MessageID: "msg_y"},
		order:  &order,
	}
	chunks := &fakeChunks{order: &order}
	wire := &fakeWire{order: &order}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	require.NoError(t, session.Run(context.Background(), wire, testParams()))

	assert.Equal(t, []string{"wire:0", "store:0", "wire:1", "store:1", "finalize"}, order)
}

func TestSessionEngineFailureMidStreamKeepsPartial(t *testing.T) {
	eng := &fakeEngine{
		events: []json.RawMessage{
			textEvent("a", false),
			textEvent("ab", false),
			textEvent("abc", false),
		},
		err: errors.New("engine crashed"),
	}
	finalizer := &fakeFinalizer{result: &conversation.FinalizeTurnResult{
		ConversationID: "conv_x", MessageID: "msg_y",
	}}
	chunks := &fakeChunks{}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	err := session.Run(context.Background(), wire, testParams())
	require.Error(t, err)

	// All buffered chunks were drained and persisted before the error, and
	// a terminal error marker landed after the last chunk.
	require.Len(t, chunks.appended, 4)
	for _, env := range chunks.appended[:3] {
		assert.Equal(t, chatwire.TypeChunk, env.Type)
	}
	marker := chunks.appended[3]
	assert.Equal(t, chatwire.TypeError, marker.Type)
	require.NotNil(t, marker.Sequence)
	assert.Equal(t, 3, *marker.Sequence)
	assert.Equal(t, 1, finalizer.calls)

	terminal := wire.written[len(wire.written)-1]
	assert.Equal(t, chatwire.TypeError, terminal.Type)
	require.NotNil(t, terminal.ConversationID)
	assert.Equal(t, "conv_x", *terminal.ConversationID)
	require.NotNil(t, terminal.MessageID)
	assert.Equal(t, "msg_y", *terminal.MessageID)
}

func TestSessionAppendsErrorMarkerBeforeFinalizing(t *testing.T) {
	var order []string
	eng := &fakeEngine{
		events: []json.RawMessage{
			textEvent("a", false),
			textEvent("ab", false),
		},
		err: errors.New("engine crashed"),
	}
	finalizer := &fakeFinalizer{
		result: &conversation.FinalizeTurnResult{ConversationID: "conv_x", MessageID: "msg_y"},
		order:  &order,
	}
	chunks := &fakeChunks{order: &order}
	wire := &fakeWire{order: &order}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	require.Error(t, session.Run(context.Background(), wire, testParams()))

	// The marker is stored before the turn is finalized so the finalize
	// re-key covers it.
	assert.Equal(t, []string{"wire:0", "store:0", "wire:1", "store:1", "store:2", "finalize"}, order)
}

func TestSessionInBandEngineError(t *testing.T) {
	eng := &fakeEngine{events: []json.RawMessage{
		textEvent("a", false),
		textEvent("ab", false),
		json.RawMessage(`{"error":{"message":"engine exploded"}}`),
	}}
	finalizer := &fakeFinalizer{result: &conversation.FinalizeTurnResult{
		ConversationID: "conv_x", MessageID: "msg_y",
	}}
	chunks := &fakeChunks{}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	err := session.Run(context.Background(), wire, testParams())
	require.ErrorIs(t, err, ErrEngineFailure)

	// Both chunks plus the marker are durable and the partial answer was
	// finalized.
	require.Len(t, chunks.appended, 3)
	assert.Equal(t, chatwire.TypeError, chunks.appended[2].Type)
	assert.Equal(t, 1, finalizer.calls)

	terminal := wire.written[len(wire.written)-1]
	require.Equal(t, chatwire.TypeError, terminal.Type)
	payload, decodeErr := chatwire.DecodeError(terminal.Data)
	require.NoError(t, decodeErr)
	assert.Equal(t, "engine exploded", payload.Message)
	require.NotNil(t, terminal.ConversationID)
	assert.Equal(t, "conv_x", *terminal.ConversationID)
	require.NotNil(t, terminal.MessageID)
	assert.Equal(t, "msg_y", *terminal.MessageID)
}

func TestSessionInBandErrorBeforeAnyChunkSkipsMarker(t *testing.T) {
	eng := &fakeEngine{events: []json.RawMessage{
		json.RawMessage(`{"error":{"message":"bad request"}}`),
	}}
	finalizer := &fakeFinalizer{result: &conversation.FinalizeTurnResult{}}
	chunks := &fakeChunks{}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	err := session.Run(context.Background(), wire, testParams())
	require.ErrorIs(t, err, ErrEngineFailure)

	assert.Empty(t, chunks.appended)
	assert.Equal(t, 0, finalizer.calls)

	terminal := wire.written[len(wire.written)-1]
	assert.Equal(t, chatwire.TypeError, terminal.Type)
	assert.Nil(t, terminal.ConversationID)
}

func TestSessionEngineFailureBeforeAnyChunk(t *testing.T) {
	eng := &fakeEngine{err: errors.New("engine crashed")}
	finalizer := &fakeFinalizer{result: &conversation.FinalizeTurnResult{}}
	chunks := &fakeChunks{}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	err := session.Run(context.Background(), wire, testParams())
	require.Error(t, err)

	// Nothing to keep, so nothing is finalized.
	assert.Equal(t, 0, finalizer.calls)

	terminal := wire.written[len(wire.written)-1]
	assert.Equal(t, chatwire.TypeError, terminal.Type)
	assert.Nil(t, terminal.ConversationID)
	assert.Nil(t, terminal.MessageID)
}

func TestSessionEngineInvocationFailure(t *testing.T) {
	eng := &fakeEngine{callErr: errors.New("connection refused")}
	finalizer := &fakeFinalizer{}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, &fakeChunks{}, zerolog.Nop())
	err := session.Run(context.Background(), wire, testParams())
	require.Error(t, err)

	terminal := wire.written[len(wire.written)-1]
	assert.Equal(t, chatwire.TypeError, terminal.Type)
	assert.Equal(t, 0, finalizer.calls)
}

func TestSessionPersistenceFailureDegradesButCompletes(t *testing.T) {
	eng := &fakeEngine{events: []json.RawMessage{textEvent("hi", true)}}
	finalizer := &fakeFinalizer{result: &conversation.FinalizeTurnResult{
		ConversationID: "conv_x", MessageID: "msg_y",
	}}
	chunks := &fakeChunks{err: errors.New("db down")}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	require.NoError(t, session.Run(context.Background(), wire, testParams()))

	terminal := wire.written[len(wire.written)-1]
	require.Equal(t, chatwire.TypeComplete, terminal.Type)
	payload, err := chatwire.DecodeComplete(terminal.Data)
	require.NoError(t, err)
	assert.True(t, payload.Degraded)
}

func TestSessionRunsToCompletionAfterWireBreaks(t *testing.T) {
	eng := &fakeEngine{events: []json.RawMessage{
		textEvent("a", false),
		textEvent("ab", true),
	}}
	finalizer := &fakeFinalizer{result: &conversation.FinalizeTurnResult{
		ConversationID: "conv_x", MessageID: "msg_y",
	}}
	chunks := &fakeChunks{}
	wire := &fakeWire{failAt: 2} // first chunk write fails

	session := NewSession(eng, finalizer, chunks, zerolog.Nop())
	require.NoError(t, session.Run(context.Background(), wire, testParams()))

	// Only the status made it out, but every chunk was persisted and the
	// turn finalized.
	assert.Len(t, wire.written, 1)
	assert.Len(t, chunks.appended, 2)
	assert.Equal(t, 1, finalizer.calls)
}

func TestSessionFinalizeFailureEmitsError(t *testing.T) {
	eng := &fakeEngine{events: []json.RawMessage{textEvent("hi", true)}}
	finalizer := &fakeFinalizer{err: errors.New("tx failed")}
	wire := &fakeWire{}

	session := NewSession(eng, finalizer, &fakeChunks{}, zerolog.Nop())
	err := session.Run(context.Background(), wire, testParams())
	require.Error(t, err)

	terminal := wire.written[len(wire.written)-1]
	assert.Equal(t, chatwire.TypeError, terminal.Type)
}
