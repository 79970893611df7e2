package streamclient

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge-assist/chat-api/pkg/chatwire"
)

// recordingHandler collects everything dispatched by a Consumer.
type recordingHandler struct {
	statuses  []chatwire.StatusPayload
	chunks    []*chatwire.Envelope
	chunkErr  error
	completes []chatwire.CompletePayload
	errs      []chatwire.ErrorPayload
}

func (h *recordingHandler) OnStatus(payload chatwire.StatusPayload) {
	h.statuses = append(h.statuses, payload)
}

func (h *recordingHandler) OnChunk(env *chatwire.Envelope) error {
	if h.chunkErr != nil {
		return h.chunkErr
	}
	h.chunks = append(h.chunks, env)
	return nil
}

func (h *recordingHandler) OnComplete(env *chatwire.Envelope, payload chatwire.CompletePayload) {
	h.completes = append(h.completes, payload)
}

func (h *recordingHandler) OnError(env *chatwire.Envelope, payload chatwire.ErrorPayload) {
	h.errs = append(h.errs, payload)
}

// dribbleReader returns at most n bytes per Read, forcing frames to split
// across read boundaries.
type dribbleReader struct {
	data []byte
	n    int
}

func (d *dribbleReader) Read(p []byte) (int, error) {
	if len(d.data) == 0 {
		return 0, io.EOF
	}
	n := d.n
	if n > len(d.data) {
		n = len(d.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, d.data[:n])
	d.data = d.data[n:]
	return n, nil
}

func encodeFrames(t *testing.T, envelopes ...*chatwire.Envelope) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, env := range envelopes {
		frame, err := env.Encode()
		require.NoError(t, err)
		buf.Write(frame)
	}
	return buf.Bytes()
}

func textChunk(t *testing.T, seq int, content string, final bool) *chatwire.Envelope {
	t.Helper()
	env, err := chatwire.NewChunk(seq, chatwire.MessageTypeText, chatwire.TextPayload{Content: content, IsFinal: final})
	require.NoError(t, err)
	return env
}

func TestConsumeFullStream(t *testing.T) {
	stream := encodeFrames(t,
		chatwire.NewStatus("Analyzing your question..."),
		textChunk(t, 0, "Rev", false),
		textChunk(t, 1, "Revenue grew", true),
		chatwire.NewComplete("conv_1", "msg_1", 2, false),
	)

	handler := &recordingHandler{}
	err := NewConsumer(bytes.NewReader(stream)).Consume(handler)
	require.NoError(t, err)

	require.Len(t, handler.statuses, 1)
	assert.Equal(t, "Analyzing your question...", handler.statuses[0].Message)
	require.Len(t, handler.chunks, 2)
	assert.Equal(t, 0, *handler.chunks[0].Sequence)
	assert.Equal(t, 1, *handler.chunks[1].Sequence)
	require.Len(t, handler.completes, 1)
	assert.Equal(t, 2, handler.completes[0].ChunkCount)
}

func TestConsumeFramesSplitAcrossReads(t *testing.T) {
	stream := encodeFrames(t,
		textChunk(t, 0, "partial frame handling", true),
		chatwire.NewComplete("conv_1", "msg_1", 1, false),
	)

	// One byte per read is the worst case: every frame arrives in pieces.
	handler := &recordingHandler{}
	err := NewConsumer(&dribbleReader{data: stream, n: 1}).Consume(handler)
	require.NoError(t, err)

	require.Len(t, handler.chunks, 1)
	require.Len(t, handler.completes, 1)
}

func TestConsumeSequenceGapIsViolation(t *testing.T) {
	stream := encodeFrames(t,
		textChunk(t, 0, "a", false),
		textChunk(t, 2, "skipped one", true),
	)

	err := NewConsumer(bytes.NewReader(stream)).Consume(&recordingHandler{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestConsumeEOFWithoutTerminalIsViolation(t *testing.T) {
	stream := encodeFrames(t, textChunk(t, 0, "cut off", false))

	handler := &recordingHandler{}
	err := NewConsumer(bytes.NewReader(stream)).Consume(handler)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolViolation)
	// The chunk before the cut was still delivered.
	assert.Len(t, handler.chunks, 1)
}

func TestConsumeStopsAtErrorEnvelope(t *testing.T) {
	conversationID, messageID := "conv_1", "msg_1"
	stream := encodeFrames(t,
		textChunk(t, 0, "partial", false),
		chatwire.NewError("the response was interrupted", &conversationID, &messageID),
	)

	handler := &recordingHandler{}
	err := NewConsumer(bytes.NewReader(stream)).Consume(handler)
	require.NoError(t, err)
	require.Len(t, handler.errs, 1)
	assert.Equal(t, "the response was interrupted", handler.errs[0].Message)
}

func TestConsumeRejectsMalformedFrame(t *testing.T) {
	stream := []byte("data: {not json}\n\n")

	err := NewConsumer(bytes.NewReader(stream)).Consume(&recordingHandler{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestConsumeRejectsMissingDataPrefix(t *testing.T) {
	stream := []byte("event: chunk\n\n")

	err := NewConsumer(bytes.NewReader(stream)).Consume(&recordingHandler{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocolViolation)
}

func TestConsumerStopUnblocksPendingRead(t *testing.T) {
	pr, pw := io.Pipe()
	consumer := NewConsumer(pr)

	handler := &recordingHandler{}
	done := make(chan error, 1)
	go func() {
		done <- consumer.Consume(handler)
	}()

	// Deliver one chunk, then stop while Consume is blocked on the next read.
	frame := encodeFrames(t, textChunk(t, 0, "partial", false))
	_, err := pw.Write(frame)
	require.NoError(t, err)

	consumer.Stop()

	require.NoError(t, <-done)
	assert.Len(t, handler.chunks, 1)

	// Stop closed the underlying reader, so the writer side is gone too.
	_, err = pw.Write([]byte("data: more\n\n"))
	assert.Error(t, err)
}

func TestConsumerStopIsIdempotent(t *testing.T) {
	stream := encodeFrames(t,
		textChunk(t, 0, "x", true),
		chatwire.NewComplete("conv_1", "msg_1", 1, false),
	)

	consumer := NewConsumer(bytes.NewReader(stream))
	require.NoError(t, consumer.Consume(&recordingHandler{}))

	// Stopping after completion, repeatedly, is a no-op.
	consumer.Stop()
	consumer.Stop()
}

func TestConsumeReturnsNilWhenStoppedBeforeReading(t *testing.T) {
	stream := encodeFrames(t, textChunk(t, 0, "never seen", false))
	consumer := NewConsumer(bytes.NewReader(stream))
	consumer.Stop()

	handler := &recordingHandler{}
	require.NoError(t, consumer.Consume(handler))
	assert.Empty(t, handler.chunks)
}

func TestConsumePropagatesHandlerError(t *testing.T) {
	stream := encodeFrames(t,
		textChunk(t, 0, "x", true),
		chatwire.NewComplete("conv_1", "msg_1", 1, false),
	)

	handler := &recordingHandler{chunkErr: assert.AnError}
	err := NewConsumer(bytes.NewReader(stream)).Consume(handler)
	assert.ErrorIs(t, err, assert.AnError)
}
