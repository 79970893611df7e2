// Package streamclient consumes the chat-api streaming protocol: it splits
// SSE frames, decodes envelopes, enforces sequence continuity, and renders
// chunk payloads into a terminal transcript. Live streams and stored replays
// go through the same rendering path.
package streamclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"knowledge-assist/chat-api/pkg/chatwire"
)

// readChunkSize is the read granularity for the SSE stream.
const readChunkSize = 4096

// ErrProtocolViolation reports a malformed or out-of-order stream.
var ErrProtocolViolation = errors.New("stream protocol violation")

// Handler receives decoded envelopes in stream order.
type Handler interface {
	OnStatus(payload chatwire.StatusPayload)
	OnChunk(env *chatwire.Envelope) error
	OnComplete(env *chatwire.Envelope, payload chatwire.CompletePayload)
	OnError(env *chatwire.Envelope, payload chatwire.ErrorPayload)
}

// Consumer decodes one envelope stream. Frames may arrive split across
// arbitrary read boundaries; partial frames are buffered until the frame
// separator arrives.
type Consumer struct {
	r       io.Reader
	buf     bytes.Buffer
	nextSeq int

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewConsumer wraps a raw SSE byte stream.
func NewConsumer(r io.Reader) *Consumer {
	return &Consumer{r: r, stopped: make(chan struct{})}
}

// Stop closes the read loop. When the underlying reader is an io.Closer it
// is closed too, unblocking a pending read. Safe to call any number of times
// from any goroutine, including after Consume already returned.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
		if closer, ok := c.r.(io.Closer); ok {
			closer.Close()
		}
	})
}

func (c *Consumer) isStopped() bool {
	select {
	case <-c.stopped:
		return true
	default:
		return false
	}
}

// Consume reads envelopes until the terminal envelope, dispatching each to
// the handler. A stream that ends without a terminal envelope, skips a
// sequence number, or carries an undecodable frame is a protocol violation.
// A stream cut short by Stop is not: Consume returns nil.
func (c *Consumer) Consume(handler Handler) error {
	chunk := make([]byte, readChunkSize)
	for {
		if c.isStopped() {
			return nil
		}
		n, readErr := c.r.Read(chunk)
		if n > 0 {
			c.buf.Write(chunk[:n])
			done, err := c.drainFrames(handler)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
		if readErr != nil {
			if c.isStopped() {
				return nil
			}
			if errors.Is(readErr, io.EOF) {
				return fmt.Errorf("%w: stream ended without a terminal envelope", ErrProtocolViolation)
			}
			return readErr
		}
	}
}

// drainFrames dispatches every complete frame currently buffered. Returns
// true once the terminal envelope has been handled.
func (c *Consumer) drainFrames(handler Handler) (bool, error) {
	for {
		raw := c.buf.Bytes()
		idx := bytes.Index(raw, []byte(chatwire.FrameSeparator))
		if idx < 0 {
			return false, nil
		}

		frame := make([]byte, idx)
		copy(frame, raw[:idx])
		c.buf.Next(idx + len(chatwire.FrameSeparator))

		frame = bytes.TrimSpace(frame)
		if len(frame) == 0 {
			continue
		}

		body, ok := bytes.CutPrefix(frame, []byte(chatwire.DataPrefix))
		if !ok {
			return false, fmt.Errorf("%w: frame missing data prefix", ErrProtocolViolation)
		}

		env, err := chatwire.Decode(body)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrProtocolViolation, err)
		}

		done, err := c.dispatch(handler, env)
		if err != nil || done {
			return done, err
		}
	}
}

func (c *Consumer) dispatch(handler Handler, env *chatwire.Envelope) (bool, error) {
	switch env.Type {
	case chatwire.TypeStatus:
		payload, err := chatwire.DecodeStatus(env.Data)
		if err != nil {
			return false, fmt.Errorf("%w: status payload: %v", ErrProtocolViolation, err)
		}
		handler.OnStatus(payload)
		return false, nil

	case chatwire.TypeChunk:
		if *env.Sequence != c.nextSeq {
			return false, fmt.Errorf("%w: expected sequence %d, got %d", ErrProtocolViolation, c.nextSeq, *env.Sequence)
		}
		c.nextSeq++
		if err := handler.OnChunk(env); err != nil {
			return false, err
		}
		return false, nil

	case chatwire.TypeComplete:
		payload, err := chatwire.DecodeComplete(env.Data)
		if err != nil {
			return false, fmt.Errorf("%w: complete payload: %v", ErrProtocolViolation, err)
		}
		handler.OnComplete(env, payload)
		return true, nil

	case chatwire.TypeError:
		payload, err := chatwire.DecodeError(env.Data)
		if err != nil {
			return false, fmt.Errorf("%w: error payload: %v", ErrProtocolViolation, err)
		}
		handler.OnError(env, payload)
		return true, nil
	}
	return false, fmt.Errorf("%w: unknown envelope type %q", ErrProtocolViolation, env.Type)
}
