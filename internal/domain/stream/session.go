package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain"
	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/infrastructure/engine"
	"knowledge-assist/chat-api/pkg/chatwire"
)

const (
	openingStatus      = "Analyzing your question..."
	interruptedMessage = "the response was interrupted"
)

// ErrEngineFailure is returned when the engine reports a failure in-band,
// as an error record on the event stream rather than a transport error.
var ErrEngineFailure = errors.New("engine reported a failure")

// Wire delivers envelopes to the connected client. Implementations are
// expected to tolerate client disconnects; a returned error means this
// session will stop writing but keeps streaming and persisting.
type Wire interface {
	Write(env *chatwire.Envelope) error
}

// EngineStreamer is the single upstream invocation a session makes.
type EngineStreamer interface {
	Stream(ctx context.Context, req engine.StreamRequest) (<-chan json.RawMessage, <-chan error, error)
}

// Finalizer makes a completed turn durable and visible.
type Finalizer interface {
	FinalizeTurn(ctx context.Context, principal domain.Principal, existingConversationID *string, userMessage, assistantContent, provisionalKey string) (*conversation.FinalizeTurnResult, error)
}

// Session drives one streaming turn: invoke the engine once, transform each
// raw event, write it to the wire before persisting it, then finalize and
// emit exactly one terminal envelope. The session lives for the turn and is
// not reused.
type Session struct {
	engine      EngineStreamer
	finalizer   Finalizer
	chunks      conversation.ChunkStore
	transformer *Transformer
	logger      zerolog.Logger

	wireBroken bool
	degraded   bool
	finalText  string
}

// Params carry the request-scoped inputs of a session.
type Params struct {
	Principal      domain.Principal
	Message        string
	ConversationID *string
	ProvisionalKey string
}

// NewSession builds a session for one turn.
func NewSession(engineClient EngineStreamer, finalizer Finalizer, chunks conversation.ChunkStore, logger zerolog.Logger) *Session {
	return &Session{
		engine:      engineClient,
		finalizer:   finalizer,
		chunks:      chunks,
		transformer: NewTransformer(logger),
		logger:      logger,
	}
}

// Run executes the turn to completion. The context must not be tied to the
// client connection: a disconnect stops wire writes, never the turn.
func (s *Session) Run(ctx context.Context, wire Wire, p Params) error {
	s.write(wire, chatwire.NewStatus(openingStatus))

	req := engine.StreamRequest{Message: p.Message}
	if p.ConversationID != nil {
		req.ConversationID = *p.ConversationID
	}

	events, errs, err := s.engine.Stream(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Msg("engine invocation failed")
		s.write(wire, chatwire.NewError("the answer engine is unavailable", nil, nil))
		return err
	}

	for {
		select {
		case raw, ok := <-events:
			if !ok {
				return s.complete(ctx, wire, p)
			}
			if errEnv := s.handleEvent(ctx, wire, p, raw); errEnv != nil {
				message := errorMessageOf(errEnv)
				return s.fail(ctx, wire, p, message, fmt.Errorf("%w: %s", ErrEngineFailure, message))
			}

		case streamErr, ok := <-errs:
			if !ok || streamErr == nil {
				continue
			}
			// Chunks already emitted by the engine are kept even when the
			// stream dies; drain whatever is buffered before failing.
			if errEnv := s.drainEvents(ctx, wire, p, events); errEnv != nil {
				return s.fail(ctx, wire, p, errorMessageOf(errEnv), streamErr)
			}
			return s.fail(ctx, wire, p, interruptedMessage, streamErr)
		}
	}
}

// drainEvents consumes whatever events are still buffered. It stops at the
// first in-band error envelope and returns it, nil otherwise.
func (s *Session) drainEvents(ctx context.Context, wire Wire, p Params, events <-chan json.RawMessage) *chatwire.Envelope {
	for {
		select {
		case raw, ok := <-events:
			if !ok {
				return nil
			}
			if errEnv := s.handleEvent(ctx, wire, p, raw); errEnv != nil {
				return errEnv
			}
		default:
			return nil
		}
	}
}

// handleEvent transforms and dispatches one raw record. Chunk envelopes are
// wired then stored here; an in-band error envelope is returned untouched
// for the caller to run the failure path.
func (s *Session) handleEvent(ctx context.Context, wire Wire, p Params, raw json.RawMessage) *chatwire.Envelope {
	env := s.transformer.Transform(raw)
	if env == nil {
		return nil
	}
	if env.Type == chatwire.TypeError {
		return env
	}

	if env.MessageType == chatwire.MessageTypeText {
		var text chatwire.TextPayload
		if err := json.Unmarshal(env.Data, &text); err == nil {
			s.finalText = text.Content
		}
	}

	// Wire before store: the client sees a chunk no later than it becomes
	// durable.
	s.write(wire, env)

	if err := s.chunks.Append(ctx, p.ProvisionalKey, env); err != nil {
		s.degraded = true
		s.logger.Warn().Err(err).
			Str("provisional_key", p.ProvisionalKey).
			Int("sequence", *env.Sequence).
			Msg("chunk persistence failed, continuing stream")
	}
	return nil
}

func (s *Session) complete(ctx context.Context, wire Wire, p Params) error {
	result, err := s.finalizer.FinalizeTurn(ctx, p.Principal, p.ConversationID, p.Message, s.finalText, p.ProvisionalKey)
	if err != nil {
		s.logger.Error().Err(err).Str("provisional_key", p.ProvisionalKey).Msg("finalize turn failed")
		s.write(wire, chatwire.NewError("failed to save the response", nil, nil))
		return err
	}

	s.write(wire, chatwire.NewComplete(result.ConversationID, result.MessageID, s.transformer.ChunkCount(), s.degraded))
	return nil
}

// fail handles an upstream failure mid-stream: chunks already persisted are
// kept, a terminal error marker is appended so a replay shows the turn
// failed, the partial answer is finalized, then the single terminal error
// envelope goes out.
func (s *Session) fail(ctx context.Context, wire Wire, p Params, message string, streamErr error) error {
	s.logger.Error().Err(streamErr).Str("provisional_key", p.ProvisionalKey).Msg("engine stream failed")

	var conversationID, messageID *string
	if s.transformer.ChunkCount() > 0 {
		s.appendErrorMarker(ctx, p, message)
		result, err := s.finalizer.FinalizeTurn(ctx, p.Principal, p.ConversationID, p.Message, s.finalText, p.ProvisionalKey)
		if err != nil {
			s.logger.Error().Err(err).Msg("finalize partial turn failed")
		} else {
			conversationID = &result.ConversationID
			messageID = &result.MessageID
		}
	}

	s.write(wire, chatwire.NewError(message, conversationID, messageID))
	return streamErr
}

// appendErrorMarker stores the terminal error envelope after the last chunk,
// so the persisted accumulation reads chunks-then-marker. The marker takes
// the storage position one past the last chunk; the position is stripped
// again on read since error envelopes carry no sequence on the wire.
func (s *Session) appendErrorMarker(ctx context.Context, p Params, message string) {
	marker := chatwire.NewError(message, nil, nil)
	position := s.transformer.ChunkCount()
	marker.Sequence = &position
	if err := s.chunks.Append(ctx, p.ProvisionalKey, marker); err != nil {
		s.logger.Warn().Err(err).
			Str("provisional_key", p.ProvisionalKey).
			Msg("error marker persistence failed")
	}
}

func errorMessageOf(env *chatwire.Envelope) string {
	payload, err := chatwire.DecodeError(env.Data)
	if err != nil || payload.Message == "" {
		return interruptedMessage
	}
	return payload.Message
}

func (s *Session) write(wire Wire, env *chatwire.Envelope) {
	if s.wireBroken {
		return
	}
	if err := wire.Write(env); err != nil {
		s.wireBroken = true
		s.logger.Warn().Err(err).Msg("wire write failed, discarding further client output")
	}
}
