package streamclient

import (
	"errors"
	"sync"

	"knowledge-assist/chat-api/pkg/chatwire"
)

// State tracks whether a conversation has been assigned a server id yet.
type State int

const (
	// StateNew means no turn has completed; the session has no
	// conversation id and follow-up turns cannot reference one.
	StateNew State = iota
	// StateBound means the server assigned a conversation id on the first
	// completed turn; all later turns reuse it.
	StateBound
)

// ErrFeedbackUnavailable is returned when feedback is attempted before any
// assistant message id is known.
var ErrFeedbackUnavailable = errors.New("feedback requires a completed message")

// ConversationSession holds client-side conversation state across turns. It
// implements Handler so a Consumer can drive it directly.
type ConversationSession struct {
	mu             sync.Mutex
	state          State
	conversationID string
	lastMessageID  string
	lastError      string
	degraded       bool

	transcript *Transcript
	spinner    *Spinner

	// OnBound fires once when the session transitions to StateBound, after
	// the terminal envelope. Used to refresh conversation lists in the
	// background.
	OnBound func(conversationID string)
}

// NewConversationSession creates a session in StateNew.
func NewConversationSession(spinner *Spinner) *ConversationSession {
	return &ConversationSession{
		transcript: NewTranscript(),
		spinner:    spinner,
	}
}

// BeginTurn resets per-turn state. The transcript starts fresh for each
// assistant answer; conversation binding persists.
func (s *ConversationSession) BeginTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = NewTranscript()
	s.lastError = ""
	s.degraded = false
}

// OnStatus implements Handler.
func (s *ConversationSession) OnStatus(payload chatwire.StatusPayload) {
	if s.spinner != nil {
		s.spinner.UpdateMessage(payload.Message)
	}
}

// OnChunk implements Handler.
func (s *ConversationSession) OnChunk(env *chatwire.Envelope) error {
	if s.spinner != nil {
		s.spinner.Stop()
	}
	return s.transcript.Apply(env)
}

// OnComplete implements Handler.
func (s *ConversationSession) OnComplete(env *chatwire.Envelope, payload chatwire.CompletePayload) {
	if s.spinner != nil {
		s.spinner.Stop()
	}

	s.mu.Lock()
	s.degraded = payload.Degraded
	if env.MessageID != nil {
		s.lastMessageID = *env.MessageID
	}
	var bound bool
	if env.ConversationID != nil && s.state == StateNew {
		s.conversationID = *env.ConversationID
		s.state = StateBound
		bound = true
	}
	onBound := s.OnBound
	conversationID := s.conversationID
	s.mu.Unlock()

	if bound && onBound != nil {
		go onBound(conversationID)
	}
}

// OnError implements Handler. An error envelope may still carry identifiers
// when the server kept the partial answer; binding follows the same rule as
// complete.
func (s *ConversationSession) OnError(env *chatwire.Envelope, payload chatwire.ErrorPayload) {
	if s.spinner != nil {
		s.spinner.Stop()
	}

	s.mu.Lock()
	s.lastError = payload.Message
	if env.MessageID != nil {
		s.lastMessageID = *env.MessageID
	}
	var bound bool
	if env.ConversationID != nil && s.state == StateNew {
		s.conversationID = *env.ConversationID
		s.state = StateBound
		bound = true
	}
	onBound := s.OnBound
	conversationID := s.conversationID
	s.mu.Unlock()

	if bound && onBound != nil {
		go onBound(conversationID)
	}
}

// State returns the binding state.
func (s *ConversationSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConversationID returns the bound conversation id, empty in StateNew.
func (s *ConversationSession) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

// FeedbackTarget returns the message id feedback applies to. Feedback is
// only possible once a terminal envelope delivered a message id.
func (s *ConversationSession) FeedbackTarget() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastMessageID == "" {
		return "", ErrFeedbackUnavailable
	}
	return s.lastMessageID, nil
}

// Transcript returns the current turn's rendered transcript.
func (s *ConversationSession) Transcript() *Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript
}

// LastError returns the error message of the last failed turn, if any.
func (s *ConversationSession) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Degraded reports whether the last turn completed with persistence gaps.
func (s *ConversationSession) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}
