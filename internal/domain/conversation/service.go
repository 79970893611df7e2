package conversation

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain"
	"knowledge-assist/chat-api/internal/utils/idgen"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
	"knowledge-assist/chat-api/pkg/chatwire"
)

const (
	publicIDLength = 16

	titleMaxLength     = 50
	titleMinBreakPoint = 25
	defaultTitle       = "New Conversation"
)

// Service exposes conversation reads and the finalize step of a streaming
// turn.
type Service struct {
	repo   Repository
	chunks ChunkStore
	logger zerolog.Logger
}

// NewService builds a conversation service.
func NewService(repo Repository, chunks ChunkStore, logger zerolog.Logger) *Service {
	return &Service{repo: repo, chunks: chunks, logger: logger}
}

// ListConversations returns the caller's conversations, newest first.
func (s *Service) ListConversations(ctx context.Context, principal domain.Principal) ([]*Conversation, error) {
	return s.repo.ListByUser(ctx, principal.ID)
}

// GetConversation returns one conversation with its messages.
func (s *Service) GetConversation(ctx context.Context, principal domain.Principal, publicID string) (*Conversation, error) {
	return s.repo.GetByPublicID(ctx, principal.ID, publicID)
}

// ReplayMessage returns the stored chunk envelopes of an assistant message
// in their original order. The caller must own the message.
func (s *Service) ReplayMessage(ctx context.Context, principal domain.Principal, messagePublicID string) ([]*chatwire.Envelope, error) {
	msg, err := s.repo.GetMessage(ctx, principal.ID, messagePublicID)
	if err != nil {
		return nil, err
	}
	if msg.Role != RoleAssistant {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"only assistant messages have stored chunks", nil, "c2b4f1aa-2e9d-4f83-9a51-58f9c02e1c10")
	}
	return s.chunks.Read(ctx, messagePublicID)
}

// NewProvisionalKey allocates the accumulation key for a streaming turn.
// Every attempt gets a fresh key; a retried question never reuses one.
func (s *Service) NewProvisionalKey() (string, error) {
	return idgen.GenerateSecureID("prov", publicIDLength)
}

// FinalizeTurn persists a completed turn and returns the assigned
// identifiers. For an opening turn the conversation is created here, titled
// from the user's message.
func (s *Service) FinalizeTurn(ctx context.Context, principal domain.Principal, existingConversationID *string, userMessage, assistantContent, provisionalKey string) (*FinalizeTurnResult, error) {
	userMessageID, err := idgen.GenerateSecureID("msg", publicIDLength)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "generate user message id")
	}
	assistantMessageID, err := idgen.GenerateSecureID("msg", publicIDLength)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "generate assistant message id")
	}

	params := FinalizeTurnParams{
		UserID:                 principal.ID,
		ExistingConversationID: existingConversationID,
		UserMessageID:          userMessageID,
		UserMessage:            userMessage,
		AssistantMessageID:     assistantMessageID,
		AssistantContent:       assistantContent,
		ProvisionalKey:         provisionalKey,
	}
	if existingConversationID == nil {
		newID, err := idgen.GenerateSecureID("conv", publicIDLength)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "generate conversation id")
		}
		params.NewConversationID = newID
		params.Title = GenerateTitle(userMessage)
	}

	return s.repo.FinalizeTurn(ctx, params)
}

// GenerateTitle derives a conversation title from the first user message:
// at most 50 characters, truncated at a word boundary when one falls late
// enough, with an ellipsis suffix.
func GenerateTitle(message string) string {
	title := strings.TrimSpace(message)
	if title == "" {
		return defaultTitle
	}
	if len(title) <= titleMaxLength {
		return title
	}

	truncated := title[:titleMaxLength]
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > titleMinBreakPoint {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
