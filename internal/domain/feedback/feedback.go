package feedback

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain"
	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
)

// CommentMaxLength bounds the free text comment.
const CommentMaxLength = 255

// Feedback is one user's verdict on one assistant message. A message starts
// with no feedback and can receive at most one.
type Feedback struct {
	ID              uint
	MessagePublicID string
	UserID          string
	IsPositive      bool
	Comment         *string
	CreatedAt       time.Time
}

// Repository persists feedback records.
type Repository interface {
	Create(ctx context.Context, fb *Feedback) error
	ExistsForMessage(ctx context.Context, userID, messagePublicID string) (bool, error)
	GetForMessage(ctx context.Context, userID, messagePublicID string) (*Feedback, error)
}

// Service validates and records feedback.
type Service struct {
	repo   Repository
	conv   conversation.Repository
	logger zerolog.Logger
}

// NewService builds a feedback service.
func NewService(repo Repository, conv conversation.Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, conv: conv, logger: logger}
}

// Submit records feedback on an assistant message. The message must exist,
// belong to the caller, and carry no prior feedback. Negative feedback
// requires a comment; comments are capped at 255 characters.
func (s *Service) Submit(ctx context.Context, principal domain.Principal, messagePublicID string, isPositive bool, comment *string) (*Feedback, error) {
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			if len(trimmed) > CommentMaxLength {
				return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
					"feedback comment exceeds 255 characters", nil, "5f4d9c7e-6a1b-48d2-93e0-7cfd2b9ab201")
			}
			comment = &trimmed
		}
	}
	if !isPositive && comment == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"negative feedback requires a comment", nil, "1e8c03b2-4b7f-4f6a-8f8e-a95c3d7cc202")
	}

	msg, err := s.conv.GetMessage(ctx, principal.ID, messagePublicID)
	if err != nil {
		return nil, err
	}
	if msg.Role != conversation.RoleAssistant {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"feedback applies to assistant messages only", nil, "8a2f61d4-0c3e-49b1-b0d7-44e1f2a3c203")
	}

	exists, err := s.repo.ExistsForMessage(ctx, principal.ID, messagePublicID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
			"feedback already submitted for this message", nil, "3b7e95c8-12da-4f0b-9c44-6fd08b1ce204")
	}

	fb := &Feedback{
		MessagePublicID: messagePublicID,
		UserID:          principal.ID,
		IsPositive:      isPositive,
		Comment:         comment,
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("message_id", messagePublicID).
		Bool("is_positive", isPositive).
		Msg("feedback recorded")
	return fb, nil
}
