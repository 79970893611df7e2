package conversationrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/infrastructure/database/dbschema"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
)

type ConversationGormRepository struct {
	db *gorm.DB
}

var _ conversation.Repository = (*ConversationGormRepository)(nil)

func NewConversationGormRepository(db *gorm.DB) conversation.Repository {
	return &ConversationGormRepository{db: db}
}

// ListByUser implements conversation.Repository.
func (repo *ConversationGormRepository) ListByUser(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	var rows []dbschema.Conversation
	err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to list conversations")
	}

	result := make([]*conversation.Conversation, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].EtoD())
	}
	return result, nil
}

// GetByPublicID implements conversation.Repository. Messages are loaded in
// creation order so the transcript reads top to bottom.
func (repo *ConversationGormRepository) GetByPublicID(ctx context.Context, userID, publicID string) (*conversation.Conversation, error) {
	var row dbschema.Conversation
	err := repo.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Where("user_id = ? AND public_id = ?", userID, publicID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"conversation not found", err, "7c1e4f2a-9d3b-4a60-8e15-0bf62c8da301")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to get conversation")
	}
	return row.EtoD(), nil
}

// GetMessage implements conversation.Repository. The join through the
// conversation row enforces ownership.
func (repo *ConversationGormRepository) GetMessage(ctx context.Context, userID, messagePublicID string) (*conversation.Message, error) {
	var row dbschema.Message
	err := repo.db.WithContext(ctx).
		Joins("JOIN chat_api.conversations ON chat_api.conversations.id = chat_api.messages.conversation_id").
		Where("chat_api.messages.public_id = ? AND chat_api.conversations.user_id = ?", messagePublicID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"message not found", err, "2d8a6b3f-1c5e-47d9-9f02-6ea41d7cb302")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to get message")
	}
	return row.EtoD(), nil
}

// FinalizeTurn implements conversation.Repository. Everything runs in one
// transaction: conversation create-or-load, both message rows, and the chunk
// re-key from the provisional accumulation to the assistant message id. No
// partial state is visible to readers.
func (repo *ConversationGormRepository) FinalizeTurn(ctx context.Context, params conversation.FinalizeTurnParams) (*conversation.FinalizeTurnResult, error) {
	var result conversation.FinalizeTurnResult

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var conv dbschema.Conversation
		if params.ExistingConversationID != nil {
			err := tx.Where("user_id = ? AND public_id = ?", params.UserID, *params.ExistingConversationID).
				First(&conv).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
						"conversation not found", err, "5b9d2e7c-8f4a-4163-a2d8-3c07f1e6b303")
				}
				return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to load conversation")
			}
			// Bump updated_at so the list surfaces the active conversation first
			if err := tx.Model(&conv).Update("updated_at", tx.NowFunc()).Error; err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to touch conversation")
			}
		} else {
			conv = dbschema.Conversation{
				PublicID: params.NewConversationID,
				Title:    params.Title,
				UserID:   params.UserID,
			}
			if err := tx.Create(&conv).Error; err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create conversation")
			}
		}

		userMsg := dbschema.Message{
			ConversationID: conv.ID,
			PublicID:       params.UserMessageID,
			Role:           string(conversation.RoleUser),
			Content:        params.UserMessage,
		}
		if err := tx.Create(&userMsg).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create user message")
		}

		assistantMsg := dbschema.Message{
			ConversationID: conv.ID,
			PublicID:       params.AssistantMessageID,
			Role:           string(conversation.RoleAssistant),
			Content:        params.AssistantContent,
		}
		if err := tx.Create(&assistantMsg).Error; err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create assistant message")
		}

		// Re-key the accumulated chunks in a single UPDATE
		err := tx.Model(&dbschema.MessageChunk{}).
			Where("message_key = ?", params.ProvisionalKey).
			Update("message_key", params.AssistantMessageID).Error
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to re-key message chunks")
		}

		result.ConversationID = conv.PublicID
		result.MessageID = assistantMsg.PublicID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
