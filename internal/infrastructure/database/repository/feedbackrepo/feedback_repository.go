package feedbackrepo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"knowledge-assist/chat-api/internal/domain/feedback"
	"knowledge-assist/chat-api/internal/infrastructure/database/dbschema"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
)

type FeedbackGormRepository struct {
	db *gorm.DB
}

var _ feedback.Repository = (*FeedbackGormRepository)(nil)

func NewFeedbackGormRepository(db *gorm.DB) feedback.Repository {
	return &FeedbackGormRepository{db: db}
}

// Create implements feedback.Repository.
func (repo *FeedbackGormRepository) Create(ctx context.Context, fb *feedback.Feedback) error {
	row := dbschema.NewSchemaFeedback(fb)
	if err := repo.db.WithContext(ctx).Create(row).Error; err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to create feedback")
	}
	fb.ID = row.ID
	fb.CreatedAt = row.CreatedAt
	return nil
}

// ExistsForMessage implements feedback.Repository.
func (repo *FeedbackGormRepository) ExistsForMessage(ctx context.Context, userID, messagePublicID string) (bool, error) {
	var count int64
	err := repo.db.WithContext(ctx).
		Model(&dbschema.Feedback{}).
		Where("message_public_id = ? AND user_id = ?", messagePublicID, userID).
		Count(&count).Error
	if err != nil {
		return false, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to check feedback existence")
	}
	return count > 0, nil
}

// GetForMessage implements feedback.Repository.
func (repo *FeedbackGormRepository) GetForMessage(ctx context.Context, userID, messagePublicID string) (*feedback.Feedback, error) {
	var row dbschema.Feedback
	err := repo.db.WithContext(ctx).
		Where("message_public_id = ? AND user_id = ?", messagePublicID, userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
				"feedback not found", err, "9e6b4a1d-3f8c-42e7-b5a0-81d2c6f4e305")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerRepository, err, "failed to get feedback")
	}
	return row.EtoD(), nil
}
