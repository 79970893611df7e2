package dbschema

import (
	"knowledge-assist/chat-api/internal/domain/feedback"
	"knowledge-assist/chat-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Feedback{})
}

// Feedback represents the database schema for message feedback. One row per
// (message, user) pair is enforced with a composite unique index.
type Feedback struct {
	BaseModel
	MessagePublicID string  `gorm:"type:varchar(50);uniqueIndex:idx_feedback_message_user;not null"`
	UserID          string  `gorm:"type:varchar(128);uniqueIndex:idx_feedback_message_user;not null"`
	IsPositive      bool    `gorm:"not null"`
	Comment         *string `gorm:"type:varchar(255)"`
}

// NewSchemaFeedback creates a database schema from domain feedback
func NewSchemaFeedback(f *feedback.Feedback) *Feedback {
	return &Feedback{
		BaseModel: BaseModel{
			ID:        f.ID,
			CreatedAt: f.CreatedAt,
		},
		MessagePublicID: f.MessagePublicID,
		UserID:          f.UserID,
		IsPositive:      f.IsPositive,
		Comment:         f.Comment,
	}
}

// EtoD converts database schema to domain feedback (Entity to Domain)
func (f *Feedback) EtoD() *feedback.Feedback {
	return &feedback.Feedback{
		ID:              f.ID,
		MessagePublicID: f.MessagePublicID,
		UserID:          f.UserID,
		IsPositive:      f.IsPositive,
		Comment:         f.Comment,
		CreatedAt:       f.CreatedAt,
	}
}
