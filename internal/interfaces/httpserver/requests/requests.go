package requests

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// StreamChatRequest starts a streaming turn. ConversationID is omitted on
// the opening turn of a new conversation.
type StreamChatRequest struct {
	Message        string  `json:"message" binding:"required"`
	ConversationID *string `json:"conversation_id,omitempty" binding:"omitempty,publicid=conv"`
}

// FeedbackRequest records a verdict on an assistant message. IsPositive is a
// pointer so "false" survives binding validation.
type FeedbackRequest struct {
	MessageID  string  `json:"message_id" binding:"required,publicid=msg"`
	IsPositive *bool   `json:"is_positive" binding:"required"`
	Comment    *string `json:"comment,omitempty" binding:"omitempty,max=255"`
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("publicid", validatePublicID)
	}
}

// validatePublicID checks the "<prefix>_<alnum>" shape of server assigned
// identifiers before they reach the database.
func validatePublicID(fl validator.FieldLevel) bool {
	prefix := fl.Param()
	value := fl.Field().String()
	rest, found := strings.CutPrefix(value, prefix+"_")
	if !found || rest == "" {
		return false
	}
	for _, r := range rest {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
