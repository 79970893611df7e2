package feedbackhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain/feedback"
	"knowledge-assist/chat-api/internal/infrastructure/metrics"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/middlewares"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/requests"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/responses"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
)

// FeedbackHandler serves feedback submission.
type FeedbackHandler struct {
	feedbackService *feedback.Service
	logger          zerolog.Logger
}

// NewFeedbackHandler creates a new feedback handler
func NewFeedbackHandler(feedbackService *feedback.Service, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService, logger: logger}
}

// SubmitFeedback handles POST /v1/feedback
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized,
			"authentication required", "7e1b9c53-0a4d-4f28-b6e1-84d2f7a0c601")
		return
	}

	var req requests.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"message_id and is_positive are required", "2c5f8a17-9e3b-4d60-a4c7-61b0e8d3f602")
		return
	}

	fb, err := h.feedbackService.Submit(c.Request.Context(), principal, req.MessageID, *req.IsPositive, req.Comment)
	if err != nil {
		metrics.RecordFeedback(*req.IsPositive, "rejected")
		responses.HandleError(c, err, "failed to record feedback")
		return
	}

	metrics.RecordFeedback(fb.IsPositive, "recorded")
	c.JSON(http.StatusCreated, responses.NewFeedbackResponse(fb))
}
