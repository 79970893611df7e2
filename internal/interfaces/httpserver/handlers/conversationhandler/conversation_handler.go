package conversationhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/middlewares"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/responses"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
)

// ConversationHandler serves conversation reads and chunk replay.
type ConversationHandler struct {
	convService *conversation.Service
	logger      zerolog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(convService *conversation.Service, logger zerolog.Logger) *ConversationHandler {
	return &ConversationHandler{convService: convService, logger: logger}
}

// ListConversations handles GET /v1/conversations
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized,
			"authentication required", "f3a8d2c1-6e47-4b90-8a5d-13b7e9c0f501")
		return
	}

	conversations, err := h.convService.ListConversations(c.Request.Context(), principal)
	if err != nil {
		responses.HandleError(c, err, "failed to list conversations")
		return
	}

	resp := responses.ConversationListResponse{
		Conversations: make([]responses.ConversationSummary, 0, len(conversations)),
	}
	for _, conv := range conversations {
		resp.Conversations = append(resp.Conversations, responses.NewConversationSummary(conv))
	}
	c.JSON(http.StatusOK, resp)
}

// GetConversation handles GET /v1/conversations/:id
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized,
			"authentication required", "0b6e4f92-8d1a-4c75-b2e8-57a3c9d1f502")
		return
	}

	publicID := c.Param("id")
	conv, err := h.convService.GetConversation(c.Request.Context(), principal, publicID)
	if err != nil {
		responses.HandleError(c, err, "conversation not found")
		return
	}

	c.JSON(http.StatusOK, responses.NewConversationDetail(conv))
}

// GetMessageChunks handles GET /v1/messages/:id/chunks. The stored envelopes
// come back in sequence order, shaped exactly as they were streamed.
func (h *ConversationHandler) GetMessageChunks(c *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized,
			"authentication required", "9d2c7a40-1f5e-4b83-a6d9-02e8b4f6c503")
		return
	}

	messageID := c.Param("id")
	envelopes, err := h.convService.ReplayMessage(c.Request.Context(), principal, messageID)
	if err != nil {
		responses.HandleError(c, err, "failed to load message chunks")
		return
	}

	c.JSON(http.StatusOK, responses.NewChunkListResponse(messageID, envelopes))
}
