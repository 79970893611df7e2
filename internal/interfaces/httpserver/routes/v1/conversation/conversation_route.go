package conversation

import (
	"github.com/gin-gonic/gin"

	"knowledge-assist/chat-api/internal/interfaces/httpserver/handlers/conversationhandler"
)

type ConversationRoute struct {
	conversationHandler *conversationhandler.ConversationHandler
}

func NewConversationRoute(conversationHandler *conversationhandler.ConversationHandler) *ConversationRoute {
	return &ConversationRoute{conversationHandler: conversationHandler}
}

func (convRoute *ConversationRoute) RegisterRouter(router gin.IRouter) {
	conversations := router.Group("/conversations")
	conversations.GET("", convRoute.conversationHandler.ListConversations)
	conversations.GET("/:id", convRoute.conversationHandler.GetConversation)

	messages := router.Group("/messages")
	messages.GET("/:id/chunks", convRoute.conversationHandler.GetMessageChunks)
}
