package chat

import (
	"github.com/gin-gonic/gin"

	"knowledge-assist/chat-api/internal/interfaces/httpserver/handlers/chathandler"
)

type ChatRoute struct {
	chatHandler *chathandler.ChatHandler
}

func NewChatRoute(chatHandler *chathandler.ChatHandler) *ChatRoute {
	return &ChatRoute{chatHandler: chatHandler}
}

func (chatRoute *ChatRoute) RegisterRouter(router gin.IRouter) {
	chatRouter := router.Group("/chat")
	chatRouter.POST("/stream", chatRoute.chatHandler.StreamChat)
}
