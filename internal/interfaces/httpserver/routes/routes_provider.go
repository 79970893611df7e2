package routes

import (
	"knowledge-assist/chat-api/internal/interfaces/httpserver/handlers/chathandler"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/handlers/conversationhandler"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/handlers/feedbackhandler"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/routes/v1/chat"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/routes/v1/conversation"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/routes/v1/feedback"
	v1 "knowledge-assist/chat-api/internal/interfaces/httpserver/routes/v1"

	"github.com/google/wire"
)

var RouteProvider = wire.NewSet(
	// Handlers
	chathandler.NewChatHandler,
	conversationhandler.NewConversationHandler,
	feedbackhandler.NewFeedbackHandler,

	// Routes
	v1.NewV1Route,
	chat.NewChatRoute,
	conversation.NewConversationRoute,
	feedback.NewFeedbackRoute,
)
