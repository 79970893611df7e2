package repository

import (
	"knowledge-assist/chat-api/internal/infrastructure/database/repository/chunkrepo"
	"knowledge-assist/chat-api/internal/infrastructure/database/repository/conversationrepo"
	"knowledge-assist/chat-api/internal/infrastructure/database/repository/feedbackrepo"

	"github.com/google/wire"
)

var RepositoryProvider = wire.NewSet(
	conversationrepo.NewConversationGormRepository,
	chunkrepo.NewChunkGormStore,
	feedbackrepo.NewFeedbackGormRepository,
)
