package feedback

import (
	"github.com/gin-gonic/gin"

	"knowledge-assist/chat-api/internal/interfaces/httpserver/handlers/feedbackhandler"
)

type FeedbackRoute struct {
	feedbackHandler *feedbackhandler.FeedbackHandler
}

func NewFeedbackRoute(feedbackHandler *feedbackhandler.FeedbackHandler) *FeedbackRoute {
	return &FeedbackRoute{feedbackHandler: feedbackHandler}
}

func (feedbackRoute *FeedbackRoute) RegisterRouter(router gin.IRouter) {
	router.POST("/feedback", feedbackRoute.feedbackHandler.SubmitFeedback)
}
