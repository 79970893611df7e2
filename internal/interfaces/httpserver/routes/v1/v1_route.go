package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-assist/chat-api/internal/config"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/routes/v1/chat"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/routes/v1/conversation"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/routes/v1/feedback"
)

type V1Route struct {
	chat         *chat.ChatRoute
	conversation *conversation.ConversationRoute
	feedback     *feedback.FeedbackRoute
}

func NewV1Route(
	chat *chat.ChatRoute,
	conversation *conversation.ConversationRoute,
	feedback *feedback.FeedbackRoute,
) *V1Route {
	return &V1Route{
		chat,
		conversation,
		feedback,
	}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")
	v1Router.GET("/version", GetVersion)
	v1Router.GET("/healthz", GetHealthz)
	v1Router.GET("/readyz", GetReadyz)

	v1Route.chat.RegisterRouter(v1Router)
	v1Route.conversation.RegisterRouter(v1Router)
	v1Route.feedback.RegisterRouter(v1Router)
}

// GetVersion returns the current build version of the API server and
// environment reload timestamp.
func GetVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":         config.Version,
		"env_reloaded_at": config.GetEnvReloadedAt().Format("2006-01-02T15:04:05Z07:00"),
	})
}

// GetHealthz reports liveness.
func GetHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetReadyz reports readiness to accept traffic.
func GetReadyz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
