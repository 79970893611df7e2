package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain"
	authvalidator "knowledge-assist/chat-api/internal/infrastructure/auth"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/responses"
)

const principalContextKey = "principal"

// AuthMiddleware validates session bearer tokens and attaches the principal
// to the request context. Requests without a valid token never reach the
// handler.
func AuthMiddleware(validator *authvalidator.SessionValidator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			logger.Warn().
				Str("path", c.FullPath()).
				Str("method", c.Request.Method).
				Msg("unauthenticated request")
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, errors.New("authentication required"), "unauthorized")
			return
		}

		principal, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			logger.Warn().Err(err).Msg("session validation failed")
			responses.HandleErrorWithStatus(c, http.StatusUnauthorized, err, "unauthorized")
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(c *gin.Context) (domain.Principal, bool) {
	val, ok := c.Get(principalContextKey)
	if !ok {
		return domain.Principal{}, false
	}
	principal, ok := val.(domain.Principal)
	return principal, ok
}

func setPrincipal(c *gin.Context, principal domain.Principal) {
	c.Set(principalContextKey, principal)
	// expose commonly-used identity values for downstream handlers
	c.Set("user_id", principal.ID)
	c.Set("user_email", principal.Email)
	if principal.ID != "" {
		c.Writer.Header().Set("X-User-ID", principal.ID)
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
