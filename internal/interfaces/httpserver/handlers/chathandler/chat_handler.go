package chathandler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/domain/stream"
	"knowledge-assist/chat-api/internal/infrastructure/engine"
	"knowledge-assist/chat-api/internal/infrastructure/metrics"
	"knowledge-assist/chat-api/internal/infrastructure/observability"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/middlewares"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/requests"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/responses"
	"knowledge-assist/chat-api/internal/utils/platformerrors"
	"knowledge-assist/chat-api/pkg/chatwire"
)

// ChatHandler serves the streaming chat endpoint.
type ChatHandler struct {
	engineClient *engine.Client
	convService  *conversation.Service
	chunks       conversation.ChunkStore
	logger       zerolog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	engineClient *engine.Client,
	convService *conversation.Service,
	chunks conversation.ChunkStore,
	logger zerolog.Logger,
) *ChatHandler {
	return &ChatHandler{
		engineClient: engineClient,
		convService:  convService,
		chunks:       chunks,
		logger:       logger,
	}
}

// StreamChat handles POST /v1/chat/stream. The response is a Server Sent
// Events stream of envelopes ending in exactly one terminal envelope. Once
// streaming starts, the session runs to completion even if the client goes
// away; only wire writes stop.
func (h *ChatHandler) StreamChat(c *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeUnauthorized,
			"authentication required", "a1d7c3e9-5b20-4f68-8d41-92e0b6f4c401")
		return
	}

	var req requests.StreamChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, platformerrors.ErrorTypeValidation,
			"message is required", "6e2b9f40-7d1c-4a85-b3f6-08c5d1e7a402")
		return
	}

	provisionalKey, err := h.convService.NewProvisionalKey()
	if err != nil {
		responses.HandleError(c, err, "failed to start stream")
		return
	}

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		responses.HandleNewError(c, platformerrors.ErrorTypeInternal,
			"streaming unsupported", "4c8a1e6d-920f-4b37-a5d2-7f1e3b0c9403")
		return
	}
	c.Status(http.StatusOK)

	ctx, span := observability.StartSpan(c.Request.Context(), "chat-api", "chat.stream")
	defer span.End()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()
	start := time.Now()

	wire := &sseWire{c: c, flusher: flusher}
	session := stream.NewSession(h.engineClient, h.convService, h.chunks, h.logger)

	// The turn must outlive the client connection. Disconnects surface as
	// wire write errors, not as context cancellation.
	runCtx := context.WithoutCancel(ctx)
	err = session.Run(runCtx, wire, stream.Params{
		Principal:      principal,
		Message:        req.Message,
		ConversationID: req.ConversationID,
		ProvisionalKey: provisionalKey,
	})

	outcome := "complete"
	if err != nil {
		outcome = "error"
		observability.RecordError(ctx, err)
		metrics.RecordEngineError(string(platformerrors.GetErrorType(err)))
	}
	metrics.RecordStreamDuration(outcome, time.Since(start).Seconds())
}

// sseWire writes envelopes as SSE frames onto the live connection. A write
// after the client disconnected returns an error, which the session treats
// as wire-broken.
type sseWire struct {
	c       *gin.Context
	flusher interface{ Flush() }
}

func (w *sseWire) Write(env *chatwire.Envelope) error {
	if err := w.c.Request.Context().Err(); err != nil {
		return err
	}

	frame, err := env.Encode()
	if err != nil {
		return err
	}
	if _, err := w.c.Writer.Write(frame); err != nil {
		return err
	}
	w.flusher.Flush()

	if env.Type == chatwire.TypeChunk {
		metrics.RecordChunk(string(env.MessageType))
	}
	return nil
}
