//go:build wireinject

package main

import (
	"knowledge-assist/chat-api/internal/domain/conversation"
	"knowledge-assist/chat-api/internal/domain/feedback"
	"knowledge-assist/chat-api/internal/infrastructure"
	"knowledge-assist/chat-api/internal/interfaces/httpserver"
	"knowledge-assist/chat-api/internal/interfaces/httpserver/routes"

	"github.com/google/wire"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		conversation.NewService,
		feedback.NewService,
		infrastructure.InfrastructureProvider,
		routes.RouteProvider,
		httpserver.NewHttpServer,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
