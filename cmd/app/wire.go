//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/tejasgodse/chatpdf/internal/bootstrap"
	chatpdf "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/queue"
	"github.com/tejasgodse/chatpdf/internal/infra/config"
	httpiface "github.com/tejasgodse/chatpdf/internal/interface/http"
	"github.com/tejasgodse/chatpdf/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatGPTClient,
		provideBlob,
		provideCatalog,
		provideVectorIndex,
		provideEmbedder,
		provideLLM,
		provideExtractor,
		provideChunker,
		provideQueue,
		wire.Bind(new(chatpdf.JobQueue), new(queue.HandlerQueue)),
		provideService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
