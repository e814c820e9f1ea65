package http

import (
	"log/slog"

	chatpdf "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	"github.com/tejasgodse/chatpdf/internal/infra/config"
)

// Handler wires the HTTP transport to the chatpdf domain service.
type Handler struct {
	svc    *chatpdf.Service
	queue  chatpdf.JobQueue
	logger *slog.Logger

	presignTTLSeconds  int
	downloadTTLSeconds int
	workerEnabled      bool
}

// NewHandler constructs the root HTTP handler. When cfg.ChatPDF.Worker.Enabled
// is set, ingestion webhooks are dispatched through queue instead of run
// inline on the request goroutine; the queue's registered handler (wired in
// provideService) still calls svc.Ingest, just off the HTTP request path.
func NewHandler(svc *chatpdf.Service, queue chatpdf.JobQueue, cfg *config.Config, logger *slog.Logger) *Handler {
	presignTTLSeconds := int(cfg.ChatPDF.PresignPutTTL.Seconds())
	downloadTTLSeconds := int(cfg.ChatPDF.PresignGetTTL.Seconds())
	if presignTTLSeconds <= 0 {
		presignTTLSeconds = 900
	}
	if downloadTTLSeconds <= 0 {
		downloadTTLSeconds = 3600
	}
	return &Handler{
		svc:                svc,
		queue:              queue,
		logger:             logger.With("component", "http.handler"),
		presignTTLSeconds:  presignTTLSeconds,
		downloadTTLSeconds: downloadTTLSeconds,
		workerEnabled:      cfg.ChatPDF.Worker.Enabled,
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
