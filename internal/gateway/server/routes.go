package server

import (
	"net/http"

	"pwabuilder/internal/gateway/handler"
	"pwabuilder/internal/gateway/handler/rpc"
	"pwabuilder/internal/gateway/middleware"
)

func NewMux(
	generationHandler *rpc.GenerationHandler,
	traceHandler *handler.TraceHandler,
	allowedOrigins []string,
) http.Handler {
	mux := http.NewServeMux()

	// RPC
	mux.Handle(generationHandler.Handler())

	// Streaming
	mux.HandleFunc("/ws/generation", generationHandler.HandleGenerationWS)

	// Debug
	mux.HandleFunc("/debug/run-logs", traceHandler.HandleRunLogs)
	mux.HandleFunc("/healthz", handler.HandleHealth)

	return middleware.CORS(allowedOrigins)(mux)
}
