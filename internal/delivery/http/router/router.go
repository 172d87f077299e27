package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AeonDevWorks/clarity-snapshot/internal/delivery/http/handler"
	"github.com/AeonDevWorks/clarity-snapshot/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ping", h.HandlePing)
	mux.HandleFunc("GET /fetch", h.HandleFetch)
	mux.HandleFunc("POST /upload_screenshot", h.HandleUploadScreenshot)
	mux.HandleFunc("POST /upload_html", h.HandleUploadHTML)
	mux.HandleFunc("GET /audit", h.HandleAuditLog)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Apply middlewares
	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.CORS(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler)

	return chainedHandler
}
