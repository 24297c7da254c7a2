package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterConfig holds cross-cutting router settings
type RouterConfig struct {
	AllowedOrigins []string
	Logger         zerolog.Logger
	Metrics        RequestRecorder
	MetricsHandler http.Handler
}

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, cfg RouterConfig) *mux.Router {
	r := mux.NewRouter()
	r.Use(CORS(cfg.AllowedOrigins))
	r.Use(RequestLogger(cfg.Logger, cfg.Metrics))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler).Methods("GET")

	// Analysis routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/analyze", handler.Analyze).Methods("POST")
	api.HandleFunc("/analyze/upload", handler.AnalyzeUpload).Methods("POST")
	api.HandleFunc("/tickers", handler.ListTickers).Methods("GET")
	api.HandleFunc("/tickers/{symbol}/announcements", handler.GetAnnouncements).Methods("GET")
	api.HandleFunc("/tickers/{symbol}/analyze", handler.AnalyzeTicker).Methods("POST")
	api.HandleFunc("/tickers/{symbol}/cache", handler.InvalidateCache).Methods("DELETE")

	// Preflight requests are answered by the CORS middleware
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
