package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
	"github.com/trogers1052/earnings-reaction-service/internal/ocr"
	"github.com/trogers1052/earnings-reaction-service/internal/reaction"
	"github.com/trogers1052/earnings-reaction-service/internal/textparse"
)

const (
	serviceName    = "earnings-reaction-service"
	maxUploadBytes = 32 << 20 // 32MB
	maxJSONBytes   = 1 << 20
)

// Analyzer runs a reaction analysis for one ticker batch
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, timestamps []models.AnnouncementTimestamp) (*models.AnalysisResult, error)
}

// ResultPublisher publishes completed analyses
type ResultPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, requestID string, result *models.AnalysisResult) error
}

// CacheInvalidator drops cached bars for a symbol
type CacheInvalidator interface {
	Invalidate(ctx context.Context, symbol string) error
}

// BarPurger deletes persisted bars for a symbol
type BarPurger interface {
	DeletePriceBarsBySymbol(ctx context.Context, symbol string) (int64, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analyzer      Analyzer
	announcements *reaction.AnnouncementTable
	extractor     ocr.TextExtractor
	publisher     ResultPublisher
	cache         CacheInvalidator
	store         BarPurger
	logger        zerolog.Logger
}

// HandlerOption configures optional Handler dependencies
type HandlerOption func(*Handler)

// WithExtractor enables image uploads
func WithExtractor(e ocr.TextExtractor) HandlerOption {
	return func(h *Handler) {
		h.extractor = e
	}
}

// WithPublisher publishes every completed analysis
func WithPublisher(p ResultPublisher) HandlerOption {
	return func(h *Handler) {
		h.publisher = p
	}
}

// WithCache sets the bar cache cleared by the invalidate endpoint
func WithCache(c CacheInvalidator) HandlerOption {
	return func(h *Handler) {
		h.cache = c
	}
}

// WithStore sets the bar store purged by the invalidate endpoint
func WithStore(s BarPurger) HandlerOption {
	return func(h *Handler) {
		h.store = s
	}
}

// NewHandler creates a new Handler
func NewHandler(analyzer Analyzer, announcements *reaction.AnnouncementTable, logger zerolog.Logger, opts ...HandlerOption) *Handler {
	if announcements == nil {
		announcements = reaction.DefaultAnnouncements()
	}
	h := &Handler{
		analyzer:      analyzer,
		announcements: announcements,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Analyze handles POST /api/v1/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if errs := validateRequest(&req); errs != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":   errs[0].Message,
			"details": errs,
		})
		return
	}

	h.runAnalysis(w, r, req.Ticker, req.DatesWithTimes)
}

// AnalyzeUpload handles POST /api/v1/analyze/upload
func (h *Handler) AnalyzeUpload(w http.ResponseWriter, r *http.Request) {
	if h.extractor == nil {
		respondError(w, http.StatusServiceUnavailable, "image analysis is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	ticker := strings.TrimSpace(r.FormValue("ticker"))
	if ticker == "" {
		respondError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	var files []*multipart.FileHeader
	for _, field := range []string{"images", "file"} {
		files = append(files, r.MultipartForm.File[field]...)
	}
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	var timestamps []models.AnnouncementTimestamp
	for _, fh := range files {
		data, err := readImage(fh)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		lines, err := h.extractor.ExtractText(r.Context(), data)
		if err != nil {
			h.logger.Error().Err(err).Str("file", fh.Filename).Msg("text extraction failed")
			respondError(w, http.StatusInternalServerError, "failed to read text from image")
			return
		}
		found := textparse.ExtractDatesWithTimes(strings.Join(lines, "\n"))
		h.logger.Debug().Str("file", fh.Filename).Int("pairs", len(found)).Msg("extracted announcement timestamps")
		timestamps = append(timestamps, found...)
	}

	if len(timestamps) == 0 {
		respondError(w, http.StatusBadRequest, "Could not extract any valid date/time pairs from images.")
		return
	}

	sort.SliceStable(timestamps, func(i, j int) bool {
		if timestamps[i].Date != timestamps[j].Date {
			return timestamps[i].Date < timestamps[j].Date
		}
		return timestamps[i].Time < timestamps[j].Time
	})

	h.runAnalysis(w, r, ticker, timestamps)
}

// GetAnnouncements handles GET /api/v1/tickers/{symbol}/announcements
func (h *Handler) GetAnnouncements(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	timestamps, ok := h.announcements.Lookup(symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "no known announcements for "+symbol)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ticker":           symbol,
		"dates_with_times": timestamps,
	})
}

// ListTickers handles GET /api/v1/tickers
func (h *Handler) ListTickers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"tickers": h.announcements.Symbols()})
}

// AnalyzeTicker handles POST /api/v1/tickers/{symbol}/analyze
func (h *Handler) AnalyzeTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	timestamps, ok := h.announcements.Lookup(symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "no known announcements for "+symbol)
		return
	}

	h.runAnalysis(w, r, symbol, timestamps)
}

// InvalidateCache handles DELETE /api/v1/tickers/{symbol}/cache
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context(), symbol); err != nil {
			h.logger.Error().Err(err).Str("symbol", symbol).Msg("cache invalidation failed")
			respondError(w, http.StatusInternalServerError, "failed to invalidate cache")
			return
		}
	}

	var deleted int64
	if h.store != nil {
		n, err := h.store.DeletePriceBarsBySymbol(r.Context(), symbol)
		if err != nil {
			h.logger.Error().Err(err).Str("symbol", symbol).Msg("price bar purge failed")
			respondError(w, http.StatusInternalServerError, "failed to delete stored price bars")
			return
		}
		deleted = n
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"symbol":       symbol,
		"deleted_rows": deleted,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (h *Handler) runAnalysis(w http.ResponseWriter, r *http.Request, ticker string, timestamps []models.AnnouncementTimestamp) {
	result, err := h.analyzer.Analyze(r.Context(), ticker, timestamps)
	if err != nil {
		status := statusForError(err)
		h.logger.Warn().Err(err).Str("ticker", ticker).Int("status", status).Msg("analysis failed")
		message := err.Error()
		if status >= http.StatusInternalServerError {
			message = "market data unavailable"
		}
		respondError(w, status, message)
		return
	}

	// Publish Kafka event
	if h.publisher != nil {
		if err := h.publisher.PublishAnalysisCompleted(r.Context(), "", result); err != nil {
			h.logger.Warn().Err(err).Str("ticker", result.Ticker).Msg("failed to publish analysis result")
		}
	}

	respondJSON(w, http.StatusOK, newAnalysisResponse(result))
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, reaction.ErrEmptySymbol),
		errors.Is(err, reaction.ErrNoTimestamps),
		errors.Is(err, reaction.ErrInvalidDate):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func readImage(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("failed to read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("failed to read uploaded file")
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.New("file " + fh.Filename + " must be an image")
	}
	return data, nil
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
