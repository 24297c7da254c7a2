package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// PriceBarRepository persists daily bars and the upstream windows they came from
type PriceBarRepository interface {
	GetPriceBarsRange(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
	GetFetchWindows(ctx context.Context, symbol string, start, end time.Time) ([]models.FetchWindow, error)
	SaveFetchedWindow(ctx context.Context, window models.FetchWindow, bars []models.PriceBar) error
}

// Store is a read-through Fetcher backed by Postgres. A window is answered
// locally only when recorded upstream fetches cover all of it; anything else is
// fetched upstream and its settled part persisted
type Store struct {
	repo       PriceBarRepository
	upstream   Fetcher
	settlement Settlement
	logger     zerolog.Logger
	metrics    FetchRecorder
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreSettlement sets the clock and exchange location used to decide
// which bars are final
func WithStoreSettlement(s Settlement) StoreOption {
	return func(st *Store) {
		st.settlement = s
	}
}

// NewStore creates a Store in front of upstream
func NewStore(repo PriceBarRepository, upstream Fetcher, logger zerolog.Logger, metrics FetchRecorder, opts ...StoreOption) *Store {
	s := &Store{
		repo:       repo,
		upstream:   upstream,
		settlement: DefaultSettlement(),
		logger:     logger,
		metrics:    metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchBars implements Fetcher
func (s *Store) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	if bars, ok := s.lookup(ctx, symbol, start, end); ok {
		record(s.metrics, "postgres", ResultHit)
		return bars, nil
	}

	bars, err := s.upstream.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}
	if len(bars) > 0 {
		s.persist(ctx, symbol, start, end, bars)
	}
	return bars, nil
}

func (s *Store) lookup(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, bool) {
	windows, err := s.repo.GetFetchWindows(ctx, symbol, start, end)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("fetch window lookup failed, going upstream")
		record(s.metrics, "postgres", ResultError)
		return nil, false
	}
	if !windowsCover(windows, start, end) {
		record(s.metrics, "postgres", ResultMiss)
		return nil, false
	}

	bars, err := s.repo.GetPriceBarsRange(ctx, symbol, start, end)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("price bar lookup failed, going upstream")
		record(s.metrics, "postgres", ResultError)
		return nil, false
	}
	return bars, true
}

// persist records the settled part of an upstream window
func (s *Store) persist(ctx context.Context, symbol string, start, end time.Time, bars []models.PriceBar) {
	today := s.settlement.Today()
	settledEnd := end
	if settledEnd.After(today) {
		settledEnd = today
	}
	if !settledEnd.After(start) {
		return
	}

	settled := settledBars(bars, today)
	window := models.FetchWindow{Symbol: symbol, Start: start, End: settledEnd}
	if err := s.repo.SaveFetchedWindow(ctx, window, settled); err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Int("bars", len(settled)).Msg("failed to persist price bars")
	}
}
