package database

import (
	"context"
	"fmt"
	"time"

	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// SaveFetchedWindow stores the bars of an upstream fetch and records the window
// they came from in one transaction
func (db *DB) SaveFetchedWindow(ctx context.Context, window models.FetchWindow, bars []models.PriceBar) error {
	if !window.End.After(window.Start) {
		return fmt.Errorf("invalid fetch window for %s: %s to %s", window.Symbol,
			window.Start.Format(models.DateLayout), window.End.Format(models.DateLayout))
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(bars) > 0 {
		if err := upsertPriceBars(ctx, tx, bars); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO price_data_fetches (symbol, start_date, end_date, fetched_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (symbol, start_date, end_date) DO UPDATE SET
			fetched_at = EXCLUDED.fetched_at
	`, window.Symbol, window.Start.Format(models.DateLayout), window.End.Format(models.DateLayout), time.Now())
	if err != nil {
		return fmt.Errorf("failed to record fetch window for %s: %w", window.Symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetFetchWindows retrieves recorded windows for symbol overlapping [start, end),
// ordered by start date
func (db *DB) GetFetchWindows(ctx context.Context, symbol string, start, end time.Time) ([]models.FetchWindow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT symbol, start_date, end_date, fetched_at
		FROM price_data_fetches
		WHERE symbol = $1 AND start_date < $3 AND end_date > $2
		ORDER BY start_date ASC, end_date DESC
	`, symbol, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get fetch windows: %w", err)
	}
	defer rows.Close()

	windows := []models.FetchWindow{}
	for rows.Next() {
		var w models.FetchWindow
		if err := rows.Scan(&w.Symbol, &w.Start, &w.End, &w.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fetch window: %w", err)
		}
		w.Start = w.Start.UTC()
		w.End = w.End.UTC()
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fetch windows: %w", err)
	}
	return windows, nil
}
