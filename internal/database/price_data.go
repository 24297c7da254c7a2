package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// ErrNotFound is returned when a requested bar does not exist
var ErrNotFound = errors.New("price bar not found")

const priceBarColumns = `id, symbol, date, open, high, low, close, volume, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPriceBar(row rowScanner) (models.PriceBar, error) {
	var b models.PriceBar
	err := row.Scan(&b.ID, &b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.CreatedAt)
	if err != nil {
		return b, err
	}
	b.Date = b.Date.UTC()
	return b, nil
}

// UpsertPriceBars inserts or refreshes bars keyed on (symbol, date) in one transaction
func (db *DB) UpsertPriceBars(ctx context.Context, bars []models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertPriceBars(ctx, tx, bars); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertPriceBars(ctx context.Context, tx *sql.Tx, bars []models.PriceBar) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_data_daily (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, b.Symbol, b.Date.Format(models.DateLayout), b.Open, b.High, b.Low, b.Close, b.Volume, now)
		if err != nil {
			return fmt.Errorf("failed to upsert price bar for %s on %s: %w", b.Symbol, b.Date.Format(models.DateLayout), err)
		}
	}
	return nil
}

// GetPriceBarsRange retrieves bars for symbol dated in [start, end), ascending
func (db *DB) GetPriceBarsRange(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	query := `
		SELECT ` + priceBarColumns + `
		FROM price_data_daily
		WHERE symbol = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, symbol, start.Format(models.DateLayout), end.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to get price bars range: %w", err)
	}
	defer rows.Close()

	bars := []models.PriceBar{}
	for rows.Next() {
		b, err := scanPriceBar(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price bars: %w", err)
	}

	return bars, nil
}

// GetPriceBar retrieves the bar for a symbol on a specific date
func (db *DB) GetPriceBar(ctx context.Context, symbol string, date time.Time) (*models.PriceBar, error) {
	query := `
		SELECT ` + priceBarColumns + `
		FROM price_data_daily
		WHERE symbol = $1 AND date = $2
	`
	b, err := scanPriceBar(db.conn.QueryRowContext(ctx, query, symbol, date.Format(models.DateLayout)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotFound, symbol, date.Format(models.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price bar: %w", err)
	}
	return &b, nil
}

// GetLatestPriceBar retrieves the most recent bar for a symbol
func (db *DB) GetLatestPriceBar(ctx context.Context, symbol string) (*models.PriceBar, error) {
	query := `
		SELECT ` + priceBarColumns + `
		FROM price_data_daily
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	b, err := scanPriceBar(db.conn.QueryRowContext(ctx, query, symbol))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no price data for %s", ErrNotFound, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price bar: %w", err)
	}
	return &b, nil
}

// DeletePriceBarsBySymbol removes all bars and fetch windows for a symbol
// The returned count is the number of bars removed
func (db *DB) DeletePriceBarsBySymbol(ctx context.Context, symbol string) (int64, error) {
	return db.deleteInTx(ctx,
		fmt.Sprintf("failed to delete price bars for %s", symbol),
		`DELETE FROM price_data_fetches WHERE symbol = $1`,
		`DELETE FROM price_data_daily WHERE symbol = $1`,
		symbol)
}

// DeletePriceBarsOlderThan removes bars dated before date together with every
// fetch window that starts before it
func (db *DB) DeletePriceBarsOlderThan(ctx context.Context, date time.Time) (int64, error) {
	return db.deleteInTx(ctx,
		"failed to delete old price bars",
		`DELETE FROM price_data_fetches WHERE start_date < $1`,
		`DELETE FROM price_data_daily WHERE date < $1`,
		date.Format(models.DateLayout))
}

func (db *DB) deleteInTx(ctx context.Context, failure, windowsQuery, barsQuery string, arg any) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", failure, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, windowsQuery, arg); err != nil {
		return 0, fmt.Errorf("%s: %w", failure, err)
	}
	result, err := tx.ExecContext(ctx, barsQuery, arg)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", failure, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", failure, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: %w", failure, err)
	}
	return deleted, nil
}
