package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-monitor/internal/models"
)

const upsertPriceQuery = `
	INSERT INTO prices (company_ticker, market_date, close, currency, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (company_ticker, market_date) DO UPDATE SET
		close = EXCLUDED.close,
		currency = EXCLUDED.currency
`

// UpsertPrice inserts a daily close or replaces the existing one for the same day
func (db *DB) UpsertPrice(ctx context.Context, p *models.Price) error {
	now := time.Now().UTC()
	if _, err := db.conn.ExecContext(ctx, upsertPriceQuery, p.CompanyTicker, p.MarketDate, p.Close, p.Currency, now); err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", p.CompanyTicker, classify(err))
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	return nil
}

// UpsertPriceBatch writes several daily closes in one transaction
func (db *DB) UpsertPriceBatch(ctx context.Context, prices []*models.Price) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertPriceQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, p := range prices {
		if _, err := stmt.ExecContext(ctx, p.CompanyTicker, p.MarketDate, p.Close, p.Currency, now); err != nil {
			return fmt.Errorf("failed to upsert price for %s: %w", p.CompanyTicker, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	for _, p := range prices {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
	}
	return nil
}

// GetPrice retrieves the close of a company on a market date
func (db *DB) GetPrice(ctx context.Context, ticker string, date time.Time) (*models.Price, error) {
	query := `
		SELECT company_ticker, market_date, close, currency, created_at
		FROM prices
		WHERE company_ticker = $1 AND market_date = $2
	`
	var p models.Price
	err := db.conn.QueryRowContext(ctx, query, ticker, date).Scan(
		&p.CompanyTicker, &p.MarketDate, &p.Close, &p.Currency, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("price %s on %s: %w", ticker, date.Format(models.DateLayout), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price: %w", err)
	}
	return &p, nil
}

// ListPrices returns prices newest first, optionally restricted to one ticker
func (db *DB) ListPrices(ctx context.Context, ticker string) ([]*models.Price, error) {
	query := `
		SELECT company_ticker, market_date, close, currency, created_at
		FROM prices
		WHERE $1::text = '' OR company_ticker = $1
		ORDER BY market_date DESC, company_ticker
	`
	rows, err := db.conn.QueryContext(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("failed to list prices: %w", err)
	}
	defer rows.Close()

	prices := []*models.Price{}
	for rows.Next() {
		var p models.Price
		if err := rows.Scan(&p.CompanyTicker, &p.MarketDate, &p.Close, &p.Currency, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, &p)
	}
	return prices, rows.Err()
}

// UpdatePrice replaces the close and currency of an existing price
func (db *DB) UpdatePrice(ctx context.Context, p *models.Price) error {
	query := `
		UPDATE prices SET close = $3, currency = $4
		WHERE company_ticker = $1 AND market_date = $2
		RETURNING created_at
	`
	err := db.conn.QueryRowContext(ctx, query, p.CompanyTicker, p.MarketDate, p.Close, p.Currency).Scan(&p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("price %s on %s: %w", p.CompanyTicker, p.MarketDate.Format(models.DateLayout), ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update price: %w", classify(err))
	}
	return nil
}

// DeletePrice removes the close of a company on a market date
func (db *DB) DeletePrice(ctx context.Context, ticker string, date time.Time) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM prices WHERE company_ticker = $1 AND market_date = $2`, ticker, date)
	if err != nil {
		return fmt.Errorf("failed to delete price: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("price %s on %s", ticker, date.Format(models.DateLayout)))
}
