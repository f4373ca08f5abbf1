package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-monitor/internal/models"
)

// CreatePortfolio inserts a new portfolio and assigns its ID
func (db *DB) CreatePortfolio(ctx context.Context, p *models.Portfolio) error {
	query := `
		INSERT INTO portfolios (name, created_at)
		VALUES ($1, $2)
		RETURNING id
	`
	now := time.Now().UTC()
	if err := db.conn.QueryRowContext(ctx, query, p.Name, now).Scan(&p.ID); err != nil {
		return fmt.Errorf("failed to create portfolio: %w", classify(err))
	}
	p.CreatedAt = now
	return nil
}

// GetPortfolio retrieves a portfolio by ID
func (db *DB) GetPortfolio(ctx context.Context, id int) (*models.Portfolio, error) {
	query := `SELECT id, name, created_at FROM portfolios WHERE id = $1`

	var p models.Portfolio
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return &p, nil
}

// ListPortfolios returns all portfolios ordered by ID
func (db *DB) ListPortfolios(ctx context.Context) ([]*models.Portfolio, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, created_at FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := []*models.Portfolio{}
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, &p)
	}
	return portfolios, rows.Err()
}

// RenamePortfolio changes the name of a portfolio
func (db *DB) RenamePortfolio(ctx context.Context, id int, name string) (*models.Portfolio, error) {
	query := `
		UPDATE portfolios SET name = $2
		WHERE id = $1
		RETURNING id, name, created_at
	`
	var p models.Portfolio
	err := db.conn.QueryRowContext(ctx, query, id, name).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rename portfolio: %w", classify(err))
	}
	return &p, nil
}

// DeletePortfolio removes a portfolio together with its positions
func (db *DB) DeletePortfolio(ctx context.Context, id int) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("portfolio %d", id))
}
