package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-monitor/internal/models"
)

const positionColumns = `
	p.id, p.portfolio_id, p.company_ticker, p.type, p.quantity, p.date, p.price, p.currency, p.created_at,
	c.ticker, c.name, c.sector, c.created_at
`

// CreatePosition inserts a single position. The company and portfolio must exist.
func (db *DB) CreatePosition(ctx context.Context, p *models.Position) error {
	query := `
		INSERT INTO positions (portfolio_id, company_ticker, type, quantity, date, price, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	now := time.Now().UTC()
	err := db.conn.QueryRowContext(ctx, query,
		p.PortfolioID, p.CompanyTicker, string(p.Type), p.Quantity, p.Date, p.Price, p.Currency, now,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create position: %w", classify(err))
	}
	p.CreatedAt = now
	return nil
}

// ImportBatch writes new companies and positions in a single transaction.
// Companies that already exist are left untouched; the tickers actually inserted
// are returned. Any failure rolls the whole batch back.
func (db *DB) ImportBatch(ctx context.Context, companies []*models.Company, positions []*models.Position) ([]string, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	created := []string{}
	for _, c := range companies {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO companies (ticker, name, sector, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (ticker) DO NOTHING
		`, c.Ticker, c.Name, nullString(c.Sector), now)
		if err != nil {
			return nil, fmt.Errorf("failed to insert company %s: %w", c.Ticker, classify(err))
		}
		if n, err := res.RowsAffected(); err == nil && n == 1 {
			c.CreatedAt = now
			created = append(created, c.Ticker)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions (portfolio_id, company_ticker, type, quantity, date, price, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, p := range positions {
		err := stmt.QueryRowContext(ctx,
			p.PortfolioID, p.CompanyTicker, string(p.Type), p.Quantity, p.Date, p.Price, p.Currency, now,
		).Scan(&p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert position %d (%s): %w", i+1, p.CompanyTicker, classify(err))
		}
		p.CreatedAt = now
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

// GetPosition retrieves a position with its company by ID
func (db *DB) GetPosition(ctx context.Context, id int) (*models.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM positions p
		JOIN companies c ON c.ticker = p.company_ticker
		WHERE p.id = $1
	`
	p, err := scanPosition(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	return p, nil
}

// ListPositions returns every position ordered by ID
func (db *DB) ListPositions(ctx context.Context) ([]*models.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM positions p
		JOIN companies c ON c.ticker = p.company_ticker
		ORDER BY p.id
	`
	return db.queryPositions(ctx, query)
}

// ListPortfolioPositions returns the positions of one portfolio ordered by date then ID
func (db *DB) ListPortfolioPositions(ctx context.Context, portfolioID int) ([]*models.Position, error) {
	query := `SELECT ` + positionColumns + `
		FROM positions p
		JOIN companies c ON c.ticker = p.company_ticker
		WHERE p.portfolio_id = $1
		ORDER BY p.date, p.id
	`
	return db.queryPositions(ctx, query, portfolioID)
}

// UpdatePosition applies a partial update and returns the updated row
func (db *DB) UpdatePosition(ctx context.Context, id int, u *models.PositionUpdate) (*models.Position, error) {
	var txType sql.NullString
	if u.Type != nil {
		txType = sql.NullString{String: string(*u.Type), Valid: true}
	}
	var date sql.NullTime
	if u.Date != nil {
		date = sql.NullTime{Time: *u.Date, Valid: true}
	}
	var portfolioID sql.NullInt64
	if u.PortfolioID != nil {
		portfolioID = sql.NullInt64{Int64: int64(*u.PortfolioID), Valid: true}
	}
	var quantity, price sql.NullString
	if u.Quantity != nil {
		quantity = sql.NullString{String: u.Quantity.String(), Valid: true}
	}
	if u.Price != nil {
		price = sql.NullString{String: u.Price.String(), Valid: true}
	}

	query := `
		UPDATE positions SET
			portfolio_id = COALESCE($2, portfolio_id),
			company_ticker = COALESCE($3, company_ticker),
			type = COALESCE($4, type),
			quantity = COALESCE($5::numeric, quantity),
			date = COALESCE($6::date, date),
			price = COALESCE($7::numeric, price),
			currency = COALESCE($8, currency)
		WHERE id = $1
	`
	res, err := db.conn.ExecContext(ctx, query,
		id, portfolioID, nullString(u.CompanyTicker), txType, quantity, date, price, nullString(u.Currency),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update position: %w", classify(err))
	}
	if err := expectOneRow(res, fmt.Sprintf("position %d", id)); err != nil {
		return nil, err
	}
	return db.GetPosition(ctx, id)
}

// DeletePosition removes a position by ID
func (db *DB) DeletePosition(ctx context.Context, id int) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("position %d", id))
}

func (db *DB) queryPositions(ctx context.Context, query string, args ...any) ([]*models.Position, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	positions := []*models.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func scanPosition(row rowScanner) (*models.Position, error) {
	var p models.Position
	var c models.Company
	var txType string
	var sector sql.NullString

	err := row.Scan(
		&p.ID, &p.PortfolioID, &p.CompanyTicker, &txType, &p.Quantity, &p.Date, &p.Price, &p.Currency, &p.CreatedAt,
		&c.Ticker, &c.Name, &sector, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Type = models.TransactionType(txType)
	if sector.Valid {
		c.Sector = &sector.String
	}
	p.Company = &c
	return &p, nil
}
