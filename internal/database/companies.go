package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/trogers1052/portfolio-monitor/internal/models"
)

// CreateCompany inserts a new company. An existing ticker yields ErrConflict.
func (db *DB) CreateCompany(ctx context.Context, c *models.Company) error {
	query := `
		INSERT INTO companies (ticker, name, sector, created_at)
		VALUES ($1, $2, $3, $4)
	`
	now := time.Now().UTC()
	if _, err := db.conn.ExecContext(ctx, query, c.Ticker, c.Name, nullString(c.Sector), now); err != nil {
		return fmt.Errorf("failed to create company %s: %w", c.Ticker, classify(err))
	}
	c.CreatedAt = now
	return nil
}

// CreateCompanyIfAbsent inserts the company unless the ticker already exists and
// returns the stored row either way. created reports whether this call inserted it.
func (db *DB) CreateCompanyIfAbsent(ctx context.Context, c *models.Company) (stored *models.Company, created bool, err error) {
	query := `
		INSERT INTO companies (ticker, name, sector, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker) DO NOTHING
	`
	res, err := db.conn.ExecContext(ctx, query, c.Ticker, c.Name, nullString(c.Sector), time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to create company %s: %w", c.Ticker, classify(err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	stored, err = db.GetCompany(ctx, c.Ticker)
	if err != nil {
		return nil, false, err
	}
	return stored, affected == 1, nil
}

// GetCompany retrieves a company by ticker
func (db *DB) GetCompany(ctx context.Context, ticker string) (*models.Company, error) {
	query := `
		SELECT ticker, name, sector, created_at
		FROM companies
		WHERE ticker = $1
	`
	c, err := scanCompany(db.conn.QueryRowContext(ctx, query, ticker))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListCompanies returns all companies ordered by ticker
func (db *DB) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	query := `
		SELECT ticker, name, sector, created_at
		FROM companies
		ORDER BY ticker
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []*models.Company{}
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// UpdateCompany applies a partial update and returns the updated row
func (db *DB) UpdateCompany(ctx context.Context, ticker string, u *models.CompanyUpdate) (*models.Company, error) {
	query := `
		UPDATE companies SET
			name = COALESCE($2, name),
			sector = COALESCE($3, sector)
		WHERE ticker = $1
		RETURNING ticker, name, sector, created_at
	`
	c, err := scanCompany(db.conn.QueryRowContext(ctx, query, ticker, nullString(u.Name), nullString(u.Sector)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update company: %w", classify(err))
	}
	return c, nil
}

// DeleteCompany removes a company together with its positions and prices
func (db *DB) DeleteCompany(ctx context.Context, ticker string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM companies WHERE ticker = $1`, ticker)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	return expectOneRow(res, "company "+ticker)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*models.Company, error) {
	var c models.Company
	var sector sql.NullString

	if err := row.Scan(&c.Ticker, &c.Name, &sector, &c.CreatedAt); err != nil {
		return nil, err
	}
	if sector.Valid {
		c.Sector = &sector.String
	}
	return &c, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func expectOneRow(res sql.Result, what string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
