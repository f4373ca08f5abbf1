package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-monitor/internal/database"
	"github.com/trogers1052/portfolio-monitor/internal/marketdata"
	"github.com/trogers1052/portfolio-monitor/internal/models"
	"golang.org/x/sync/singleflight"
)

// CompanyStore is the persistence the resolver needs
type CompanyStore interface {
	GetCompany(ctx context.Context, ticker string) (*models.Company, error)
	CreateCompanyIfAbsent(ctx context.Context, c *models.Company) (*models.Company, bool, error)
}

// Resolution is the outcome of resolving a ticker without persisting
type Resolution struct {
	Company *models.Company
	New     bool
}

// CompanyResolver finds a company in the store or builds it from market data
type CompanyResolver struct {
	store  CompanyStore
	market marketdata.Client
	group  singleflight.Group
	log    zerolog.Logger
}

// NewCompanyResolver creates a resolver
func NewCompanyResolver(store CompanyStore, market marketdata.Client, log zerolog.Logger) *CompanyResolver {
	return &CompanyResolver{
		store:  store,
		market: market,
		log:    log.With().Str("component", "company-resolver").Logger(),
	}
}

// Resolve returns the stored company for ticker or, when unknown, a new company
// built from market data. Nothing is written.
func (r *CompanyResolver) Resolve(ctx context.Context, ticker string) (*Resolution, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	existing, err := r.store.GetCompany(ctx, ticker)
	if err == nil {
		return &Resolution{Company: existing}, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up company %s: %w", ticker, err)
	}

	quote, err := r.market.Lookup(ctx, ticker)
	if err != nil {
		return nil, resolutionError(ticker, err)
	}

	c := &models.Company{Ticker: ticker, Name: truncate(quote.Name, models.MaxCompanyNameLength)}
	if quote.Sector != nil {
		sector := truncate(*quote.Sector, models.MaxSectorLength)
		c.Sector = &sector
	}
	return &Resolution{Company: c, New: true}, nil
}

// EnsureCompany returns the stored company for ticker, creating it from market
// data when absent. Repeated and concurrent calls yield the same row.
func (r *CompanyResolver) EnsureCompany(ctx context.Context, ticker string) (*models.Company, bool, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	type result struct {
		company *models.Company
		created bool
	}
	v, err, _ := r.group.Do(ticker, func() (interface{}, error) {
		res, err := r.Resolve(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if !res.New {
			return result{company: res.Company}, nil
		}

		stored, created, err := r.store.CreateCompanyIfAbsent(ctx, res.Company)
		if err != nil {
			return nil, fmt.Errorf("failed to create company %s: %w", ticker, err)
		}
		if created {
			r.log.Info().Str("ticker", ticker).Str("name", stored.Name).Msg("Company created from market data")
		}
		return result{company: stored, created: created}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(result)
	return res.company, res.created, nil
}

func resolutionError(ticker string, err error) error {
	reason := "market data unavailable"
	switch {
	case errors.Is(err, marketdata.ErrNotFound):
		reason = "ticker not found in market data"
	case errors.Is(err, context.DeadlineExceeded):
		reason = "market data lookup timed out"
	}
	return &ResolutionError{Ticker: ticker, Reason: reason, Err: err}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
