// Package importer reconciles uploaded position CSV files with the stored
// companies and portfolios and persists them as one atomic batch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-monitor/internal/database"
	"github.com/trogers1052/portfolio-monitor/internal/models"
	"golang.org/x/sync/errgroup"
)

// FailurePolicy decides how many invalid rows are reported
type FailurePolicy string

// Failure policies
const (
	// PolicyFailFast stops at the first invalid row
	PolicyFailFast FailurePolicy = "fail_fast"
	// PolicyCollect validates every row and reports all invalid ones
	PolicyCollect FailurePolicy = "collect"
)

// ParseFailurePolicy validates a configured policy name
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case PolicyFailFast, PolicyCollect:
		return p, nil
	case "":
		return PolicyFailFast, nil
	}
	return "", fmt.Errorf("unknown import failure policy %q", s)
}

// Store is the persistence the pipeline needs
type Store interface {
	CompanyStore
	GetPortfolio(ctx context.Context, id int) (*models.Portfolio, error)
	ImportBatch(ctx context.Context, companies []*models.Company, positions []*models.Position) ([]string, error)
}

// EventPublisher announces committed imports
type EventPublisher interface {
	PublishCompanyCreated(ctx context.Context, c *models.Company) error
	PublishPositionsImported(ctx context.Context, event *models.ImportEvent) error
}

// Config tunes the pipeline
type Config struct {
	Policy        FailurePolicy
	Concurrency   int
	LookupTimeout time.Duration
}

// ImportResult describes a committed batch
type ImportResult struct {
	BatchID          string             `json:"batch_id"`
	PortfolioID      int                `json:"portfolio_id"`
	Positions        []*models.Position `json:"positions"`
	CreatedCompanies []string           `json:"created_companies"`
}

// Pipeline imports position uploads
type Pipeline struct {
	store     Store
	validator *Validator
	resolver  *CompanyResolver
	events    EventPublisher
	cfg       Config
	log       zerolog.Logger
}

// NewPipeline creates an import pipeline. events may be nil.
func NewPipeline(store Store, validator *Validator, resolver *CompanyResolver, events EventPublisher, cfg Config, log zerolog.Logger) *Pipeline {
	if cfg.Policy == "" {
		cfg.Policy = PolicyFailFast
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	return &Pipeline{
		store:     store,
		validator: validator,
		resolver:  resolver,
		events:    events,
		cfg:       cfg,
		log:       log.With().Str("component", "importer").Logger(),
	}
}

// ImportPositions parses upload, validates every row, resolves the referenced
// companies and commits companies and positions together. On any failure
// nothing is persisted and the returned error is one of *ParseError,
// *ValidationError, *ResolutionError, ErrPortfolioNotFound or *CommitError.
func (p *Pipeline) ImportPositions(ctx context.Context, portfolioID int, upload []byte) (*ImportResult, error) {
	rows, err := ParseCSV(upload)
	if err != nil {
		return nil, err
	}

	positions, err := p.validate(rows)
	if err != nil {
		return nil, err
	}

	if _, err := p.store.GetPortfolio(ctx, portfolioID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("portfolio %d: %w", portfolioID, ErrPortfolioNotFound)
		}
		return nil, err
	}

	companies, err := p.resolveCompanies(ctx, rows, positions)
	if err != nil {
		return nil, err
	}

	var newCompanies []*models.Company
	for _, res := range companies {
		if res.New {
			newCompanies = append(newCompanies, res.Company)
		}
	}
	byTicker := make(map[string]*models.Company, len(companies))
	for _, res := range companies {
		byTicker[res.Company.Ticker] = res.Company
	}
	for _, pos := range positions {
		pos.PortfolioID = portfolioID
	}

	created, err := p.store.ImportBatch(ctx, newCompanies, positions)
	if err != nil {
		return nil, &CommitError{Err: err}
	}

	p.refreshRaced(ctx, newCompanies, created, byTicker)
	for _, pos := range positions {
		pos.Company = byTicker[pos.CompanyTicker]
	}

	result := &ImportResult{
		BatchID:          uuid.NewString(),
		PortfolioID:      portfolioID,
		Positions:        positions,
		CreatedCompanies: created,
	}
	p.log.Info().
		Str("batch_id", result.BatchID).
		Int("portfolio_id", portfolioID).
		Int("positions", len(positions)).
		Strs("created_companies", created).
		Msg("Positions imported")

	p.publish(ctx, result, byTicker)
	return result, nil
}

// refreshRaced replaces companies that another writer inserted between
// resolution and commit with the stored rows
func (p *Pipeline) refreshRaced(ctx context.Context, candidates []*models.Company, created []string, byTicker map[string]*models.Company) {
	inserted := make(map[string]bool, len(created))
	for _, ticker := range created {
		inserted[ticker] = true
	}

	for _, c := range candidates {
		if inserted[c.Ticker] {
			continue
		}
		stored, err := p.store.GetCompany(ctx, c.Ticker)
		if err != nil {
			p.log.Warn().Err(err).Str("ticker", c.Ticker).Msg("Failed to reload company created concurrently")
			continue
		}
		byTicker[c.Ticker] = stored
	}
}

func (p *Pipeline) validate(rows []Row) ([]*models.Position, error) {
	positions := make([]*models.Position, 0, len(rows))
	var invalid []*RowError

	for _, row := range rows {
		pos, rowErr := p.validator.ValidateRow(row)
		if rowErr != nil {
			invalid = append(invalid, rowErr)
			if p.cfg.Policy == PolicyFailFast {
				break
			}
			continue
		}
		positions = append(positions, pos)
	}

	if len(invalid) > 0 {
		return nil, &ValidationError{Rows: invalid}
	}
	return positions, nil
}

// resolveCompanies resolves each distinct ticker once, in order of first appearance
func (p *Pipeline) resolveCompanies(ctx context.Context, rows []Row, positions []*models.Position) ([]*Resolution, error) {
	var tickers []string
	firstRow := map[string]int{}
	for i, pos := range positions {
		if _, seen := firstRow[pos.CompanyTicker]; !seen {
			firstRow[pos.CompanyTicker] = rows[i].Index
			tickers = append(tickers, pos.CompanyTicker)
		}
	}

	results := make([]*Resolution, len(tickers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	for i, ticker := range tickers {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(gctx, p.cfg.LookupTimeout)
			defer cancel()

			res, err := p.resolver.Resolve(lctx, ticker)
			if err != nil {
				var resErr *ResolutionError
				if errors.As(err, &resErr) {
					resErr.Row = firstRow[ticker]
				}
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) publish(ctx context.Context, result *ImportResult, companies map[string]*models.Company) {
	if p.events == nil {
		return
	}

	for _, ticker := range result.CreatedCompanies {
		if err := p.events.PublishCompanyCreated(ctx, companies[ticker]); err != nil {
			p.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to publish company created event")
		}
	}

	ids := make([]int, len(result.Positions))
	for i, pos := range result.Positions {
		ids[i] = pos.ID
	}
	event := &models.ImportEvent{
		EventType:        models.EventPositionsImported,
		BatchID:          result.BatchID,
		PortfolioID:      result.PortfolioID,
		PositionIDs:      ids,
		CreatedCompanies: result.CreatedCompanies,
		Timestamp:        time.Now().UTC(),
	}
	if err := p.events.PublishPositionsImported(ctx, event); err != nil {
		p.log.Warn().Err(err).Str("batch_id", result.BatchID).Msg("Failed to publish import event")
	}
}
