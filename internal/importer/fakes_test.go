package importer

import (
	"context"
	"fmt"
	"sync"

	"github.com/trogers1052/portfolio-monitor/internal/database"
	"github.com/trogers1052/portfolio-monitor/internal/marketdata"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

// memStore is an in-memory Store
type memStore struct {
	mu         sync.Mutex
	companies  map[string]*models.Company
	portfolios map[int]*models.Portfolio
	positions  []*models.Position
	nextID     int
	commitErr  error
	batches    int
	// beforeBatch runs inside ImportBatch, under the lock
	beforeBatch func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		companies:  map[string]*models.Company{},
		portfolios: map[int]*models.Portfolio{1: {ID: 1, Name: "Main"}},
	}
}

func (s *memStore) GetCompany(_ context.Context, ticker string) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.companies[ticker]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("company %s: %w", ticker, database.ErrNotFound)
}

func (s *memStore) CreateCompanyIfAbsent(_ context.Context, c *models.Company) (*models.Company, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.companies[c.Ticker]; ok {
		return existing, false, nil
	}
	s.companies[c.Ticker] = c
	return c, true, nil
}

func (s *memStore) GetPortfolio(_ context.Context, id int) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.portfolios[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("portfolio %d: %w", id, database.ErrNotFound)
}

func (s *memStore) ImportBatch(_ context.Context, companies []*models.Company, positions []*models.Position) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	if s.beforeBatch != nil {
		s.beforeBatch(s)
	}
	if s.commitErr != nil {
		return nil, s.commitErr
	}

	created := []string{}
	for _, c := range companies {
		if _, ok := s.companies[c.Ticker]; !ok {
			s.companies[c.Ticker] = c
			created = append(created, c.Ticker)
		}
	}
	for _, p := range positions {
		s.nextID++
		p.ID = s.nextID
		s.positions = append(s.positions, p)
	}
	return created, nil
}

func (s *memStore) companyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.companies)
}

// fakeMarket answers lookups from a fixed table
type fakeMarket struct {
	mu     sync.Mutex
	quotes map[string]*marketdata.Quote
	errs   map[string]error
	calls  map[string]int
	block  chan struct{}
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		quotes: map[string]*marketdata.Quote{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (m *fakeMarket) add(ticker, name string, sector ...string) {
	q := &marketdata.Quote{Ticker: ticker, Name: name}
	if len(sector) > 0 {
		q.Sector = &sector[0]
	}
	m.quotes[ticker] = q
}

func (m *fakeMarket) Lookup(ctx context.Context, ticker string) (*marketdata.Quote, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[ticker]++
	if err, ok := m.errs[ticker]; ok {
		return nil, err
	}
	if q, ok := m.quotes[ticker]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("%s: %w", ticker, marketdata.ErrNotFound)
}

func (m *fakeMarket) callCount(ticker string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[ticker]
}

// recordingPublisher keeps published events
type recordingPublisher struct {
	mu        sync.Mutex
	companies []string
	imports   []*models.ImportEvent
}

func (r *recordingPublisher) PublishCompanyCreated(_ context.Context, c *models.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies = append(r.companies, c.Ticker)
	return nil
}

func (r *recordingPublisher) PublishPositionsImported(_ context.Context, e *models.ImportEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.imports = append(r.imports, e)
	return nil
}
