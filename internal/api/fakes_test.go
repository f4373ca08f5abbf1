package api

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/trogers1052/portfolio-monitor/internal/database"
	"github.com/trogers1052/portfolio-monitor/internal/importer"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

// fakeStore is an in-memory Store. failWith forces an error from the calls that check it.
type fakeStore struct {
	mu         sync.Mutex
	companies  map[string]*models.Company
	portfolios map[int]*models.Portfolio
	positions  map[int]*models.Position
	prices     map[string]*models.Price
	nextID     int
	failWith   error
	pingErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		companies:  map[string]*models.Company{},
		portfolios: map[int]*models.Portfolio{},
		positions:  map[int]*models.Position{},
		prices:     map[string]*models.Price{},
	}
}

func priceKey(ticker string, date time.Time) string {
	return ticker + "/" + date.Format(models.DateLayout)
}

func (s *fakeStore) Ping(context.Context) error {
	return s.pingErr
}

func (s *fakeStore) CreateCompany(_ context.Context, c *models.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.companies[c.Ticker]; ok {
		return fmt.Errorf("failed to create company: %w", database.ErrConflict)
	}
	s.companies[c.Ticker] = c
	return nil
}

func (s *fakeStore) GetCompany(_ context.Context, ticker string) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	c, ok := s.companies[ticker]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", ticker, database.ErrNotFound)
	}
	return c, nil
}

func (s *fakeStore) ListCompanies(context.Context) ([]*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := []*models.Company{}
	for _, c := range s.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

func (s *fakeStore) UpdateCompany(_ context.Context, ticker string, u *models.CompanyUpdate) (*models.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[ticker]
	if !ok {
		return nil, fmt.Errorf("company %s: %w", ticker, database.ErrNotFound)
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Sector != nil {
		c.Sector = u.Sector
	}
	return c, nil
}

func (s *fakeStore) DeleteCompany(_ context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[ticker]; !ok {
		return fmt.Errorf("company %s: %w", ticker, database.ErrNotFound)
	}
	delete(s.companies, ticker)
	return nil
}

func (s *fakeStore) CreatePortfolio(_ context.Context, p *models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.nextID++
	p.ID = s.nextID
	s.portfolios[p.ID] = p
	return nil
}

func (s *fakeStore) GetPortfolio(_ context.Context, id int) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %d: %w", id, database.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) ListPortfolios(context.Context) ([]*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Portfolio{}
	for _, p := range s.portfolios {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) RenamePortfolio(_ context.Context, id int, name string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %d: %w", id, database.ErrNotFound)
	}
	p.Name = name
	return p, nil
}

func (s *fakeStore) DeletePortfolio(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[id]; !ok {
		return fmt.Errorf("portfolio %d: %w", id, database.ErrNotFound)
	}
	delete(s.portfolios, id)
	return nil
}

func (s *fakeStore) CreatePosition(_ context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[p.CompanyTicker]; !ok {
		return fmt.Errorf("failed to create position: %w", database.ErrForeignKey)
	}
	if _, ok := s.portfolios[p.PortfolioID]; !ok {
		return fmt.Errorf("failed to create position: %w", database.ErrForeignKey)
	}
	s.nextID++
	p.ID = s.nextID
	s.positions[p.ID] = p
	return nil
}

func (s *fakeStore) GetPosition(_ context.Context, id int) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %d: %w", id, database.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) ListPositions(context.Context) ([]*models.Position, error) {
	return s.ListPortfolioPositions(context.Background(), 0)
}

func (s *fakeStore) ListPortfolioPositions(_ context.Context, portfolioID int) ([]*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Position{}
	for _, p := range s.positions {
		if portfolioID == 0 || p.PortfolioID == portfolioID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdatePosition(_ context.Context, id int, u *models.PositionUpdate) (*models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return nil, fmt.Errorf("position %d: %w", id, database.ErrNotFound)
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	if u.Date != nil {
		p.Date = *u.Date
	}
	return p, nil
}

func (s *fakeStore) DeletePosition(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[id]; !ok {
		return fmt.Errorf("position %d: %w", id, database.ErrNotFound)
	}
	delete(s.positions, id)
	return nil
}

func (s *fakeStore) UpsertPrice(_ context.Context, p *models.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.companies[p.CompanyTicker]; !ok {
		return fmt.Errorf("failed to upsert price: %w", database.ErrForeignKey)
	}
	s.prices[priceKey(p.CompanyTicker, p.MarketDate)] = p
	return nil
}

func (s *fakeStore) UpsertPriceBatch(_ context.Context, prices []*models.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range prices {
		if _, ok := s.companies[p.CompanyTicker]; !ok {
			return fmt.Errorf("failed to upsert price %s: %w", p.CompanyTicker, database.ErrForeignKey)
		}
	}
	for _, p := range prices {
		s.prices[priceKey(p.CompanyTicker, p.MarketDate)] = p
	}
	return nil
}

func (s *fakeStore) GetPrice(_ context.Context, ticker string, date time.Time) (*models.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prices[priceKey(ticker, date)]
	if !ok {
		return nil, fmt.Errorf("price %s: %w", priceKey(ticker, date), database.ErrNotFound)
	}
	return p, nil
}

func (s *fakeStore) ListPrices(_ context.Context, ticker string) ([]*models.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Price{}
	for _, p := range s.prices {
		if ticker == "" || p.CompanyTicker == ticker {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return priceKey(out[i].CompanyTicker, out[i].MarketDate) < priceKey(out[j].CompanyTicker, out[j].MarketDate)
	})
	return out, nil
}

func (s *fakeStore) UpdatePrice(_ context.Context, p *models.Price) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := priceKey(p.CompanyTicker, p.MarketDate)
	if _, ok := s.prices[key]; !ok {
		return fmt.Errorf("price %s: %w", key, database.ErrNotFound)
	}
	s.prices[key] = p
	return nil
}

func (s *fakeStore) DeletePrice(_ context.Context, ticker string, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := priceKey(ticker, date)
	if _, ok := s.prices[key]; !ok {
		return fmt.Errorf("price %s: %w", key, database.ErrNotFound)
	}
	delete(s.prices, key)
	return nil
}

// fakeImporter records the upload and returns a canned outcome
type fakeImporter struct {
	upload      []byte
	portfolioID int
	result      *importer.ImportResult
	err         error
}

func (f *fakeImporter) ImportPositions(_ context.Context, portfolioID int, upload []byte) (*importer.ImportResult, error) {
	f.portfolioID = portfolioID
	f.upload = upload
	return f.result, f.err
}

// fakeEnsurer returns a canned company
type fakeEnsurer struct {
	company *models.Company
	created bool
	err     error
	calls   []string
}

func (f *fakeEnsurer) EnsureCompany(_ context.Context, ticker string) (*models.Company, bool, error) {
	f.calls = append(f.calls, ticker)
	return f.company, f.created, f.err
}

// recordingPublisher captures published company events
type recordingPublisher struct {
	mu      sync.Mutex
	created []string
	deleted []string
}

func (p *recordingPublisher) PublishCompanyCreated(_ context.Context, c *models.Company) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, c.Ticker)
	return nil
}

func (p *recordingPublisher) PublishCompanyDeleted(_ context.Context, ticker string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, ticker)
	return nil
}
