package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-monitor/internal/currency"
	"github.com/trogers1052/portfolio-monitor/internal/database"
	"github.com/trogers1052/portfolio-monitor/internal/importer"
	"github.com/trogers1052/portfolio-monitor/internal/marketdata"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

// Store is the persistence used by the handlers
type Store interface {
	Ping(ctx context.Context) error

	CreateCompany(ctx context.Context, c *models.Company) error
	GetCompany(ctx context.Context, ticker string) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]*models.Company, error)
	UpdateCompany(ctx context.Context, ticker string, u *models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, ticker string) error

	CreatePortfolio(ctx context.Context, p *models.Portfolio) error
	GetPortfolio(ctx context.Context, id int) (*models.Portfolio, error)
	ListPortfolios(ctx context.Context) ([]*models.Portfolio, error)
	RenamePortfolio(ctx context.Context, id int, name string) (*models.Portfolio, error)
	DeletePortfolio(ctx context.Context, id int) error

	CreatePosition(ctx context.Context, p *models.Position) error
	GetPosition(ctx context.Context, id int) (*models.Position, error)
	ListPositions(ctx context.Context) ([]*models.Position, error)
	ListPortfolioPositions(ctx context.Context, portfolioID int) ([]*models.Position, error)
	UpdatePosition(ctx context.Context, id int, u *models.PositionUpdate) (*models.Position, error)
	DeletePosition(ctx context.Context, id int) error

	UpsertPrice(ctx context.Context, p *models.Price) error
	UpsertPriceBatch(ctx context.Context, prices []*models.Price) error
	GetPrice(ctx context.Context, ticker string, date time.Time) (*models.Price, error)
	ListPrices(ctx context.Context, ticker string) ([]*models.Price, error)
	UpdatePrice(ctx context.Context, p *models.Price) error
	DeletePrice(ctx context.Context, ticker string, date time.Time) error
}

// Importer imports position uploads
type Importer interface {
	ImportPositions(ctx context.Context, portfolioID int, upload []byte) (*importer.ImportResult, error)
}

// CompanyEnsurer resolves or creates companies from market data
type CompanyEnsurer interface {
	EnsureCompany(ctx context.Context, ticker string) (*models.Company, bool, error)
}

// EventPublisher announces company changes
type EventPublisher interface {
	PublishCompanyCreated(ctx context.Context, c *models.Company) error
	PublishCompanyDeleted(ctx context.Context, ticker string) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store          Store
	importer       Importer
	companies      CompanyEnsurer
	events         EventPublisher
	currencies     *currency.Resolver
	validator      *importer.Validator
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(store Store, imp Importer, companies CompanyEnsurer, events EventPublisher, maxUploadBytes int64, log zerolog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &Handler{
		store:          store,
		importer:       imp,
		companies:      companies,
		events:         events,
		currencies:     currency.Default,
		validator:      importer.NewValidator(currency.Default),
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "api").Logger(),
	}
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// errorResponse is the body of every failed request
type errorResponse struct {
	Detail string               `json:"detail"`
	Errors []*importer.RowError `json:"errors,omitempty"`
}

// badRequest marks malformed client input
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string {
	return e.msg
}

func invalid(msg string) error {
	return &badRequest{msg: msg}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError translates err into a status code and a detail body
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badReq    *badRequest
		parseErr  *importer.ParseError
		valErr    *importer.ValidationError
		resErr    *importer.ResolutionError
		commitErr *importer.CommitError
	)

	status := http.StatusInternalServerError
	body := errorResponse{Detail: err.Error()}

	switch {
	case errors.As(err, &badReq), errors.As(err, &parseErr):
		status = http.StatusBadRequest
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
		body.Errors = valErr.Rows
	case errors.As(err, &resErr):
		status = http.StatusBadGateway
		if errors.Is(err, marketdata.ErrNotFound) {
			status = http.StatusNotFound
		}
	case errors.Is(err, importer.ErrPortfolioNotFound):
		status = http.StatusNotFound
	case errors.As(err, &commitErr):
		if errors.Is(err, database.ErrConflict) || errors.Is(err, database.ErrForeignKey) || errors.Is(err, database.ErrCheck) {
			status = http.StatusConflict
		}
	case errors.Is(err, database.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrConflict), errors.Is(err, database.ErrForeignKey), errors.Is(err, database.ErrCheck):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		if status == http.StatusInternalServerError {
			body.Detail = "internal server error"
		}
	}
	respondJSON(w, status, body)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("invalid request body: " + err.Error())
	}
	return nil
}

func pathInt(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, invalid("invalid " + name)
	}
	return id, nil
}

func pathDate(r *http.Request, name string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, mux.Vars(r)[name])
	if err != nil {
		return time.Time{}, invalid("invalid " + name + ", expected YYYY-MM-DD")
	}
	return d, nil
}
