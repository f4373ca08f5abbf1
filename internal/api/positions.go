package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-monitor/internal/importer"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

type positionRequest struct {
	PortfolioID   int             `json:"portfolio_id"`
	CompanyTicker string          `json:"company_ticker"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Date          string          `json:"date"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
}

type positionUpdateRequest struct {
	PortfolioID   *int             `json:"portfolio_id"`
	CompanyTicker *string          `json:"company_ticker"`
	Type          *string          `json:"type"`
	Quantity      *decimal.Decimal `json:"quantity"`
	Date          *string          `json:"date"`
	Price         *decimal.Decimal `json:"price"`
	Currency      *string          `json:"currency"`
}

// ListPositions handles GET /positions
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.ListPositions(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// GetPosition handles GET /positions/{id}
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	position, err := h.store.GetPosition(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, position)
}

// CreatePosition handles POST /positions. The company must already exist.
func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.PortfolioID <= 0 {
		h.respondError(w, r, invalid("portfolio_id is required"))
		return
	}

	position, rowErr := h.validator.ValidateRow(importer.Row{
		Index:    1,
		Ticker:   strings.TrimSpace(req.CompanyTicker),
		Quantity: req.Quantity.String(),
		Date:     req.Date,
		Price:    req.Price.String(),
		Currency: req.Currency,
		Type:     req.Type,
	})
	if rowErr != nil {
		h.respondError(w, r, &importer.ValidationError{Rows: []*importer.RowError{rowErr}})
		return
	}
	position.PortfolioID = req.PortfolioID

	if err := h.store.CreatePosition(r.Context(), position); err != nil {
		h.respondError(w, r, err)
		return
	}

	created, err := h.store.GetPosition(r.Context(), position.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// UpdatePosition handles PUT /positions/{id}
func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req positionUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	update, err := h.positionUpdate(&req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	position, err := h.store.UpdatePosition(r.Context(), id, update)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, position)
}

// DeletePosition handles DELETE /positions/{id}
func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.DeletePosition(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) positionUpdate(req *positionUpdateRequest) (*models.PositionUpdate, error) {
	u := &models.PositionUpdate{PortfolioID: req.PortfolioID, Quantity: req.Quantity, Price: req.Price}

	if req.PortfolioID != nil && *req.PortfolioID <= 0 {
		return nil, invalid("portfolio_id must be positive")
	}
	if req.CompanyTicker != nil {
		ticker := strings.ToUpper(strings.TrimSpace(*req.CompanyTicker))
		if err := validateTicker(ticker); err != nil {
			return nil, err
		}
		u.CompanyTicker = &ticker
	}
	if req.Type != nil {
		t, ok := importer.ParseTransactionType(*req.Type)
		if !ok {
			return nil, invalid("type must be one of b, s, buy, sell")
		}
		u.Type = &t
	}
	if req.Quantity != nil {
		if err := models.CheckAmount(*req.Quantity); err != nil {
			return nil, invalid("quantity " + err.Error())
		}
	}
	if req.Price != nil {
		if err := models.CheckAmount(*req.Price); err != nil {
			return nil, invalid("price " + err.Error())
		}
	}
	if req.Date != nil {
		d, ok := importer.ParseDate(*req.Date)
		if !ok {
			return nil, invalid("date must look like 2024-01-05")
		}
		u.Date = &d
	}
	if req.Currency != nil {
		code, err := h.currencies.Resolve(*req.Currency)
		if err != nil {
			return nil, invalid("unsupported currency " + *req.Currency)
		}
		u.Currency = &code
	}
	return u, nil
}
