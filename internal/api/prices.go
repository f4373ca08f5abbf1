package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

type priceRequest struct {
	CompanyTicker string          `json:"company_ticker"`
	MarketDate    string          `json:"market_date"`
	Close         decimal.Decimal `json:"close"`
	Currency      string          `json:"currency"`
}

type priceUpdateRequest struct {
	Close    decimal.Decimal `json:"close"`
	Currency string          `json:"currency"`
}

// ListPrices handles GET /prices with an optional ?ticker= filter
func (h *Handler) ListPrices(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	prices, err := h.store.ListPrices(r.Context(), ticker)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, prices)
}

// GetPrice handles GET /prices/{ticker}/{date}
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r, "date")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	price, err := h.store.GetPrice(r.Context(), tickerVar(r), date)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, price)
}

// CreatePrice handles POST /prices, replacing any close already stored for that day
func (h *Handler) CreatePrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	price, err := h.priceFromRequest(&req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.store.UpsertPrice(r.Context(), price); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, price)
}

// CreatePrices handles POST /prices/batch. All closes are stored or none.
func (h *Handler) CreatePrices(w http.ResponseWriter, r *http.Request) {
	var reqs []priceRequest
	if err := decodeJSON(r, &reqs); err != nil {
		h.respondError(w, r, err)
		return
	}
	if len(reqs) == 0 {
		h.respondError(w, r, invalid("at least one price is required"))
		return
	}

	prices := make([]*models.Price, 0, len(reqs))
	for i, req := range reqs {
		price, err := h.priceFromRequest(&req)
		if err != nil {
			h.respondError(w, r, invalid(fmt.Sprintf("price %d: %s", i+1, err)))
			return
		}
		prices = append(prices, price)
	}

	if err := h.store.UpsertPriceBatch(r.Context(), prices); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, prices)
}

// UpdatePrice handles PUT /prices/{ticker}/{date}
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r, "date")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req priceUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	price := &models.Price{CompanyTicker: tickerVar(r), MarketDate: date}
	if err := h.applyPrice(price, req.Close, req.Currency); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.store.UpdatePrice(r.Context(), price); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, price)
}

// DeletePrice handles DELETE /prices/{ticker}/{date}
func (h *Handler) DeletePrice(w http.ResponseWriter, r *http.Request) {
	date, err := pathDate(r, "date")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.DeletePrice(r.Context(), tickerVar(r), date); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) priceFromRequest(req *priceRequest) (*models.Price, error) {
	ticker := strings.ToUpper(strings.TrimSpace(req.CompanyTicker))
	if err := validateTicker(ticker); err != nil {
		return nil, err
	}
	date, err := parseDate("market_date", req.MarketDate)
	if err != nil {
		return nil, err
	}
	price := &models.Price{CompanyTicker: ticker, MarketDate: date}
	if err := h.applyPrice(price, req.Close, req.Currency); err != nil {
		return nil, err
	}
	return price, nil
}

func (h *Handler) applyPrice(p *models.Price, closePrice decimal.Decimal, cur string) error {
	if err := models.CheckAmount(closePrice); err != nil {
		return invalid("close " + err.Error())
	}
	code, err := h.currencies.Resolve(cur)
	if err != nil {
		return invalid("unsupported currency " + cur)
	}
	p.Close = closePrice
	p.Currency = code
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, invalid(field + " must look like 2024-01-05")
	}
	return d, nil
}
