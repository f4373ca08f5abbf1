package api

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/trogers1052/portfolio-monitor/internal/models"
)

type companyRequest struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Sector *string `json:"sector"`
}

// ListCompanies handles GET /companies
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.store.ListCompanies(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, companies)
}

// GetCompany handles GET /companies/{ticker}
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.store.GetCompany(r.Context(), tickerVar(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// CreateCompany handles POST /companies
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	company := &models.Company{
		Ticker: strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Name:   strings.TrimSpace(req.Name),
		Sector: req.Sector,
	}
	if err := validateTicker(company.Ticker); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := validateText("name", company.Name, models.MaxCompanyNameLength, true); err != nil {
		h.respondError(w, r, err)
		return
	}
	if company.Sector != nil {
		if err := validateText("sector", *company.Sector, models.MaxSectorLength, false); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	if err := h.store.CreateCompany(r.Context(), company); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.publishCompanyCreated(r, company)
	respondJSON(w, http.StatusCreated, company)
}

// EnsureCompany handles POST /companies/{ticker}/ensure
func (h *Handler) EnsureCompany(w http.ResponseWriter, r *http.Request) {
	ticker := tickerVar(r)
	if err := validateTicker(ticker); err != nil {
		h.respondError(w, r, err)
		return
	}

	company, created, err := h.companies.EnsureCompany(r.Context(), ticker)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if !created {
		respondJSON(w, http.StatusOK, company)
		return
	}
	h.publishCompanyCreated(r, company)
	respondJSON(w, http.StatusCreated, company)
}

// UpdateCompany handles PUT /companies/{ticker}
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	var req models.CompanyUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Name != nil {
		if err := validateText("name", *req.Name, models.MaxCompanyNameLength, true); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	if req.Sector != nil {
		if err := validateText("sector", *req.Sector, models.MaxSectorLength, false); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	company, err := h.store.UpdateCompany(r.Context(), tickerVar(r), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, company)
}

// DeleteCompany handles DELETE /companies/{ticker}
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	ticker := tickerVar(r)
	if err := h.store.DeleteCompany(r.Context(), ticker); err != nil {
		h.respondError(w, r, err)
		return
	}

	if h.events != nil {
		if err := h.events.PublishCompanyDeleted(r.Context(), ticker); err != nil {
			h.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to publish company deleted event")
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publishCompanyCreated(r *http.Request, company *models.Company) {
	if h.events == nil {
		return
	}
	if err := h.events.PublishCompanyCreated(r.Context(), company); err != nil {
		h.log.Warn().Err(err).Str("ticker", company.Ticker).Msg("Failed to publish company created event")
	}
}

func tickerVar(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["ticker"]))
}

func validateTicker(ticker string) error {
	if ticker == "" {
		return invalid("ticker is required")
	}
	if len(ticker) > models.MaxTickerLength {
		return invalid(fmt.Sprintf("ticker must be at most %d characters", models.MaxTickerLength))
	}
	return nil
}

func validateText(field, value string, max int, required bool) error {
	if required && strings.TrimSpace(value) == "" {
		return invalid(field + " is required")
	}
	if utf8.RuneCountInString(value) > max {
		return invalid(field + " is too long")
	}
	return nil
}
