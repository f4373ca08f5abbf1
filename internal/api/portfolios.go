package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/trogers1052/portfolio-monitor/internal/models"
)

type portfolioRequest struct {
	Name string `json:"name"`
}

// ListPortfolios handles GET /portfolios
func (h *Handler) ListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.store.ListPortfolios(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, portfolios)
}

// GetPortfolio handles GET /portfolios/{id}
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	portfolio, err := h.store.GetPortfolio(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, portfolio)
}

// CreatePortfolio handles POST /portfolios
func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := validateText("name", name, models.MaxPortfolioNameLength, true); err != nil {
		h.respondError(w, r, err)
		return
	}

	portfolio := &models.Portfolio{Name: name}
	if err := h.store.CreatePortfolio(r.Context(), portfolio); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, portfolio)
}

// UpdatePortfolio handles PUT /portfolios/{id}
func (h *Handler) UpdatePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req portfolioRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := validateText("name", name, models.MaxPortfolioNameLength, true); err != nil {
		h.respondError(w, r, err)
		return
	}

	portfolio, err := h.store.RenamePortfolio(r.Context(), id, name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, portfolio)
}

// DeletePortfolio handles DELETE /portfolios/{id}
func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.store.DeletePortfolio(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPortfolioPositions handles GET /portfolios/{id}/positions
func (h *Handler) ListPortfolioPositions(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := h.store.GetPortfolio(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}

	positions, err := h.store.ListPortfolioPositions(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, positions)
}

// ImportPositions handles POST /portfolios/{id}/positions/import.
// The CSV is read from the multipart field "file" or, for other content types, the raw body.
func (h *Handler) ImportPositions(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	upload, err := h.readUpload(w, r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.importer.ImportPositions(r.Context(), id, upload)
	if err != nil {
		h.log.Info().Err(err).Int("portfolio_id", id).Msg("Import rejected")
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Batch-ID", result.BatchID)
	if len(result.CreatedCompanies) > 0 {
		w.Header().Set("X-Created-Companies", strings.Join(result.CreatedCompanies, ","))
	}
	w.Header().Set("X-Imported-Count", strconv.Itoa(len(result.Positions)))
	respondJSON(w, http.StatusCreated, result.Positions)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, uploadError(err)
		}
		return data, nil
	}

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return nil, uploadError(err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, invalid("multipart field \"file\" is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, uploadError(err)
	}
	return data, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return invalid("upload exceeds " + strconv.FormatInt(tooLarge.Limit, 10) + " bytes")
	}
	return invalid("failed to read upload: " + err.Error())
}
