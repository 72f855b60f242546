package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/cardmeta/bindex/internal/auth"
	"github.com/cardmeta/bindex/internal/model"
	"github.com/cardmeta/bindex/internal/service/directory"
	"github.com/cardmeta/bindex/internal/storage"
	"github.com/cardmeta/bindex/internal/web"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	dir       *directory.Service
	store     storage.Store
	sessions  *auth.SessionManager
	renderer  *web.Renderer
	adminUser string
	adminHash string
	logger    *slog.Logger
	version   string
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage string `json:"storage"`
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	storeStatus := "connected"
	httpStatus := http.StatusOK

	if err := h.store.Ping(r.Context()); err != nil {
		status = "unhealthy"
		storeStatus = "disconnected"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, r, httpStatus, HealthResponse{
		Status:  status,
		Version: h.version,
		Storage: storeStatus,
	})
}

// HandleGetBin handles GET /api/bin/{code}.
func (h *Handlers) HandleGetBin(w http.ResponseWriter, r *http.Request) {
	rec, err := h.dir.Lookup(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// HandleCreateBin handles POST /api/bin.
func (h *Handlers) HandleCreateBin(w http.ResponseWriter, r *http.Request) {
	var req model.BinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid JSON body")
		return
	}

	rec, err := h.dir.Create(r.Context(), req.Record())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, rec)
}

// HandleUpdateBin handles PUT /api/bin/{code}. Absent body fields leave the
// stored values untouched.
func (h *Handlers) HandleUpdateBin(w http.ResponseWriter, r *http.Request) {
	var req model.BinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid JSON body")
		return
	}

	rec, err := h.dir.Update(r.Context(), r.PathValue("code"), req.Patch())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rec)
}

// HandleDeleteBin handles DELETE /api/bin/{code}.
func (h *Handlers) HandleDeleteBin(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := h.dir.Delete(r.Context(), code); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"deleted": code})
}

// HandleReport handles POST /api/report/{code}: a public correction
// submission. The body carries the proposed attributes; the code comes from
// the path. An absent body is treated as an empty report, not an error.
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req model.BinRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, "invalid JSON body")
		return
	}
	req.Code = r.PathValue("code")

	rec := req.Record()
	sub, err := h.dir.Submit(r.Context(), model.Submission{
		Code:            rec.Code,
		Category:        rec.Category,
		Reloadable:      rec.Reloadable,
		International:   rec.International,
		MaxBalance:      rec.MaxBalance,
		Company:         rec.Company,
		Country:         rec.Country,
		CustomerService: rec.CustomerService,
		Distributor:     rec.Distributor,
		Issuer:          rec.Issuer,
		CardType:        rec.CardType,
		WebsiteURL:      rec.WebsiteURL,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, sub)
}

// writeServiceError maps service and storage errors onto the HTTP error
// taxonomy.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, directory.ErrValidation):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeValidation, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no record for that code")
	case errors.Is(err, storage.ErrConflict):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeConflict, "a record with that code already exists")
	default:
		h.logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, "internal error")
	}
}
