package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aroundtable/internal/family/models"
	"aroundtable/internal/platform/middleware"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/platform/httputil"
)

// Service defines the roster operations exposed over HTTP.
type Service interface {
	Add(ctx context.Context, name string) (*models.Family, error)
	Rename(ctx context.Context, familyID id.FamilyID, name string) (*models.Family, error)
	Remove(ctx context.Context, familyID id.FamilyID) error
	List(ctx context.Context) ([]*models.Family, error)
}

// Handler handles roster endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new family Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the roster routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/families", h.handleList)
	r.Post("/families", h.handleAdd)
	r.Put("/families/{id}", h.handleRename)
	r.Delete("/families/{id}", h.handleRemove)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	families, err := h.service.List(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to list families", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToListResponse(families))
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.AddFamilyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid add family request", err)
		return
	}

	f, err := h.service.Add(ctx, req.Name)
	if err != nil {
		h.fail(ctx, w, "failed to add family", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(f))
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, err := id.ParseFamilyID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "invalid family id", err)
		return
	}

	var req models.RenameFamilyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid rename family request", err)
		return
	}

	f, err := h.service.Rename(ctx, familyID, req.Name)
	if err != nil {
		h.fail(ctx, w, "failed to rename family", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(f))
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	familyID, err := id.ParseFamilyID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "invalid family id", err)
		return
	}

	if err := h.service.Remove(ctx, familyID); err != nil {
		h.fail(ctx, w, "failed to remove family", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail logs client errors at warn and everything else at error, then writes
// the error envelope.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if code, ok := dErrors.CodeOf(err); ok && code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err.Error())
	} else {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err.Error())
	}
	httputil.WriteError(w, err)
}
