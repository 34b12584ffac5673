package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aroundtable/internal/grouping/models"
	"aroundtable/internal/platform/middleware"
	sessionmodels "aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/platform/httputil"
)

// Service defines the grouping operations exposed over HTTP.
type Service interface {
	Generate(ctx context.Context, req models.GenerateRequest) (*models.DraftView, error)
	Get(ctx context.Context, draftID id.DraftID) (*models.DraftView, error)
	Move(ctx context.Context, draftID id.DraftID, req models.MoveRequest) (*models.DraftView, error)
	AddGroup(ctx context.Context, draftID id.DraftID) (*models.DraftView, error)
	Save(ctx context.Context, draftID id.DraftID) (*sessionmodels.Session, error)
}

// Handler handles grouping draft endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the grouping routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/groupings", h.handleGenerate)
	r.Get("/groupings/{id}", h.handleGet)
	r.Post("/groupings/{id}/moves", h.handleMove)
	r.Post("/groupings/{id}/groups", h.handleAddGroup)
	r.Post("/groupings/{id}/save", h.handleSave)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.GenerateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid generate request", err)
		return
	}

	view, err := h.service.Generate(ctx, req)
	if err != nil {
		h.fail(ctx, w, "failed to generate grouping", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResponse(view))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(ctx, draftID)
	if err != nil {
		h.fail(ctx, w, "failed to load grouping", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(view))
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	var req models.MoveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "invalid move request", err)
		return
	}

	view, err := h.service.Move(ctx, draftID, req)
	if err != nil {
		h.fail(ctx, w, "failed to move family", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(view))
}

func (h *Handler) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	view, err := h.service.AddGroup(ctx, draftID)
	if err != nil {
		h.fail(ctx, w, "failed to add group", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResponse(view))
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	draftID, ok := h.draftID(w, r)
	if !ok {
		return
	}
	session, err := h.service.Save(ctx, draftID)
	if err != nil {
		h.fail(ctx, w, "failed to save grouping", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.SavedResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
	})
}

func (h *Handler) draftID(w http.ResponseWriter, r *http.Request) (id.DraftID, bool) {
	draftID, err := id.ParseDraftID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(r.Context(), w, "invalid grouping id", err)
		return id.DraftID{}, false
	}
	return draftID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	if code, ok := dErrors.CodeOf(err); ok && code != dErrors.CodeInternal {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err.Error())
	} else {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err.Error())
	}
	httputil.WriteError(w, err)
}
