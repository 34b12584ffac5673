package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"aroundtable/internal/platform/middleware"
	"aroundtable/internal/session/models"
	id "aroundtable/pkg/domain"
	dErrors "aroundtable/pkg/domain-errors"
	"aroundtable/pkg/platform/httputil"
)

// Service defines the history operations exposed over HTTP.
type Service interface {
	List(ctx context.Context) ([]*models.View, error)
	Get(ctx context.Context, sessionID id.SessionID) (*models.View, error)
	Latest(ctx context.Context) (*models.View, error)
	Export(ctx context.Context, sessionID id.SessionID) (models.Export, error)
}

// Handler handles session history endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the session routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/sessions", h.handleList)
	r.Get("/sessions/latest", h.handleLatest)
	r.Get("/sessions/{id}", h.handleGet)
	r.Get("/sessions/{id}/export", h.handleExport)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := h.service.List(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to list sessions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListSessionsResponse{Sessions: sessions})
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.service.Latest(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to load latest session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "invalid session id", err)
		return
	}
	view, err := h.service.Get(ctx, sessionID)
	if err != nil {
		h.fail(ctx, w, "failed to load session", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(ctx, w, "invalid session id", err)
		return
	}
	export, err := h.service.Export(ctx, sessionID)
	if err != nil {
		h.fail(ctx, w, "failed to export session", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Body))
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
