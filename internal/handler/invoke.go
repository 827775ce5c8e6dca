// Package handler exposes the orchestrator over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ourobouros/samlocal/internal/debug"
	"github.com/ourobouros/samlocal/internal/model"
	"github.com/ourobouros/samlocal/internal/orchestrator"
	"github.com/ourobouros/samlocal/internal/service"
)

// InvokeService is the slice of the service layer the handlers need.
type InvokeService interface {
	Invoke(ctx context.Context, params service.InvokeParams) (*model.Run, error)
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]model.Run, error)
}

// InvokeHandler handles invocation and run-history requests.
type InvokeHandler struct {
	svc    InvokeService
	logger *slog.Logger
}

// NewInvokeHandler creates an InvokeHandler.
func NewInvokeHandler(svc InvokeService, logger *slog.Logger) *InvokeHandler {
	return &InvokeHandler{
		svc:    svc,
		logger: logger,
	}
}

type invokeRequest struct {
	Handler     string             `json:"handler"`
	Payload     string             `json:"payload"`
	Mode        orchestrator.Mode  `json:"mode"`
	TimeoutMS   int64              `json:"timeoutMs"`
	Breakpoints []debug.Breakpoint `json:"breakpoints"`
}

// HandleInvoke runs a handler once and responds with the recorded run.
// The request blocks until the run resolves or times out.
func (h *InvokeHandler) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid invoke request body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid request body",
		})
		return
	}

	h.logger.Info("invoking handler",
		slog.String("handler", req.Handler),
		slog.String("mode", req.Mode.String()),
	)

	run, err := h.svc.Invoke(r.Context(), service.InvokeParams{
		Handler:     req.Handler,
		Payload:     req.Payload,
		Mode:        req.Mode,
		Timeout:     time.Duration(req.TimeoutMS) * time.Millisecond,
		Breakpoints: req.Breakpoints,
	})
	if err != nil {
		h.logger.Error("invocation failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, run)
}

// HandleListRuns returns recorded runs, newest first.
func (h *InvokeHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	runs, err := h.svc.ListRuns(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// HandleGetRun returns one recorded run by ID.
func (h *InvokeHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.svc.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
