package leave

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/leavekeeper/leavekeeper/internal/platform/httpx"
)

// Handler serves the intake HTTP API.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	location *time.Location
}

// NewHandler constructs the intake handler. loc is the reference timezone for
// wall-clock instants.
func NewHandler(logger *slog.Logger, service *Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		location: loc,
	}
}

// MountRoutes attaches leave routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/leaves", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.Input(h.location)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := h.service.Schedule(r.Context(), input)
	if err != nil {
		h.logger.Warn("schedule leave failed", slog.String("account_id", req.AccountID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "period id must be a UUID")
		return
	}
	period, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{
		AccountID: r.URL.Query().Get("account_id"),
		Limit:     50,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Status", "status must be pending, active, or completed")
			return
		}
		req.Status = &status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 1000 {
			req.Limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			req.Offset = parsed
		}
	}

	periods, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list leaves failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if periods == nil {
		periods = []Period{}
	}
	httpx.JSON(w, http.StatusOK, ListResponse{
		Periods: periods,
		Total:   total,
		Limit:   req.Limit,
		Offset:  req.Offset,
	})
}
