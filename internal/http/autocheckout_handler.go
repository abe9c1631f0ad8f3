package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/marinagate/internal/application"
)

type autoCheckoutService interface {
	RunAutoCheckout(ctx context.Context, principal application.Principal, thresholdHours float64) (int, error)
	FindNearingThreshold(ctx context.Context, principal application.Principal, thresholdHours, warnWindowHours float64) ([]application.NearingEntry, error)
}

// AutoCheckoutDefaults supplies thresholds when a request omits them.
type AutoCheckoutDefaults struct {
	ThresholdHours  float64
	WarnWindowHours float64
}

type AutoCheckoutHandler struct {
	service   autoCheckoutService
	defaults  AutoCheckoutDefaults
	responder responder
	logger    *slog.Logger
}

func NewAutoCheckoutHandler(service autoCheckoutService, defaults AutoCheckoutDefaults, logger *slog.Logger) *AutoCheckoutHandler {
	base := defaultLogger(logger)
	return &AutoCheckoutHandler{service: service, defaults: defaults, responder: newResponder(base), logger: base}
}

func (h *AutoCheckoutHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AutoCheckoutHandler", operation, attrs...)
}

// Run serves POST /auto-checkout. The body may carry threshold_hours.
func (h *AutoCheckoutHandler) Run(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req autoCheckoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "Run", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode auto-checkout request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}
	threshold := h.defaults.ThresholdHours
	if req.ThresholdHours != nil {
		threshold = *req.ThresholdHours
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Run", "threshold_hours", threshold)
	closed, err := h.service.RunAutoCheckout(r.Context(), principal, threshold)
	if err != nil && closed == 0 {
		logger.ErrorContext(r.Context(), "auto-checkout failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := autoCheckoutResponse{Closed: closed, ThresholdHours: threshold}
	if err != nil {
		logger.WarnContext(r.Context(), "auto-checkout partially failed", "error", err, "closed", closed)
		resp.Partial = true
	}
	logger.InfoContext(r.Context(), "auto-checkout completed", "closed", closed)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// Nearing serves GET /movements/nearing?threshold_hours=&warn_hours=.
func (h *AutoCheckoutHandler) Nearing(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	threshold, err := floatParam(r, "threshold_hours", h.defaults.ThresholdHours)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNumber)
		return
	}
	warn, err := floatParam(r, "warn_hours", h.defaults.WarnWindowHours)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNumber)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	entries, err := h.service.FindNearingThreshold(r.Context(), principal, threshold, warn)
	if err != nil {
		h.log(r.Context(), "Nearing").ErrorContext(r.Context(), "nearing query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]nearingDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, nearingDTO{
			Movement:         toMovementDTO(e.Movement),
			Person:           toPersonDTO(e.Person),
			ElapsedMinutes:   int(e.Elapsed.Minutes()),
			RemainingMinutes: int(e.Remaining.Minutes()),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, nearingResponse{
		ThresholdHours:  threshold,
		WarnWindowHours: warn,
		Entries:         out,
	})
}

func floatParam(r *http.Request, key string, fallback float64) (float64, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(value, 64)
}

type autoCheckoutRequest struct {
	ThresholdHours *float64 `json:"threshold_hours"`
}

type autoCheckoutResponse struct {
	Closed         int     `json:"closed"`
	ThresholdHours float64 `json:"threshold_hours"`
	Partial        bool    `json:"partial,omitempty"`
}

type nearingDTO struct {
	Movement         movementDTO `json:"movement"`
	Person           personDTO   `json:"person"`
	ElapsedMinutes   int         `json:"elapsed_minutes"`
	RemainingMinutes int         `json:"remaining_minutes"`
}

type nearingResponse struct {
	ThresholdHours  float64      `json:"threshold_hours"`
	WarnWindowHours float64      `json:"warn_window_hours"`
	Entries         []nearingDTO `json:"entries"`
}
