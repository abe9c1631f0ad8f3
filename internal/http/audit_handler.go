package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/marinagate/internal/application"
)

type auditService interface {
	List(ctx context.Context, principal application.Principal, filter application.AuditFilter) ([]application.AuditEntry, error)
}

type AuditHandler struct {
	service   auditService
	responder responder
	logger    *slog.Logger
}

func NewAuditHandler(service auditService, logger *slog.Logger) *AuditHandler {
	base := defaultLogger(logger)
	return &AuditHandler{service: service, responder: newResponder(base), logger: base}
}

// List serves GET /audit-logs?site_id=&since=&limit=.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	filter := application.AuditFilter{SiteID: strings.TrimSpace(query.Get("site_id"))}
	if value := strings.TrimSpace(query.Get("since")); value != "" {
		since, err := time.Parse(time.RFC3339, value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimestamp)
			return
		}
		filter.Since = &since
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNumber)
			return
		}
		filter.Limit = limit
	}

	principal, _ := PrincipalFromContext(r.Context())
	entries, err := h.service.List(r.Context(), principal, filter)
	if err != nil {
		handlerLogger(r.Context(), h.logger, "AuditHandler", "List").ErrorContext(r.Context(), "audit list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]auditDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditDTO{
			ID:         e.ID,
			SiteID:     e.SiteID,
			UserID:     e.UserID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			EntityName: e.EntityName,
			Details:    e.Details,
			CreatedAt:  formatTimestamp(e.CreatedAt),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAuditResponse{Entries: out})
}

type auditDTO struct {
	ID         string         `json:"id"`
	SiteID     string         `json:"site_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	EntityName string         `json:"entity_name,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

type listAuditResponse struct {
	Entries []auditDTO `json:"entries"`
}
