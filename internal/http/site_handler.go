package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/marinagate/internal/application"
)

type siteService interface {
	List(ctx context.Context) ([]application.Site, error)
	Create(ctx context.Context, principal application.Principal, input application.SiteInput) (application.Site, error)
	Delete(ctx context.Context, principal application.Principal, id string) error
}

type SiteHandler struct {
	service   siteService
	responder responder
	logger    *slog.Logger
}

func NewSiteHandler(service siteService, logger *slog.Logger) *SiteHandler {
	base := defaultLogger(logger)
	return &SiteHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SiteHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SiteHandler", operation, attrs...)
}

func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sites, err := h.service.List(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "site list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]siteDTO, 0, len(sites))
	for _, site := range sites {
		out = append(out, toSiteDTO(site))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSitesResponse{Sites: out})
}

func (h *SiteHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req siteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode site request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create", "site_id", req.ID)
	site, err := h.service.Create(r.Context(), principal, application.SiteInput{ID: req.ID, Name: req.Name})
	if err != nil {
		logger.ErrorContext(r.Context(), "site creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "site created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, siteResponse{Site: toSiteDTO(site)})
}

func (h *SiteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	siteID := strings.TrimSpace(chi.URLParam(r, "siteID"))
	if siteID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "site_id", siteID)
	if err := h.service.Delete(r.Context(), principal, siteID); err != nil {
		logger.ErrorContext(r.Context(), "site delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "site deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type siteRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type siteDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

type siteResponse struct {
	Site siteDTO `json:"site"`
}

type listSitesResponse struct {
	Sites []siteDTO `json:"sites"`
}

func toSiteDTO(site application.Site) siteDTO {
	return siteDTO{ID: site.ID, Name: site.Name, CreatedAt: formatTimestamp(site.CreatedAt)}
}
