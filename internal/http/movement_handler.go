package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/marinagate/internal/application"
)

const civilDateLayout = "2006-01-02"

type movementLedger interface {
	RegisterEntry(ctx context.Context, principal application.Principal, personID string, observation *string) (application.Movement, error)
	RegisterExit(ctx context.Context, principal application.Principal, movementID string, exitAt *time.Time, observation *string) (application.Movement, error)
	UpdateMovement(ctx context.Context, principal application.Principal, movementID string, edit application.MovementEdit) (application.Movement, error)
	SoftDeleteMovement(ctx context.Context, principal application.Principal, movementID string) (application.Movement, error)
	ListInside(ctx context.Context, principal application.Principal) ([]application.InsideEntry, error)
	ListHistory(ctx context.Context, principal application.Principal, filter application.HistoryFilter) ([]application.MovementWithPerson, error)
}

type MovementHandler struct {
	ledger    movementLedger
	responder responder
	logger    *slog.Logger
}

func NewMovementHandler(ledger movementLedger, logger *slog.Logger) *MovementHandler {
	base := defaultLogger(logger)
	return &MovementHandler{ledger: ledger, responder: newResponder(base), logger: base}
}

func (h *MovementHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "MovementHandler", operation, attrs...)
}

func (h *MovementHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.ledger == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// RegisterEntry serves POST /movements.
func (h *MovementHandler) RegisterEntry(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.PersonID) == "" {
		h.log(r.Context(), "RegisterEntry", "error_kind", "bad_request").ErrorContext(r.Context(), "invalid entry request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "RegisterEntry", "person_id", req.PersonID)
	movement, err := h.ledger.RegisterEntry(r.Context(), principal, strings.TrimSpace(req.PersonID), req.Observation)
	if err != nil {
		logger.WarnContext(r.Context(), "entry rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("movement_id", movement.ID).InfoContext(r.Context(), "entry registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, movementResponse{Movement: toMovementDTO(movement)})
}

// RegisterExit serves POST /movements/{movementID}/exit.
func (h *MovementHandler) RegisterExit(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	movementID := strings.TrimSpace(chi.URLParam(r, "movementID"))
	var req exitRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "RegisterExit", "movement_id", movementID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode exit request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}
	exitAt, err := parseOptionalTimestamp(req.ExitAt)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimestamp)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "RegisterExit", "movement_id", movementID)
	movement, err := h.ledger.RegisterExit(r.Context(), principal, movementID, exitAt, req.Observation)
	if err != nil {
		logger.WarnContext(r.Context(), "exit rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "exit registered")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, movementResponse{Movement: toMovementDTO(movement)})
}

// Update serves PUT /movements/{movementID}.
func (h *MovementHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	movementID := strings.TrimSpace(chi.URLParam(r, "movementID"))
	var req editMovementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "movement_id", movementID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode movement edit", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	edit := application.MovementEdit{Observation: req.Observation}
	if strings.TrimSpace(req.EntryAt) != "" {
		entryAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EntryAt))
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimestamp)
			return
		}
		edit.EntryAt = entryAt
	}
	exitAt, err := parseOptionalTimestamp(req.ExitAt)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTimestamp)
		return
	}
	edit.ExitAt = exitAt

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "movement_id", movementID)
	movement, err := h.ledger.UpdateMovement(r.Context(), principal, movementID, edit)
	if err != nil {
		logger.WarnContext(r.Context(), "movement edit rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "movement updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, movementResponse{Movement: toMovementDTO(movement)})
}

// Delete serves DELETE /movements/{movementID} as a soft delete.
func (h *MovementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	movementID := strings.TrimSpace(chi.URLParam(r, "movementID"))
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "movement_id", movementID)
	movement, err := h.ledger.SoftDeleteMovement(r.Context(), principal, movementID)
	if err != nil {
		logger.WarnContext(r.Context(), "movement delete rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "movement soft-deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, movementResponse{Movement: toMovementDTO(movement)})
}

// Inside serves GET /movements/inside.
func (h *MovementHandler) Inside(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	entries, err := h.ledger.ListInside(r.Context(), principal)
	if err != nil {
		h.log(r.Context(), "Inside").ErrorContext(r.Context(), "inside list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]movementWithPersonDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, movementWithPersonDTO{Movement: toMovementDTO(e.Movement), Person: toPersonDTO(e.Person)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEntriesResponse{Entries: out})
}

// History serves GET /movements/history with the history filters as query
// parameters.
func (h *MovementHandler) History(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	filter, err := parseHistoryFilter(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	rows, err := h.ledger.ListHistory(r.Context(), principal, filter)
	if err != nil {
		h.log(r.Context(), "History").ErrorContext(r.Context(), "history query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]movementWithPersonDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, movementWithPersonDTO{Movement: toMovementDTO(row.Movement), Person: toPersonDTO(row.Person)})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listEntriesResponse{Entries: out})
}

// parseHistoryFilter reads date_from, date_to (YYYY-MM-DD), name, document,
// plate and exclude_deleted.
func parseHistoryFilter(query url.Values) (application.HistoryFilter, error) {
	filter := application.HistoryFilter{
		Name:     strings.TrimSpace(query.Get("name")),
		Document: strings.TrimSpace(query.Get("document")),
		Plate:    strings.TrimSpace(query.Get("plate")),
	}
	for key, dst := range map[string]**time.Time{"date_from": &filter.DateFrom, "date_to": &filter.DateTo} {
		value := strings.TrimSpace(query.Get(key))
		if value == "" {
			continue
		}
		date, err := time.Parse(civilDateLayout, value)
		if err != nil {
			return application.HistoryFilter{}, errInvalidDate
		}
		*dst = &date
	}
	if value := strings.TrimSpace(query.Get("exclude_deleted")); value != "" {
		exclude, err := strconv.ParseBool(value)
		if err != nil {
			return application.HistoryFilter{}, errBadRequestBody
		}
		filter.ExcludeDeleted = exclude
	}
	return filter, nil
}

func parseOptionalTimestamp(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type entryRequest struct {
	PersonID    string  `json:"person_id"`
	Observation *string `json:"observation"`
}

type exitRequest struct {
	ExitAt      *string `json:"exit_at"`
	Observation *string `json:"observation"`
}

type editMovementRequest struct {
	EntryAt     string  `json:"entry_at"`
	ExitAt      *string `json:"exit_at"`
	Observation *string `json:"observation"`
}

type movementDTO struct {
	ID          string  `json:"id"`
	SiteID      string  `json:"site_id"`
	PersonID    string  `json:"person_id"`
	EntryAt     string  `json:"entry_at"`
	ExitAt      *string `json:"exit_at,omitempty"`
	Status      string  `json:"status"`
	Observation *string `json:"observation,omitempty"`
	DeletedAt   *string `json:"deleted_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type movementWithPersonDTO struct {
	Movement movementDTO `json:"movement"`
	Person   personDTO   `json:"person"`
}

type movementResponse struct {
	Movement movementDTO `json:"movement"`
}

type listMovementsResponse struct {
	Movements []movementDTO `json:"movements"`
}

type listEntriesResponse struct {
	Entries []movementWithPersonDTO `json:"entries"`
}

func toMovementDTO(m application.Movement) movementDTO {
	return movementDTO{
		ID:          m.ID,
		SiteID:      m.SiteID,
		PersonID:    m.PersonID,
		EntryAt:     formatTimestamp(m.EntryAt),
		ExitAt:      formatOptionalTimestamp(m.ExitAt),
		Status:      string(m.Status),
		Observation: m.Observation,
		DeletedAt:   formatOptionalTimestamp(m.DeletedAt),
		CreatedAt:   formatTimestamp(m.CreatedAt),
		UpdatedAt:   formatTimestamp(m.UpdatedAt),
	}
}
