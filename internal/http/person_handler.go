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

type personDirectory interface {
	Create(ctx context.Context, principal application.Principal, input application.PersonInput) (application.Person, error)
	Update(ctx context.Context, principal application.Principal, personID string, patch application.PersonPatch) (application.Person, error)
	Delete(ctx context.Context, principal application.Principal, personID string) error
	Get(ctx context.Context, principal application.Principal, personID string) (application.Person, error)
	List(ctx context.Context, principal application.Principal, search string) ([]application.Person, error)
}

type personLedger interface {
	CanEnter(ctx context.Context, principal application.Principal, personID string) (application.EntryCheck, error)
	ListMovementsFor(ctx context.Context, principal application.Principal, personID string) ([]application.Movement, error)
}

type PersonHandler struct {
	directory personDirectory
	ledger    personLedger
	responder responder
	logger    *slog.Logger
}

func NewPersonHandler(directory personDirectory, ledger personLedger, logger *slog.Logger) *PersonHandler {
	base := defaultLogger(logger)
	return &PersonHandler{directory: directory, ledger: ledger, responder: newResponder(base), logger: base}
}

func (h *PersonHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "PersonHandler", operation, attrs...)
}

func (h *PersonHandler) ready(w http.ResponseWriter) bool {
	if h == nil || h.directory == nil || h.ledger == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return false
	}
	return true
}

// List serves GET /people?q=term.
func (h *PersonHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	people, err := h.directory.List(r.Context(), principal, r.URL.Query().Get("q"))
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "person list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]personDTO, 0, len(people))
	for _, p := range people {
		out = append(out, toPersonDTO(p))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPeopleResponse{People: out})
}

func (h *PersonHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	personID := strings.TrimSpace(chi.URLParam(r, "personID"))
	principal, _ := PrincipalFromContext(r.Context())
	person, err := h.directory.Get(r.Context(), principal, personID)
	if err != nil {
		h.log(r.Context(), "Get", "person_id", personID).ErrorContext(r.Context(), "person lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, personResponse{Person: toPersonDTO(person)})
}

func (h *PersonHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode person request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Create")
	person, err := h.directory.Create(r.Context(), principal, application.PersonInput{
		Name:     req.Name,
		Document: req.Document,
		Category: application.Category(req.Category),
		Contact:  req.Contact,
		Plate:    req.Plate,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "person creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("person_id", person.ID).InfoContext(r.Context(), "person created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, personResponse{Person: toPersonDTO(person)})
}

func (h *PersonHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	personID := strings.TrimSpace(chi.URLParam(r, "personID"))
	var req personPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Update", "person_id", personID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode person patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch := application.PersonPatch{
		Name:     req.Name,
		Document: req.Document,
		Contact:  req.Contact,
		Plate:    req.Plate,
	}
	if req.Category != nil {
		category := application.Category(*req.Category)
		patch.Category = &category
	}

	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Update", "person_id", personID)
	person, err := h.directory.Update(r.Context(), principal, personID, patch)
	if err != nil {
		logger.ErrorContext(r.Context(), "person update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "person updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, personResponse{Person: toPersonDTO(person)})
}

func (h *PersonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	personID := strings.TrimSpace(chi.URLParam(r, "personID"))
	principal, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "person_id", personID)
	if err := h.directory.Delete(r.Context(), principal, personID); err != nil {
		logger.ErrorContext(r.Context(), "person delete failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "person deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// CanEnter serves GET /people/{personID}/can-enter.
func (h *PersonHandler) CanEnter(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	personID := strings.TrimSpace(chi.URLParam(r, "personID"))
	principal, _ := PrincipalFromContext(r.Context())
	check, err := h.ledger.CanEnter(r.Context(), principal, personID)
	if err != nil {
		h.log(r.Context(), "CanEnter", "person_id", personID).ErrorContext(r.Context(), "entry check failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, entryCheckResponse{Allowed: check.Allowed, Reason: check.Reason})
}

// Movements serves GET /people/{personID}/movements.
func (h *PersonHandler) Movements(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	personID := strings.TrimSpace(chi.URLParam(r, "personID"))
	principal, _ := PrincipalFromContext(r.Context())
	movements, err := h.ledger.ListMovementsFor(r.Context(), principal, personID)
	if err != nil {
		h.log(r.Context(), "Movements", "person_id", personID).ErrorContext(r.Context(), "movement list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]movementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementDTO(m))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listMovementsResponse{Movements: out})
}

type personRequest struct {
	Name     string  `json:"name"`
	Document string  `json:"document"`
	Category string  `json:"category"`
	Contact  *string `json:"contact"`
	Plate    *string `json:"plate"`
}

type personPatchRequest struct {
	Name     *string `json:"name"`
	Document *string `json:"document"`
	Category *string `json:"category"`
	Contact  *string `json:"contact"`
	Plate    *string `json:"plate"`
}

type personDTO struct {
	ID        string  `json:"id"`
	SiteID    string  `json:"site_id"`
	Name      string  `json:"name"`
	Document  string  `json:"document"`
	Category  string  `json:"category"`
	Contact   *string `json:"contact,omitempty"`
	Plate     *string `json:"plate,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type personResponse struct {
	Person personDTO `json:"person"`
}

type listPeopleResponse struct {
	People []personDTO `json:"people"`
}

type entryCheckResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func toPersonDTO(p application.Person) personDTO {
	return personDTO{
		ID:        p.ID,
		SiteID:    p.SiteID,
		Name:      p.Name,
		Document:  p.Document,
		Category:  string(p.Category),
		Contact:   p.Contact,
		Plate:     p.Plate,
		CreatedAt: formatTimestamp(p.CreatedAt),
		UpdatedAt: formatTimestamp(p.UpdatedAt),
	}
}
