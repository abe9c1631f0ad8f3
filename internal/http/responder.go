package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/marinagate/internal/application"
)

var (
	errBadRequestBody   = errors.New("Formato de requisição inválido.")
	errInvalidID        = errors.New("Identificador inválido.")
	errInvalidDate      = errors.New("Data inválida. Use o formato AAAA-MM-DD.")
	errInvalidTimestamp = errors.New("Data e hora inválidas. Use o formato RFC 3339.")
	errInvalidNumber    = errors.New("Valor numérico inválido.")
	errMissingToken     = errors.New("Informe o token de acesso.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			Message: localizedStatusMessage(http.StatusUnprocessableEntity),
			Errors:  localizeValidationErrors(vErr),
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "E-mail ou senha incorretos.",
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrNoActiveSite):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: "NO_ACTIVE_SITE",
			Message:   "Nenhuma empresa selecionada.",
		})
	case errors.Is(err, application.ErrAlreadyInside):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_INSIDE", Message: "Pessoa já está dentro."})
	case errors.Is(err, application.ErrAlreadyExited):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXITED", Message: "A saída desta movimentação já foi registrada."})
	case errors.Is(err, application.ErrAlreadyDeleted):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_DELETED", Message: "Movimentação já excluída."})
	case errors.Is(err, application.ErrPersonInside):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "PERSON_INSIDE", Message: "Não é possível excluir uma pessoa que está dentro."})
	case errors.Is(err, application.ErrSiteInUse):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "SITE_IN_USE", Message: "A empresa ainda possui pessoas cadastradas."})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{ErrorCode: "ALREADY_EXISTS", Message: localizedStatusMessage(http.StatusConflict)})
	case errors.Is(err, application.ErrPersistence):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "BACKEND_UNAVAILABLE",
			Message:   localizedStatusMessage(http.StatusServiceUnavailable),
		})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Requisição inválida."
	case http.StatusUnauthorized:
		return "Autenticação necessária."
	case http.StatusForbidden:
		return "Você não tem permissão para executar esta operação."
	case http.StatusNotFound:
		return "Registro não encontrado."
	case http.StatusConflict:
		return "Registro já existe."
	case http.StatusUnprocessableEntity:
		return "Dados inválidos."
	case http.StatusServiceUnavailable:
		return "Serviço de dados indisponível. Tente novamente."
	default:
		return "Erro interno do servidor."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name is required":
		return "Nome é obrigatório."
	case "document is required":
		return "Documento é obrigatório."
	case "document already registered":
		return "Documento já cadastrado nesta empresa."
	case "category is invalid":
		return "Tipo de pessoa inválido."
	case "email is required":
		return "E-mail é obrigatório."
	case "email is invalid":
		return "E-mail inválido."
	case "role is invalid":
		return "Perfil inválido."
	case "site is required":
		return "Empresa é obrigatória."
	case "id is required":
		return "Identificador é obrigatório."
	case "id may only contain letters, digits, hyphens and underscores":
		return "O identificador só pode conter letras, números, hífens e sublinhados."
	case "entry is required":
		return "Data de entrada é obrigatória."
	case "exit must not be before entry":
		return "A saída não pode ser anterior à entrada."
	case "end date must not be before start date":
		return "A data final não pode ser anterior à data inicial."
	case "observation must contain a letter or digit":
		return "A observação deve conter ao menos uma letra ou número."
	case "cannot delete own account":
		return "Não é possível excluir a própria conta."
	case "cannot change own role":
		return "Não é possível alterar o próprio perfil."
	case "fixed site cannot be deleted":
		return "Empresas fixas não podem ser excluídas."
	case "threshold must be positive":
		return "O limite de horas deve ser positivo."
	case "warning window must not be negative":
		return "A janela de aviso não pode ser negativa."
	default:
		if strings.HasPrefix(message, "password must have at least ") {
			count := strings.TrimSuffix(strings.TrimPrefix(message, "password must have at least "), " characters")
			return "A senha deve ter pelo menos " + count + " caracteres."
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
