package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/marinagate/internal/application"
	"github.com/example/marinagate/internal/report"
)

type historyLister interface {
	ListHistory(ctx context.Context, principal application.Principal, filter application.HistoryFilter) ([]application.MovementWithPerson, error)
}

type ReportHandler struct {
	ledger    historyLister
	location  *time.Location
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

// NewReportHandler renders reports with dates in loc.
func NewReportHandler(ledger historyLister, loc *time.Location, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{ledger: ledger, location: loc, now: time.Now, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

func (h *ReportHandler) history(w http.ResponseWriter, r *http.Request, operation string) ([]application.MovementWithPerson, bool) {
	if h == nil || h.ledger == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, false
	}
	filter, err := parseHistoryFilter(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return nil, false
	}
	principal, _ := PrincipalFromContext(r.Context())
	rows, err := h.ledger.ListHistory(r.Context(), principal, filter)
	if err != nil {
		h.log(r.Context(), operation).ErrorContext(r.Context(), "history query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return nil, false
	}
	return rows, true
}

func (h *ReportHandler) filename(ext string) string {
	return fmt.Sprintf("historico_%s.%s", h.now().In(h.location).Format("2006-01-02"), ext)
}

// HistoryCSV serves GET /reports/history.csv.
func (h *ReportHandler) HistoryCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.history(w, r, "HistoryCSV")
	if !ok {
		return
	}

	w.Header().Set("Content-Type", report.CSVContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.filename("csv")))
	w.WriteHeader(http.StatusOK)
	if err := report.WriteHistoryCSV(w, rows, h.location); err != nil {
		h.log(r.Context(), "HistoryCSV").ErrorContext(r.Context(), "failed to stream csv report", "error", err)
		return
	}
	h.log(r.Context(), "HistoryCSV", "rows", len(rows)).InfoContext(r.Context(), "csv report exported")
}

// HistoryXLSX serves GET /reports/history.xlsx.
func (h *ReportHandler) HistoryXLSX(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.history(w, r, "HistoryXLSX")
	if !ok {
		return
	}

	data, err := report.BuildHistoryXLSX(rows, h.location)
	if err != nil {
		h.log(r.Context(), "HistoryXLSX").ErrorContext(r.Context(), "failed to build xlsx report", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", report.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.filename("xlsx")))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log(r.Context(), "HistoryXLSX").ErrorContext(r.Context(), "failed to write xlsx report", "error", err)
		return
	}
	h.log(r.Context(), "HistoryXLSX", "rows", len(rows)).InfoContext(r.Context(), "xlsx report exported")
}
