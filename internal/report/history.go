// Package report renders movement history as CSV and XLSX documents.
package report

import (
	"time"

	"github.com/example/marinagate/internal/application"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

// HistoryHeader lists the report columns in output order.
var HistoryHeader = []string{
	"Data Entrada",
	"Hora Entrada",
	"Data Saída",
	"Hora Saída",
	"Nome",
	"Documento",
	"Tipo",
	"Status",
	"Observações",
}

var categoryLabels = map[application.Category]string{
	application.CategoryClient:          "Cliente",
	application.CategoryVisitor:         "Visitante",
	application.CategorySailor:          "Marinheiro",
	application.CategoryOwner:           "Proprietário",
	application.CategoryStaff:           "Funcionário",
	application.CategoryServiceProvider: "Prestador de serviço",
}

// CategoryLabel returns the display name of a person category.
func CategoryLabel(c application.Category) string {
	return categoryLabels[c]
}

// StatusLabel returns the display name of a movement status.
func StatusLabel(s application.Status) string {
	if s == application.StatusInside {
		return "Dentro"
	}
	return "Fora"
}

// HistoryRows flattens history entries into report cells, rendering dates in loc.
func HistoryRows(entries []application.MovementWithPerson, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		entry := e.Movement.EntryAt.In(loc)
		var exitDate, exitTime string
		if e.Movement.ExitAt != nil {
			exit := e.Movement.ExitAt.In(loc)
			exitDate = exit.Format(dateLayout)
			exitTime = exit.Format(timeLayout)
		}
		var observation string
		if e.Movement.Observation != nil {
			observation = *e.Movement.Observation
		}
		rows = append(rows, []string{
			entry.Format(dateLayout),
			entry.Format(timeLayout),
			exitDate,
			exitTime,
			e.Person.Name,
			e.Person.Document,
			CategoryLabel(e.Person.Category),
			StatusLabel(e.Movement.Status),
			observation,
		})
	}
	return rows
}
