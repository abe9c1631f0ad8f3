package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/example/marinagate/internal/application"
)

// CSVContentType is the media type served with CSV reports.
const CSVContentType = "text/csv; charset=utf-8"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteHistoryCSV writes a BOM-prefixed, comma separated history report.
// Quoting follows RFC 4180.
func WriteHistoryCSV(w io.Writer, entries []application.MovementWithPerson, loc *time.Location) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(HistoryHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(HistoryRows(entries, loc)); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
