package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/marinagate/internal/application"
)

func strPtr(s string) *string { return &s }

func sampleHistory() []application.MovementWithPerson {
	entry := time.Date(2024, time.March, 4, 11, 5, 0, 0, time.UTC)
	exit := entry.Add(3*time.Hour + 10*time.Minute)
	return []application.MovementWithPerson{
		{
			Movement: application.Movement{
				ID:          "mov-2",
				EntryAt:     entry.Add(5 * time.Hour),
				Status:      application.StatusInside,
				Observation: strPtr(`lancha "Aurora", vaga 3`),
			},
			Person: application.Person{Name: "Bruno Lima", Document: "98765", Category: application.CategorySailor},
		},
		{
			Movement: application.Movement{
				ID:          "mov-1",
				EntryAt:     entry,
				ExitAt:      &exit,
				Status:      application.StatusOutside,
				Observation: strPtr("Saída finalizada"),
			},
			Person: application.Person{Name: "Ana Souza", Document: "12345", Category: application.CategoryServiceProvider},
		},
	}
}

func TestHistoryRows_FormatsInLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	rows := HistoryRows(sampleHistory(), loc)
	require.Len(t, rows, 2)

	assert.Equal(t, []string{"04/03/2024", "13:05", "", "", "Bruno Lima", "98765", "Marinheiro", "Dentro", `lancha "Aurora", vaga 3`}, rows[0])
	assert.Equal(t, []string{"04/03/2024", "08:05", "04/03/2024", "11:15", "Ana Souza", "12345", "Prestador de serviço", "Fora", "Saída finalizada"}, rows[1])
}

func TestWriteHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, sampleHistory(), time.UTC))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, utf8BOM), "missing BOM")
	assert.Contains(t, string(out), `"lancha ""Aurora"", vaga 3"`)

	records, err := csv.NewReader(bytes.NewReader(out[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, HistoryHeader, records[0])
	assert.Equal(t, "Bruno Lima", records[1][4])
	assert.Equal(t, `lancha "Aurora", vaga 3`, records[1][8])
}

func TestWriteHistoryCSV_EmptyHistoryKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, nil, nil))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{HistoryHeader}, records)
}

func TestBuildHistoryXLSX(t *testing.T) {
	data, err := BuildHistoryXLSX(sampleHistory(), time.UTC)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{historySheet}, f.GetSheetList())
	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, HistoryHeader, rows[0])
	assert.Equal(t, "Ana Souza", rows[2][4])
	assert.Equal(t, "14:15", rows[2][3])
}
