package xlsx_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orderflow/orderflow/internal/extract/xlsx"
	"github.com/orderflow/orderflow/internal/model"
)

func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, val := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, val))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestExtract_Basic(t *testing.T) {
	raw := buildWorkbook(t, [][]string{
		{"Artikelnummer", "Bezeichnung", "Menge", "Einheit", "Einzelpreis", "Währung"},
		{"ABC-1", "Schraube M4", "100", "ST", "0.50", "EUR"},
	})

	order, err := xlsx.Extract(raw)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "ABC-1", order.Lines[0].CustomerSKURaw)
	assert.Equal(t, model.UoMPiece, order.Lines[0].UoM)
}

func TestExtract_NoHeaderFails(t *testing.T) {
	raw := buildWorkbook(t, [][]string{{"a", "b", "c"}, {"1", "2", "3"}})
	_, err := xlsx.Extract(raw)
	require.Error(t, err)
}
