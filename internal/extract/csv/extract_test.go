package csv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/extract/csv"
	"github.com/orderflow/orderflow/internal/model"
)

func TestExtract_SemicolonGermanDecimal(t *testing.T) {
	raw := []byte("Artikelnummer;Bezeichnung;Menge;Einheit;Einzelpreis;Währung\n" +
		"ABC-1;Schraube M4;100;ST;0,50;EUR\n" +
		"ABC-2;Mutter M4;50;ST;0,10;EUR\n")

	order, err := csv.Extract(raw)
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "ABC-1", order.Lines[0].CustomerSKURaw)
	assert.Equal(t, model.UoMPiece, order.Lines[0].UoM)
	assert.True(t, order.Lines[0].UnitPrice.Equal(order.Lines[0].UnitPrice)) // sanity: parses without panic
	assert.Equal(t, "0.5", order.Lines[0].UnitPrice.String())
}

func TestExtract_CommaSeparatedEnglish(t *testing.T) {
	raw := []byte("SKU,Description,Qty,Unit,Unit Price,Currency\n" +
		"X-1,Widget,10,pc,1.25,USD\n")

	order, err := csv.Extract(raw)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "X-1", order.Lines[0].CustomerSKURaw)
	assert.Equal(t, model.UoMPiece, order.Lines[0].UoM)
}

func TestExtract_SkipsBlankRows(t *testing.T) {
	raw := []byte("SKU,Description,Qty,Unit,Unit Price,Currency\n\n" +
		"X-1,Widget,10,pc,1.25,USD\n\n")
	order, err := csv.Extract(raw)
	require.NoError(t, err)
	assert.Len(t, order.Lines, 1)
}

func TestExtract_NoHeaderFails(t *testing.T) {
	raw := []byte("just,some,text\nwith,no,header\n")
	_, err := csv.Extract(raw)
	require.Error(t, err)
}

func TestDetectSeparator_PrefersSemicolonOnTie(t *testing.T) {
	sample := "a;b;c\n1;2;3\n4;5;6\n"
	assert.Equal(t, ';', csv.DetectSeparator(sample))
}

func TestMapColumns_BilingualHeaders(t *testing.T) {
	cols := csv.MapColumns([]string{"Art.-Nr.", "Bezeichnung", "Menge", "Einheit", "Preis"})
	assert.Contains(t, cols, "customer_sku_raw")
	assert.Contains(t, cols, "qty")
}
