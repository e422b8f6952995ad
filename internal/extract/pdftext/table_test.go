package pdftext_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/extract/pdftext"
	"github.com/orderflow/orderflow/internal/model"
)

func TestExtract_WhitespaceColumnHeuristic(t *testing.T) {
	text := "Bestellung 4711\n\n" +
		"Art.-Nr.        Bezeichnung        Menge    Einheit    Preis\n" +
		"ABC-1           Schraube M4        100      ST         0.50\n" +
		"ABC-2           Mutter M4          50       ST         0.10\n"

	order, err := pdftext.Extract(text)
	require.NoError(t, err)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "ABC-1", order.Lines[0].CustomerSKURaw)
	assert.Equal(t, model.UoMPiece, order.Lines[0].UoM)
}

func TestExtract_NoHeaderFails(t *testing.T) {
	_, err := pdftext.Extract("just some unrelated text\nwith no table at all\n")
	require.Error(t, err)
}
