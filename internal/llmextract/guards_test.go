package llmextract_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/orderflow/orderflow/internal/llmextract"
	"github.com/orderflow/orderflow/internal/model"
)

func TestAnchorGuard_FindsVerbatimSKU(t *testing.T) {
	src := "Position 1: Art.-Nr. ABC-123, Menge 5 ST"
	assert.True(t, llmextract.AnchorGuard(src, "ABC-123"))
}

func TestAnchorGuard_RejectsInventedSKU(t *testing.T) {
	src := "Position 1: Art.-Nr. ABC-123, Menge 5 ST"
	assert.False(t, llmextract.AnchorGuard(src, "ZZZ-999"))
}

func TestAnchorGuard_AcceptsNullSKU(t *testing.T) {
	src := "Position 1: Art.-Nr. ABC-123, Menge 5 ST"
	assert.True(t, llmextract.AnchorGuard(src, ""))
}

func TestRangeGuard_RejectsZeroQty(t *testing.T) {
	assert.False(t, llmextract.RangeGuard(decimal.Zero, decimal.NewFromInt(10)))
}

func TestRangeGuard_RejectsAbsurdQty(t *testing.T) {
	assert.False(t, llmextract.RangeGuard(decimal.NewFromInt(10_000_000), decimal.NewFromInt(10)))
}

func TestRangeGuard_AcceptsPlausible(t *testing.T) {
	assert.True(t, llmextract.RangeGuard(decimal.NewFromInt(5), decimal.NewFromFloat(12.50)))
}

func TestLineCountGuard_FlagsGrossMismatch(t *testing.T) {
	ok, msg := llmextract.LineCountGuard(50, 5)
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}

func TestLineCountGuard_AcceptsClose(t *testing.T) {
	ok, _ := llmextract.LineCountGuard(6, 5)
	assert.True(t, ok)
}

func TestUoMGuard_ResolvesSynonym(t *testing.T) {
	u, ok := llmextract.UoMGuard("Stück")
	assert.True(t, ok)
	assert.Equal(t, model.UoMPiece, u)
}

func TestUoMGuard_RejectsUnknown(t *testing.T) {
	_, ok := llmextract.UoMGuard("banana-crates")
	assert.False(t, ok)
}
