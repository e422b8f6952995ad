package llmextract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/llmextract"
	"github.com/orderflow/orderflow/internal/provider"
)

type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Chat(ctx context.Context, req provider.ChatRequest) (provider.ChatResult, error) {
	r := s.responses[s.calls]
	s.calls++
	return provider.ChatResult{Text: r, InputTokens: 10, OutputTokens: 10}, nil
}

const sourceText = "Bestellung 4711 vom 2026-01-15, Waehrung EUR\nPos 1: Art.-Nr. ABC-1, Schraube M4, Menge 100 ST, Preis 0.50"

const validResponse = `{
  "order": {"external_order_number": "4711", "order_date": "2026-01-15", "currency": "EUR", "customer_hint": null, "requested_delivery_date": null, "ship_to": null},
  "lines": [
    {"line_no": 1, "customer_sku_raw": "ABC-1", "product_description": "Schraube M4", "qty": 100, "uom": "ST", "unit_price": 0.50, "currency": "EUR"}
  ]
}`

func TestExtract_HappyPath(t *testing.T) {
	llm := &scriptedLLM{responses: []string{validResponse}}
	ex := &llmextract.Extractor{LLM: llm}

	res, err := ex.Extract(context.Background(), sourceText, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls)
	require.Len(t, res.Order.Lines, 1)
	assert.Equal(t, "ABC-1", res.Order.Lines[0].CustomerSKURaw)
	assert.False(t, res.Repaired)
}

func TestExtract_RepairsMalformedJSONOnce(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"not json at all", validResponse}}
	ex := &llmextract.Extractor{LLM: llm}

	res, err := ex.Extract(context.Background(), sourceText, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls)
	assert.True(t, res.Repaired)
	assert.Len(t, res.Order.Lines, 1)
}

func TestExtract_UnrepairableJSONFails(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"not json", "still not json"}}
	ex := &llmextract.Extractor{LLM: llm}

	_, err := ex.Extract(context.Background(), sourceText, nil, 1)
	require.Error(t, err)
}

func TestExtract_AnchorGuardDiscardsInventedLine(t *testing.T) {
	fabricated := `{
  "order": {"external_order_number": "4711", "order_date": null, "currency": "EUR", "customer_hint": null, "requested_delivery_date": null, "ship_to": null},
  "lines": [
    {"line_no": 1, "customer_sku_raw": "NOT-IN-SOURCE", "product_description": "totally fabricated item", "qty": 100, "uom": "ST", "unit_price": 1, "currency": "EUR"}
  ]
}`
	llm := &scriptedLLM{responses: []string{fabricated}}
	ex := &llmextract.Extractor{LLM: llm}

	_, err := ex.Extract(context.Background(), sourceText, nil, 1)
	require.Error(t, err)
}

func TestExtract_RangeGuardDiscardsImplausibleLine(t *testing.T) {
	implausible := `{
  "order": {"external_order_number": "4711", "order_date": null, "currency": "EUR", "customer_hint": null, "requested_delivery_date": null, "ship_to": null},
  "lines": [
    {"line_no": 1, "customer_sku_raw": "ABC-1", "product_description": "Schraube M4", "qty": 0, "uom": "ST", "unit_price": 0.50, "currency": "EUR"}
  ]
}`
	llm := &scriptedLLM{responses: []string{implausible}}
	ex := &llmextract.Extractor{LLM: llm}

	_, err := ex.Extract(context.Background(), sourceText, nil, 1)
	require.Error(t, err)
}

func TestExtract_UoMGuardDiscardsUnrecognizedUnit(t *testing.T) {
	unknownUoM := `{
  "order": {"external_order_number": "4711", "order_date": null, "currency": "EUR", "customer_hint": null, "requested_delivery_date": null, "ship_to": null},
  "lines": [
    {"line_no": 1, "customer_sku_raw": "ABC-1", "product_description": "Schraube M4", "qty": 100, "uom": "banana-crates", "unit_price": 0.50, "currency": "EUR"}
  ]
}`
	llm := &scriptedLLM{responses: []string{unknownUoM}}
	ex := &llmextract.Extractor{LLM: llm}

	_, err := ex.Extract(context.Background(), sourceText, nil, 1)
	require.Error(t, err)
}

func TestExtract_LineCountGuardDiscardsGrossMismatch(t *testing.T) {
	manyLines := `{
  "order": {"external_order_number": "4711", "order_date": null, "currency": "EUR", "customer_hint": null, "requested_delivery_date": null, "ship_to": null},
  "lines": [
    {"line_no": 1, "customer_sku_raw": "ABC-1", "product_description": "Schraube M4", "qty": 1, "uom": "ST", "unit_price": 0.50, "currency": "EUR"},
    {"line_no": 2, "customer_sku_raw": "ABC-1", "product_description": "Schraube M4", "qty": 1, "uom": "ST", "unit_price": 0.50, "currency": "EUR"},
    {"line_no": 3, "customer_sku_raw": "ABC-1", "product_description": "Schraube M4", "qty": 1, "uom": "ST", "unit_price": 0.50, "currency": "EUR"}
  ]
}`
	llm := &scriptedLLM{responses: []string{manyLines}}
	ex := &llmextract.Extractor{LLM: llm}

	_, err := ex.Extract(context.Background(), sourceText, nil, 1)
	require.Error(t, err)
}
