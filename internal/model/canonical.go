package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CanonicalOrder is the pipeline's lingua franca (§3 "Canonical Order
// Output"): the single shape every extractor (rule-based or LLM-based)
// must produce, and the only shape the matching/validation/draft stages
// consume.
type CanonicalOrder struct {
	ExtractorVersion string            `json:"extractor_version"`
	Order            OrderHeader       `json:"order"`
	Lines            []CanonicalLine   `json:"lines"`
	Confidence       ConfidenceSummary `json:"confidence"`
	Warnings         []string          `json:"warnings"`
	Metadata         map[string]any    `json:"metadata"`
}

// OrderHeader is the header portion of a CanonicalOrder.
type OrderHeader struct {
	ExternalOrderNumber   *string    `json:"external_order_number"`
	OrderDate             *time.Time `json:"order_date"`
	Currency              *string    `json:"currency"`
	CustomerHint          *string    `json:"customer_hint"`
	RequestedDeliveryDate *time.Time `json:"requested_delivery_date"`
	ShipTo                *Address   `json:"ship_to"`
	BillTo                *Address   `json:"bill_to"`
	Notes                 *string    `json:"notes"`
}

// Address is a free-form ship-to/bill-to block.
type Address struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// CanonicalLine is one order line in the canonical schema.
type CanonicalLine struct {
	LineNo          int             `json:"line_no"`
	CustomerSKURaw  string          `json:"customer_sku_raw"`
	Description     string          `json:"product_description"`
	Qty             decimal.Decimal `json:"qty"`
	UoM             UoM             `json:"uom"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Currency        string          `json:"currency"`
	DeliveryDate    *time.Time      `json:"delivery_date"`
}

// FieldConfidence weights used for §4.5.3 header/overall scoring.
var HeaderFieldWeights = map[string]float64{
	"external_order_number":   0.20,
	"order_date":              0.15,
	"currency":                0.20,
	"customer_hint":           0.25,
	"requested_delivery_date": 0.10,
	"ship_to":                 0.10,
}

var LineFieldWeights = map[string]float64{
	"customer_sku_raw": 0.30,
	"qty":              0.30,
	"uom":               0.20,
	"unit_price":       0.20,
}

// ConfidenceSummary carries the overall + per-field confidences produced
// by an extractor.
type ConfidenceSummary struct {
	Overall      float64            `json:"overall"`
	HeaderFields map[string]float64 `json:"header_fields"`
	Lines        []map[string]float64 `json:"lines"`
}

// Clamp clamps a confidence value to [0,1] — invariant enforced before
// any confidence is persisted (§3 invariants).
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// HeaderConfidence computes the §4.5.3 weighted header confidence.
func HeaderConfidence(fields map[string]float64) float64 {
	var total float64
	for field, weight := range HeaderFieldWeights {
		total += fields[field] * weight
	}
	return Clamp(total)
}

// LineConfidence computes the §4.5.3 weighted per-line confidence.
func LineConfidence(fields map[string]float64) float64 {
	var total float64
	for field, weight := range LineFieldWeights {
		total += fields[field] * weight
	}
	return Clamp(total)
}

// OverallConfidence combines header and mean-line confidence per
// §4.5.3, applying the sanity penalties for implausible quantities and
// the zero-line-count special case.
func OverallConfidence(headerConf float64, lineConfs []float64, lines []CanonicalLine) float64 {
	if len(lines) == 0 {
		return 0
	}
	var sum float64
	for _, c := range lineConfs {
		sum += c
	}
	mean := sum / float64(len(lineConfs))
	overall := 0.4*headerConf + 0.6*mean

	for _, l := range lines {
		if l.Qty.Sign() <= 0 || l.Qty.GreaterThan(decimal.NewFromInt(1_000_000)) {
			overall *= 0.8
			break
		}
	}
	return Clamp(overall)
}
