// Package llmextract implements the C4 LLM-based extractor: one model
// call to turn arbitrary order text into a CanonicalOrder, guarded
// against hallucination and backed by a single JSON-repair retry.
package llmextract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/provider"
)

// Extractor drives the LLM extraction call.
type Extractor struct {
	LLM   provider.LLMProviderPort
	Model string
}

// Result wraps the CanonicalOrder with accounting the orchestrator
// needs to populate AICallLog.
type Result struct {
	Order        model.CanonicalOrder
	InputTokens  int
	OutputTokens int
	CostMicros   int64
	Repaired     bool
}

// rawOrder mirrors the schema in the user prompt; decimals are read as
// json.Number so malformed numeric tokens fail parsing explicitly
// instead of silently truncating.
type rawOrder struct {
	Order struct {
		ExternalOrderNumber  *string `json:"external_order_number"`
		OrderDate            *string `json:"order_date"`
		Currency             *string `json:"currency"`
		CustomerHint         *string `json:"customer_hint"`
		RequestedDeliveryDate *string `json:"requested_delivery_date"`
		ShipTo               *struct {
			Name, Street, City, Zip, Country string
		} `json:"ship_to"`
	} `json:"order"`
	Lines []rawLine `json:"lines"`
}

type rawLine struct {
	LineNo             int         `json:"line_no"`
	CustomerSKURaw     string      `json:"customer_sku_raw"`
	ProductDescription string      `json:"product_description"`
	Qty                json.Number `json:"qty"`
	UoM                string      `json:"uom"`
	UnitPrice          json.Number `json:"unit_price"`
	Currency           *string     `json:"currency"`
}

// Extract runs the LLM extraction call, repairs malformed JSON once,
// and applies the §4.3 hallucination guards. Any guard failure
// discards the whole result; Extract reports an error rather than
// returning a degraded CanonicalOrder.
func (e *Extractor) Extract(ctx context.Context, sourceText string, hints []FewShotExample, heuristicLineCount int) (Result, error) {
	const op = "llmextract.Extract"

	prompt := BuildUserPrompt(sourceText, hints)
	chatRes, err := e.LLM.Chat(ctx, provider.ChatRequest{Model: e.Model, SystemPrompt: SystemPrompt, UserPrompt: prompt})
	if err != nil {
		return Result{}, apperr.Transient(op, "llm chat call failed", err)
	}

	raw := chatRes.Text
	repaired := false
	if !gjson.Valid(raw) {
		repairRes, rErr := e.LLM.Chat(ctx, provider.ChatRequest{
			Model:        e.Model,
			SystemPrompt: SystemPrompt,
			UserPrompt:   fmt.Sprintf(repairPromptTemplate, "invalid JSON", raw),
		})
		if rErr != nil || !gjson.Valid(repairRes.Text) {
			return Result{}, apperr.Fatal(op, "llm returned unrepairable JSON", rErr)
		}
		raw = repairRes.Text
		repaired = true
		chatRes.InputTokens += repairRes.InputTokens
		chatRes.OutputTokens += repairRes.OutputTokens
		chatRes.CostMicros += repairRes.CostMicros
	}

	var parsed rawOrder
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Result{}, apperr.Fatal(op, "llm JSON did not match the extraction schema", err)
	}

	order, err := convert(sourceText, parsed, heuristicLineCount)
	if err != nil {
		return Result{}, apperr.Validation(op, "llm_extraction", err.Error())
	}
	order.ExtractorVersion = "llm_v1"

	return Result{
		Order:        order,
		InputTokens:  chatRes.InputTokens,
		OutputTokens: chatRes.OutputTokens,
		CostMicros:   chatRes.CostMicros,
		Repaired:     repaired,
	}, nil
}

func convert(sourceText string, parsed rawOrder, heuristicLineCount int) (model.CanonicalOrder, error) {
	header := model.OrderHeader{
		ExternalOrderNumber:   parsed.Order.ExternalOrderNumber,
		Currency:              parsed.Order.Currency,
		CustomerHint:          parsed.Order.CustomerHint,
	}
	header.OrderDate = parseDate(parsed.Order.OrderDate)
	header.RequestedDeliveryDate = parseDate(parsed.Order.RequestedDeliveryDate)
	if parsed.Order.ShipTo != nil {
		header.ShipTo = &model.Address{
			Name: parsed.Order.ShipTo.Name, Street: parsed.Order.ShipTo.Street,
			City: parsed.Order.ShipTo.City, Zip: parsed.Order.ShipTo.Zip, Country: parsed.Order.ShipTo.Country,
		}
	}

	if ok, msg := LineCountGuard(len(parsed.Lines), heuristicLineCount); !ok {
		return model.CanonicalOrder{}, fmt.Errorf("LINE_COUNT_GUARD: %s", msg)
	}

	headerFields := map[string]float64{}
	if header.ExternalOrderNumber != nil {
		headerFields["external_order_number"] = 1
	}
	if header.OrderDate != nil {
		headerFields["order_date"] = 1
	}
	if header.Currency != nil {
		headerFields["currency"] = 1
	}
	if header.CustomerHint != nil {
		headerFields["customer_hint"] = 1
	}
	if header.RequestedDeliveryDate != nil {
		headerFields["requested_delivery_date"] = 1
	}
	if header.ShipTo != nil {
		headerFields["ship_to"] = 1
	}

	lines := make([]model.CanonicalLine, 0, len(parsed.Lines))
	lineConfs := make([]float64, 0, len(parsed.Lines))
	lineFieldMaps := make([]map[string]float64, 0, len(parsed.Lines))
	for i, rl := range parsed.Lines {
		lineNo := rl.LineNo
		if lineNo == 0 {
			lineNo = i + 1
		}
		qty := decimalOrZero(rl.Qty)
		price := decimalOrZero(rl.UnitPrice)
		lineFields := map[string]float64{}

		if !AnchorGuard(sourceText, rl.CustomerSKURaw) {
			return model.CanonicalOrder{}, fmt.Errorf("ANCHOR_GUARD: line %d customer_sku_raw %q not found in source", lineNo, rl.CustomerSKURaw)
		}
		lineFields["customer_sku_raw"] = 1

		if !RangeGuard(qty, price) {
			return model.CanonicalOrder{}, fmt.Errorf("RANGE_GUARD: line %d qty/price out of plausible range", lineNo)
		}
		lineFields["qty"] = 1
		lineFields["unit_price"] = 1

		uom, uomOK := UoMGuard(rl.UoM)
		if !uomOK {
			return model.CanonicalOrder{}, fmt.Errorf("UOM_GUARD: line %d unit %q not recognized", lineNo, rl.UoM)
		}
		lineFields["uom"] = 1

		currency := ""
		if rl.Currency != nil {
			currency = *rl.Currency
		} else if header.Currency != nil {
			currency = *header.Currency
		}

		lines = append(lines, model.CanonicalLine{
			LineNo: lineNo, CustomerSKURaw: rl.CustomerSKURaw, Description: rl.ProductDescription,
			Qty: qty, UoM: uom, UnitPrice: price, Currency: currency,
		})
		lineConfs = append(lineConfs, model.LineConfidence(lineFields))
		lineFieldMaps = append(lineFieldMaps, lineFields)
	}

	headerConf := model.HeaderConfidence(headerFields)
	overall := model.OverallConfidence(headerConf, lineConfs, lines)

	return model.CanonicalOrder{
		Order: header,
		Lines: lines,
		Confidence: model.ConfidenceSummary{
			Overall:      overall,
			HeaderFields: headerFields,
			Lines:        lineFieldMaps,
		},
	}, nil
}

func decimalOrZero(n json.Number) decimal.Decimal {
	v, err := n.Float64()
	if err != nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}
