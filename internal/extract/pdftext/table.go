package pdftext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow/internal/apperr"
	csvextract "github.com/orderflow/orderflow/internal/extract/csv"
	"github.com/orderflow/orderflow/internal/model"
)

// columnSplit matches runs of two or more spaces (or a tab), the gap a
// PDF text layer leaves between table columns once the original
// fixed-width layout collapses to plain text.
var columnSplit = regexp.MustCompile(`[ \t]{2,}|\t`)

const maxHeaderScanLines = 15
const minMappedColumns = 3

// Extract turns a PDF's extracted text layer into a CanonicalOrder
// using the same column-synonym table the CSV/XLSX extractors use,
// with a whitespace-run column split standing in for CSV's delimiter.
func Extract(text string) (model.CanonicalOrder, error) {
	const op = "pdftext.Extract"
	rawLines := strings.Split(text, "\n")

	headerIdx, cols := findHeaderLine(rawLines)
	if cols == nil {
		return model.CanonicalOrder{}, apperr.Validation(op, "header", "could not locate a recognizable order-line header row in the PDF text layer")
	}

	lines := make([]model.CanonicalLine, 0)
	lineConfs := make([]float64, 0)
	var warnings []string
	tableRows := 0

	for i := headerIdx + 1; i < len(rawLines); i++ {
		raw := strings.TrimRight(rawLines[i], "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		tokens := columnSplit.Split(strings.TrimSpace(raw), -1)
		if len(tokens) < 2 {
			continue
		}
		tableRows++
		line, fields, warn := buildLine(tokens, cols, tableRows)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		lines = append(lines, line)
		lineConfs = append(lineConfs, model.LineConfidence(fields))
	}

	headerFields := map[string]float64{}
	overall := model.OverallConfidence(model.HeaderConfidence(headerFields), lineConfs, lines)

	return model.CanonicalOrder{
		ExtractorVersion: "rule_pdftext_v1",
		Lines:            lines,
		Confidence: model.ConfidenceSummary{
			Overall:      overall,
			HeaderFields: headerFields,
		},
		Warnings: warnings,
	}, nil
}

func findHeaderLine(lines []string) (int, map[string]int) {
	limit := maxHeaderScanLines
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := 0; i < limit; i++ {
		tokens := columnSplit.Split(strings.TrimSpace(lines[i]), -1)
		cols := csvextract.MapColumns(tokens)
		if len(cols) >= minMappedColumns {
			return i, cols
		}
	}
	return 0, nil
}

func buildLine(tokens []string, cols map[string]int, lineNo int) (model.CanonicalLine, map[string]float64, string) {
	fields := map[string]float64{}
	get := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(tokens) {
			return ""
		}
		return strings.TrimSpace(tokens[idx])
	}

	sku := get("customer_sku_raw")
	if sku != "" {
		fields["customer_sku_raw"] = 1
	}
	desc := get("description")

	qty, qtyWarn := parseNumeric(get("qty"))
	if qtyWarn == "" {
		fields["qty"] = 1
	}
	price, priceWarn := parseNumeric(get("unit_price"))
	if priceWarn == "" {
		fields["unit_price"] = 1
	}

	uom := resolveUoM(get("uom"))
	if uom != "" {
		fields["uom"] = 1
	}
	currency := get("currency")

	warn := ""
	if qtyWarn != "" {
		warn = fmt.Sprintf("line %d: %s", lineNo, qtyWarn)
	}

	return model.CanonicalLine{
		LineNo: lineNo, CustomerSKURaw: sku, Description: desc,
		Qty: qty, UoM: uom, UnitPrice: price, Currency: currency,
	}, fields, warn
}

func parseNumeric(raw string) (decimal.Decimal, string) {
	if raw == "" {
		return decimal.Zero, "missing numeric value"
	}
	decimalSep, thousandsSep := csvextract.DetectDecimalFormat(raw)
	norm := csvextract.NormalizeDecimal(raw, decimalSep, thousandsSep)
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, fmt.Sprintf("unparseable number %q", raw)
	}
	return d, ""
}

func resolveUoM(raw string) model.UoM {
	if raw == "" {
		return ""
	}
	u := model.UoM(strings.ToUpper(strings.TrimSpace(raw)))
	if model.IsCanonical(u) {
		return u
	}
	if canon, ok := model.UoMSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return canon
	}
	return ""
}
