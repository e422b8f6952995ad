package csv

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
)

// maxHeaderScanRows bounds how many leading rows are searched for the
// header row, since some exports prepend a title/address block before
// the actual table.
const maxHeaderScanRows = 10

// minMappedColumns is the minimum number of recognized columns a row
// needs before it is accepted as the header row.
const minMappedColumns = 3

// Extract parses rawBytes as a delimited order-line table and produces
// a CanonicalOrder. It never returns a partial-confidence guess for a
// column it could not find; a required field coming up empty shows as
// a low per-field confidence rather than a fabricated value.
func Extract(rawBytes []byte) (model.CanonicalOrder, error) {
	const op = "csv.Extract"
	decoded := DetectEncoding(rawBytes)
	text := string(decoded)
	sep := DetectSeparator(text)
	decimalSep, thousandsSep := DetectDecimalFormat(text)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return model.CanonicalOrder{}, apperr.Validation(op, "body", fmt.Sprintf("malformed CSV: %v", err))
	}
	if len(rows) == 0 {
		return model.CanonicalOrder{}, apperr.Validation(op, "body", "empty document")
	}

	headerIdx, cols := findHeaderRow(rows)
	if cols == nil {
		return model.CanonicalOrder{}, apperr.Validation(op, "header", "could not locate a recognizable order-line header row")
	}

	lines := make([]model.CanonicalLine, 0, len(rows)-headerIdx-1)
	lineConfs := make([]float64, 0, len(rows)-headerIdx-1)
	var warnings []string

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if isBlankRow(row) {
			continue
		}
		line, fields, warn := buildLine(row, cols, i-headerIdx, decimalSep, thousandsSep)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		lines = append(lines, line)
		lineConfs = append(lineConfs, model.LineConfidence(fields))
	}

	headerFields := map[string]float64{} // CSV tables rarely carry header metadata beyond the line table
	overall := model.OverallConfidence(model.HeaderConfidence(headerFields), lineConfs, lines)

	return model.CanonicalOrder{
		ExtractorVersion: "rule_csv_v1",
		Order:            model.OrderHeader{},
		Lines:            lines,
		Confidence: model.ConfidenceSummary{
			Overall:      overall,
			HeaderFields: headerFields,
		},
		Warnings: warnings,
	}, nil
}

func findHeaderRow(rows [][]string) (int, map[string]int) {
	limit := maxHeaderScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		cols := MapColumns(rows[i])
		if len(cols) >= minMappedColumns {
			return i, cols
		}
	}
	return 0, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func buildLine(row []string, cols map[string]int, lineNo int, decimalSep, thousandsSep byte) (model.CanonicalLine, map[string]float64, string) {
	fields := map[string]float64{}
	get := func(field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	sku := get("customer_sku_raw")
	if sku != "" {
		fields["customer_sku_raw"] = 1
	}
	desc := get("description")

	qty, qtyWarn := parseQty(get("qty"), decimalSep, thousandsSep)
	if qtyWarn == "" {
		fields["qty"] = 1
	}

	price, priceWarn := parseQty(get("unit_price"), decimalSep, thousandsSep)
	if priceWarn == "" {
		fields["unit_price"] = 1
	}

	uomRaw := get("uom")
	uom := resolveUoM(uomRaw)
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

func parseQty(raw string, decimalSep, thousandsSep byte) (decimal.Decimal, string) {
	if raw == "" {
		return decimal.Zero, "missing numeric value"
	}
	norm := NormalizeDecimal(raw, decimalSep, thousandsSep)
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
