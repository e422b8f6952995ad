// Package xlsx implements the C3 rule-based XLSX extractor, reusing
// the CSV extractor's column-mapping and decimal-normalization logic
// against rows read with excelize instead of encoding/csv: the table
// shape is the same, only the cell-access API differs. Merged cells
// are read from their top-left anchor cell, the value excelize itself
// returns for any cell inside a merged range.
package xlsx

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/orderflow/orderflow/internal/apperr"
	csvextract "github.com/orderflow/orderflow/internal/extract/csv"
	"github.com/orderflow/orderflow/internal/model"
)

const maxHeaderScanRows = 10
const minMappedColumns = 3

// Extract reads the first non-empty sheet of an XLSX workbook as an
// order-line table.
func Extract(rawBytes []byte) (model.CanonicalOrder, error) {
	const op = "xlsx.Extract"
	wb, err := excelize.OpenReader(bytes.NewReader(rawBytes))
	if err != nil {
		return model.CanonicalOrder{}, apperr.Validation(op, "body", fmt.Sprintf("malformed XLSX: %v", err))
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return model.CanonicalOrder{}, apperr.Validation(op, "body", "workbook has no sheets")
	}

	var rows [][]string
	for _, sheet := range sheets {
		r, err := wb.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(r) > 0 {
			rows = r
			break
		}
	}
	if len(rows) == 0 {
		return model.CanonicalOrder{}, apperr.Validation(op, "body", "no non-empty sheet found")
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
		line, fields, warn := buildLine(row, cols, i-headerIdx)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		lines = append(lines, line)
		lineConfs = append(lineConfs, model.LineConfidence(fields))
	}

	headerFields := map[string]float64{}
	overall := model.OverallConfidence(model.HeaderConfidence(headerFields), lineConfs, lines)

	return model.CanonicalOrder{
		ExtractorVersion: "rule_xlsx_v1",
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
		cols := csvextract.MapColumns(rows[i])
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

func buildLine(row []string, cols map[string]int, lineNo int) (model.CanonicalLine, map[string]float64, string) {
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
	} else if priceWarn != "" {
		warn = fmt.Sprintf("line %d: %s", lineNo, priceWarn)
	}

	return model.CanonicalLine{
		LineNo: lineNo, CustomerSKURaw: sku, Description: desc,
		Qty: qty, UoM: uom, UnitPrice: price, Currency: currency,
	}, fields, warn
}

// parseNumeric handles both "1234.56" (excelize's default cell
// rendering for numeric cells) and "1.234,56"-style text cells typed
// as free text in a European locale spreadsheet.
func parseNumeric(raw string) (decimal.Decimal, string) {
	if raw == "" {
		return decimal.Zero, "missing numeric value"
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		return d, ""
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
