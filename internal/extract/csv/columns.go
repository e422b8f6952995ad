// Package csv implements the C3 rule-based CSV extractor: encoding and
// separator auto-detection, bilingual DE/EN fuzzy column mapping, and
// decimal-format normalization, producing a model.CanonicalOrder
// without ever calling an LLM.
package csv

import "strings"

// columnSynonyms maps a canonical field name to the header tokens (DE
// and EN, lowercased) that identify it, the fuzzy-mapping table the
// header-region scan consults.
var columnSynonyms = map[string][]string{
	"customer_sku_raw": {"artikelnummer", "art.-nr.", "art nr", "artikel-nr", "sku", "item number", "item no", "product code", "artikel"},
	"description":      {"bezeichnung", "beschreibung", "artikelbezeichnung", "description", "product", "item description"},
	"qty":              {"menge", "anzahl", "stückzahl", "qty", "quantity"},
	"uom":              {"einheit", "me", "uom", "unit"},
	"unit_price":       {"einzelpreis", "preis", "stückpreis", "unit price", "price", "unit cost"},
	"currency":         {"währung", "waehrung", "currency"},
	"line_no":          {"position", "pos", "pos.", "lfd. nr.", "line", "line no"},
}

// MapColumns matches each header cell against columnSynonyms, returning
// a canonical-field -> column-index map. Matching is exact-after-fold:
// lowercase, trim, strip leading and trailing ':' and '*' — the documents this
// extractor targets use short consistent headers, not free text, so a
// stricter match avoids false positives that a trigram match would
// invite.
func MapColumns(headers []string) map[string]int {
	out := map[string]int{}
	for idx, h := range headers {
		norm := normalizeHeader(h)
		for field, synonyms := range columnSynonyms {
			if _, already := out[field]; already {
				continue
			}
			for _, syn := range synonyms {
				if norm == syn {
					out[field] = idx
					break
				}
			}
		}
	}
	return out
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.Trim(h, ":*")
	return h
}
