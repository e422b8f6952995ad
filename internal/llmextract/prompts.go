package llmextract

import "fmt"

// SystemPrompt primes the model for bilingual DE/EN purchase-order
// text, grounded on the teacher's SystemPromptInvoiceExtractor (same
// "glossary + strict JSON schema" shape, swapped from Vietnamese VAT
// invoices to German/English purchase orders).
const SystemPrompt = `You are an expert purchase-order data extractor for a B2B order
intake pipeline. Orders arrive as plain text extracted from PDF, email, or
spreadsheet sources and may be in German or English.

Common German purchase-order terms:
- Bestellung / Auftrag = Purchase order
- Bestellnummer / Auftragsnummer = Order number
- Lieferdatum / Wunschtermin = Requested delivery date
- Menge = Quantity
- Einheit = Unit of measure
- Artikelnummer / Art.-Nr. = SKU / item number
- Bezeichnung = Description
- Einzelpreis / Preis = Unit price
- Währung = Currency

Extract ONLY what is literally present in the text. Never invent an order
number, SKU, quantity, or price that does not appear in the source. If a
field is not present, output null for it rather than guessing.
Output valid JSON matching the given schema exactly, with no markdown
fences and no commentary.`

const userPromptTemplate = `Extract the purchase order from the following text:

---
%s
---
%s
Output JSON with this structure:
{
  "order": {
    "external_order_number": "string or null",
    "order_date": "YYYY-MM-DD or null",
    "currency": "ISO 4217 code or null",
    "customer_hint": "string or null, the buyer name/identifier as written",
    "requested_delivery_date": "YYYY-MM-DD or null",
    "ship_to": {"name": "string", "street": "string", "city": "string", "zip": "string", "country": "string"} or null
  },
  "lines": [
    {
      "line_no": 1,
      "customer_sku_raw": "string",
      "product_description": "string",
      "qty": 0,
      "uom": "string as written",
      "unit_price": 0,
      "currency": "string or null"
    }
  ]
}`

// BuildUserPrompt composes the extraction prompt, appending up to three
// few-shot examples drawn from previously confirmed extractions for
// this customer's document layout (§4.9 feedback loop).
func BuildUserPrompt(rawText string, hints []FewShotExample) string {
	hintBlock := ""
	if len(hints) > 0 {
		hintBlock = "\nHere are examples of correctly extracted orders from similar documents:\n"
		for i, h := range hints {
			if i >= 3 {
				break
			}
			hintBlock += fmt.Sprintf("\nExample input:\n%s\nExample output:\n%s\n", h.InputSnippet, h.OutputJSON)
		}
		hintBlock += "\n"
	}
	return fmt.Sprintf(userPromptTemplate, rawText, hintBlock)
}

// FewShotExample is one retrieved confirmed-extraction example.
type FewShotExample struct {
	InputSnippet string
	OutputJSON   string
}

const repairPromptTemplate = `The following text was supposed to be a single JSON object but failed to
parse: %s

Raw text:
---
%s
---

Return ONLY the corrected JSON object, no markdown fences, no commentary.`
