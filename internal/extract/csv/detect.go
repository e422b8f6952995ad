package csv

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// DetectEncoding tries UTF-8 first (the common case for modern exports)
// and falls back to ISO-8859-1 then Windows-1252, since those are the
// two legacy encodings German ERP/CSV exports still show up in.
func DetectEncoding(raw []byte) []byte {
	if isValidUTF8(raw) {
		return raw
	}
	if decoded, err := decodeWith(charmap.ISO8859_1, raw); err == nil {
		return decoded
	}
	if decoded, err := decodeWith(charmap.Windows1252, raw); err == nil {
		return decoded
	}
	return raw
}

func isValidUTF8(b []byte) bool {
	for i := 0; i < len(b); {
		r := b[i]
		switch {
		case r < 0x80:
			i++
		case r&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return false
			}
			i += 2
		case r&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return false
			}
			i += 3
		case r&0xF8 == 0xF0:
			if i+3 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 || b[i+3]&0xC0 != 0x80 {
				return false
			}
			i += 4
		default:
			return false
		}
	}
	return true
}

func decodeWith(cm *charmap.Charmap, raw []byte) ([]byte, error) {
	out, _, err := transform.Bytes(cm.NewDecoder(), raw)
	return out, err
}

// DetectSeparator picks the field separator with the most consistent
// occurrence count across the first few lines: semicolon, comma, or
// tab, in that preference order on a tie (semicolon-separated exports
// are common from German Excel locales, where comma is the decimal
// separator).
func DetectSeparator(sample string) rune {
	lines := strings.SplitN(sample, "\n", 6)
	candidates := []rune{';', ',', '\t'}
	best := ';'
	bestScore := -1
	for _, c := range candidates {
		score := consistency(lines, c)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

func consistency(lines []string, sep rune) int {
	if len(lines) == 0 {
		return 0
	}
	counts := make([]int, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		counts = append(counts, strings.Count(l, string(sep)))
	}
	if len(counts) == 0 || counts[0] == 0 {
		return 0
	}
	score := 0
	for _, c := range counts {
		if c == counts[0] {
			score++
		}
	}
	return score
}

// DetectDecimalFormat reports whether numbers in sample use a comma as
// the decimal separator (German: "1.234,56") versus a dot (English:
// "1,234.56"), by checking which separator more often appears with
// exactly 1-2 digits after it.
func DetectDecimalFormat(sample string) (decimalSep, thousandsSep byte) {
	commaAsDecimal := 0
	dotAsDecimal := 0
	for i, r := range sample {
		if r == ',' && i+2 < len(sample) && isDigit(sample[i+1]) && (i+3 >= len(sample) || !isDigit(sample[i+3])) {
			commaAsDecimal++
		}
		if r == '.' && i+2 < len(sample) && isDigit(sample[i+1]) && (i+3 >= len(sample) || !isDigit(sample[i+3])) {
			dotAsDecimal++
		}
	}
	if commaAsDecimal > dotAsDecimal {
		return ',', '.'
	}
	return '.', ','
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// NormalizeDecimal rewrites a raw numeric token into a Go-parseable
// decimal string, given the document's detected separators.
func NormalizeDecimal(raw string, decimalSep, thousandsSep byte) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, string(thousandsSep), "")
	if decimalSep != '.' {
		raw = strings.ReplaceAll(raw, string(decimalSep), ".")
	}
	return raw
}
