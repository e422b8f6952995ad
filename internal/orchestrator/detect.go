package orchestrator

import (
	"bytes"
	"strings"
)

// DetectMimeClass classifies raw document bytes into the coarse shape
// the orchestrator dispatches on, preferring the file name's extension
// when present and falling back to magic-byte sniffing otherwise — the
// same two-signal approach the pack's format detectors use, generalized
// from "XML vs PDF vs image" to OrderFlow's CSV/XLSX/PDF shapes.
func DetectMimeClass(fileName string, data []byte) (MimeClass, bool) {
	if ext, ok := classFromExtension(fileName); ok {
		return ext, true
	}
	return classFromMagicBytes(data)
}

func classFromExtension(fileName string) (MimeClass, bool) {
	lower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lower, ".csv") || strings.HasSuffix(lower, ".tsv"):
		return MimeCSV, true
	case strings.HasSuffix(lower, ".xlsx"):
		return MimeXLSX, true
	case strings.HasSuffix(lower, ".pdf"):
		return MimePDFText, true
	default:
		return "", false
	}
}

var (
	pdfMagic  = []byte("%PDF")
	zipMagic  = []byte{0x50, 0x4B, 0x03, 0x04} // XLSX is a zip container
)

func classFromMagicBytes(data []byte) (MimeClass, bool) {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return MimePDFText, true
	case bytes.HasPrefix(data, zipMagic):
		return MimeXLSX, true
	case looksLikeText(data):
		return MimeCSV, true
	default:
		return "", false
	}
}

// looksLikeText is a coarse binary/text heuristic: a byte slice with no
// NUL bytes in its first KB is treated as delimited text, the same
// threshold the CSV extractor's own encoding detection assumes.
func looksLikeText(data []byte) bool {
	n := len(data)
	if n > 1024 {
		n = 1024
	}
	for i := 0; i < n; i++ {
		if data[i] == 0 {
			return false
		}
	}
	return n > 0
}
