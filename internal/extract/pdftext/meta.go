// Package pdftext implements the C3 PDF extractor: structural metadata
// (page count/dimensions) read with pdfcpu, feeding internal/fingerprint,
// plus a whitespace-column table heuristic over the PDF's extracted text
// layer to recover order lines without ever calling an LLM.
package pdftext

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/orderflow/orderflow/internal/fingerprint"
)

// StructuralMeta reads page count and per-page dimensions with pdfcpu,
// producing the fingerprint.Meta input to the layout fingerprint (C2).
// textCoverageRatio is supplied by the caller, who already has the
// text-layer length and knows the page count's rendered area; pdfcpu
// has no text-coverage notion of its own.
func StructuralMeta(rawBytes []byte, textCoverageRatio float64) (*fingerprint.Meta, error) {
	rs := bytes.NewReader(rawBytes)

	pageCount, err := api.PageCount(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("pdftext.StructuralMeta: page count: %w", err)
	}

	if _, err := rs.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("pdftext.StructuralMeta: rewind: %w", err)
	}
	dims, err := api.PageDims(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("pdftext.StructuralMeta: page dims: %w", err)
	}

	pageDims := make([]fingerprint.PageDim, 0, len(dims))
	for _, d := range dims {
		pageDims = append(pageDims, fingerprint.PageDim{WidthPt: int(d.Width), HeightPt: int(d.Height)})
	}

	return &fingerprint.Meta{
		PageCount:         pageCount,
		PageDimensions:    pageDims,
		TextCoverageRatio: textCoverageRatio,
	}, nil
}
