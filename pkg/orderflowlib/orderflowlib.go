// Package orderflowlib is the public API surface for embedding the
// OrderFlow ingestion pipeline in another Go program: detect a
// document's shape, extract a canonical order (rule-based or
// LLM-assisted fallback), resolve each line against a catalog, and
// evaluate the result for review-readiness. It re-exports the core
// types so a caller never has to import internal/model directly,
// mirroring the teacher's pkg/invoicelib re-export shape.
package orderflowlib

import (
	"github.com/orderflow/orderflow/internal/model"
)

// Re-export core types for public API.
type (
	CanonicalOrder = model.CanonicalOrder
	OrderHeader    = model.OrderHeader
	CanonicalLine  = model.CanonicalLine
	Product        = model.Product
	SkuMapping     = model.SkuMapping
	ValidationIssue = model.ValidationIssue
	UoM            = model.UoM
)

// Re-export UoM constants.
const (
	UoMPiece = model.UoMPiece
)

// Re-export match/issue enums callers branch on.
const (
	IssueMissingCustomer    = model.IssueMissingCustomer
	IssueAmbiguousCustomer  = model.IssueAmbiguousCustomer
	SeverityWarning         = model.SeverityWarning
	SeverityError           = model.SeverityError
)
