package export

import (
	"fmt"

	"github.com/orderflow/orderflow/internal/model"
)

// BuildDocument projects an approved DraftOrder into the wire Document.
func BuildDocument(orgSlug string, customerName string, erpCustomerNumber *string, doc *model.Document, draft *model.DraftOrder) (Document, error) {
	if draft.Status != model.DraftApproved && draft.Status != model.DraftPushing && draft.Status != model.DraftPushed {
		return Document{}, fmt.Errorf("export.BuildDocument: draft %s is not approved (status=%s)", draft.ID, draft.Status)
	}
	if draft.ApprovedAt == nil {
		return Document{}, fmt.Errorf("export.BuildDocument: draft %s has no approved_at", draft.ID)
	}
	if draft.CustomerID == nil {
		return Document{}, fmt.Errorf("export.BuildDocument: draft %s has no customer", draft.ID)
	}

	lines := make([]Line, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		if l.InternalSKU == nil {
			return Document{}, fmt.Errorf("export.BuildDocument: line %d has no internal_sku", l.LineNo)
		}
		price, _ := l.UnitPrice.Float64()
		var pricePtr *float64
		if !l.UnitPrice.IsZero() {
			pricePtr = &price
		}
		qty, _ := l.Qty.Float64()
		customerSKU := l.CustomerSKURaw
		desc := l.Description
		lines = append(lines, Line{
			LineNo:         l.LineNo,
			InternalSKU:    *l.InternalSKU,
			Qty:            qty,
			UoM:            string(l.UoM),
			UnitPrice:      pricePtr,
			Currency:       l.Currency,
			CustomerSKURaw: &customerSKU,
			Description:    &desc,
		})
	}

	var src *SourceDocument
	if doc != nil {
		src = &SourceDocument{DocumentID: doc.ID, FileName: doc.FileName, SHA256: doc.SHA256}
	}

	var orderDate, deliveryDate *string
	if draft.Header.OrderDate != nil {
		s := draft.Header.OrderDate.Format("2006-01-02")
		orderDate = &s
	}
	if draft.Header.RequestedDeliveryDate != nil {
		s := draft.Header.RequestedDeliveryDate.Format("2006-01-02")
		deliveryDate = &s
	}
	currency := ""
	if draft.Header.Currency != nil {
		currency = *draft.Header.Currency
	}

	return Document{
		ExportVersion: ExportVersionV1,
		OrgSlug:       orgSlug,
		DraftOrderID:  draft.ID,
		ApprovedAt:    *draft.ApprovedAt,
		Customer: Customer{
			ID:                *draft.CustomerID,
			ErpCustomerNumber: erpCustomerNumber,
			Name:              customerName,
		},
		Header: Header{
			ExternalOrderNumber:   draft.Header.ExternalOrderNumber,
			OrderDate:             orderDate,
			Currency:              currency,
			RequestedDeliveryDate: deliveryDate,
			Notes:                 draft.Header.Notes,
		},
		Lines: lines,
		Meta: Meta{
			CreatedBy:      string(draft.Status),
			SourceDocument: src,
		},
	}, nil
}
