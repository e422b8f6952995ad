package export_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/export"
	"github.com/orderflow/orderflow/internal/model"
)

func TestBuildDocument_Happy(t *testing.T) {
	customerID := uuid.New()
	sku := "SKU-1"
	now := time.Now()
	draft := &model.DraftOrder{
		ID:         uuid.New(),
		CustomerID: &customerID,
		Status:     model.DraftApproved,
		ApprovedAt: &now,
		Header:     model.OrderHeader{},
		Lines: []model.DraftOrderLine{
			{LineNo: 1, CustomerSKURaw: "RAW-1", Description: "widget", Qty: decimal.NewFromInt(3), UoM: model.UoM("ST"),
				UnitPrice: decimal.NewFromFloat(1.50), Currency: "EUR", InternalSKU: &sku},
		},
	}

	doc, err := export.BuildDocument("acme", "Acme GmbH", nil, nil, draft)
	require.NoError(t, err)
	assert.Equal(t, export.ExportVersionV1, doc.ExportVersion)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "SKU-1", doc.Lines[0].InternalSKU)
	require.NotNil(t, doc.Lines[0].UnitPrice)
	assert.InDelta(t, 1.50, *doc.Lines[0].UnitPrice, 0.0001)
}

func TestBuildDocument_RejectsUnapproved(t *testing.T) {
	customerID := uuid.New()
	draft := &model.DraftOrder{ID: uuid.New(), CustomerID: &customerID, Status: model.DraftNeedsReview}
	_, err := export.BuildDocument("acme", "Acme GmbH", nil, nil, draft)
	require.Error(t, err)
}

func TestBuildDocument_RejectsUnmatchedLine(t *testing.T) {
	customerID := uuid.New()
	now := time.Now()
	draft := &model.DraftOrder{
		ID: uuid.New(), CustomerID: &customerID, Status: model.DraftApproved, ApprovedAt: &now,
		Lines: []model.DraftOrderLine{{LineNo: 1, Qty: decimal.NewFromInt(1)}},
	}
	_, err := export.BuildDocument("acme", "Acme GmbH", nil, nil, draft)
	require.Error(t, err)
}
