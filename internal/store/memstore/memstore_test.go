package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/matching"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/store/memstore"
)

func TestMemstore_ConfirmedMappingShortCircuits(t *testing.T) {
	s := memstore.New()
	org, customer := uuid.New(), uuid.New()
	s.PutConfirmedMapping(org, customer, model.SkuMapping{
		CustomerSKUNorm: "ABC1", InternalSKU: "SKU-1", Status: model.MappingConfirmed,
	})

	res, err := matching.Match(context.Background(), s, org, customer, matching.Line{
		CustomerSKURaw: "abc-1", Qty: decimal.NewFromInt(1),
	}, matching.Settings{AutoApplyThreshold: 0.8, AutoApplyGap: 0.1})

	require.NoError(t, err)
	require.NotNil(t, res.InternalSKU)
	assert.Equal(t, "SKU-1", *res.InternalSKU)
	assert.Equal(t, model.MethodExactMapping, res.Method)
}

func TestMemstore_TrigramCandidatesScopedToOrg(t *testing.T) {
	s := memstore.New()
	org := uuid.New()
	other := uuid.New()
	s.Products["SKU-1"] = model.Product{OrgID: org, InternalSKU: "SKU-1", Name: "Bolt", Active: true, BaseUoM: model.UoMPiece}
	s.Products["SKU-2"] = model.Product{OrgID: other, InternalSKU: "SKU-2", Name: "Nut", Active: true, BaseUoM: model.UoMPiece}

	cands, err := s.TrigramCandidates(context.Background(), org, "", "bolt")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "SKU-1", cands[0].InternalSKU)
}

func TestMemstore_BudgetTracksDailySpend(t *testing.T) {
	s := memstore.New()
	org := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, s.RecordCall(context.Background(), model.AICallLog{OrgID: org, CostMicros: 1000, CreatedAt: now}))
	require.NoError(t, s.RecordCall(context.Background(), model.AICallLog{OrgID: org, CostMicros: 2000, CreatedAt: now}))

	spend, err := s.TodaySpendMicros(context.Background(), org)
	require.NoError(t, err)
	assert.EqualValues(t, 3000, spend)
}
