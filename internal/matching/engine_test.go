package matching_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/matching"
	"github.com/orderflow/orderflow/internal/model"
)

type fakeCatalog struct {
	confirmed *model.SkuMapping
	products  []model.Product
	prices    []model.CustomerPrice
}

func (f *fakeCatalog) ConfirmedMapping(ctx context.Context, org, customer uuid.UUID, norm string) (*model.SkuMapping, error) {
	return f.confirmed, nil
}
func (f *fakeCatalog) TrigramCandidates(ctx context.Context, org uuid.UUID, norm, desc string) ([]model.Product, error) {
	return f.products, nil
}
func (f *fakeCatalog) EmbeddingsEnabled(org uuid.UUID) bool { return false }
func (f *fakeCatalog) LineEmbedding(ctx context.Context, org uuid.UUID, desc string) ([]float32, error) {
	return nil, nil
}
func (f *fakeCatalog) ProductEmbedding(ctx context.Context, org uuid.UUID, sku string) (*model.ProductEmbedding, error) {
	return nil, nil
}
func (f *fakeCatalog) PriceTiers(ctx context.Context, org, customer uuid.UUID, sku, currency string, uom model.UoM) ([]model.CustomerPrice, error) {
	var out []model.CustomerPrice
	for _, p := range f.prices {
		if p.InternalSKU == sku {
			out = append(out, p)
		}
	}
	return out, nil
}

var defaultSettings = matching.Settings{AutoApplyThreshold: 0.92, AutoApplyGap: 0.10, PriceTolerancePct: 5}

func TestMatch_ConfirmedMapping(t *testing.T) {
	org, cust := uuid.New(), uuid.New()
	cat := &fakeCatalog{confirmed: &model.SkuMapping{InternalSKU: "PROD-999"}}

	res, err := matching.Match(context.Background(), cat, org, cust, matching.Line{
		CustomerSKURaw: "ABC123", Qty: decimal.NewFromInt(5), UoM: model.UoMPiece,
	}, defaultSettings)

	require.NoError(t, err)
	assert.Equal(t, model.MatchMatched, res.Status)
	assert.Equal(t, model.MethodExactMapping, res.Method)
	assert.Equal(t, "PROD-999", *res.InternalSKU)
	assert.Equal(t, 0.99, res.Confidence)
	assert.Empty(t, res.Candidates)
}

func TestMatch_UoMIncompatibilityDominates(t *testing.T) {
	// Pin the scenario by constructing a product whose trigram similarity
	// to the SKU is high but whose UoM is incompatible.
	org, cust := uuid.New(), uuid.New()
	cat := &fakeCatalog{products: []model.Product{{
		InternalSKU: "ABCDEF", Name: "Steel bracket", BaseUoM: model.UoMKilogram,
	}}}

	res, err := matching.Match(context.Background(), cat, org, cust, matching.Line{
		CustomerSKURaw: "ABCDEF", Description: "Steel bracket", Qty: decimal.NewFromInt(1), UoM: model.UoMPiece,
	}, defaultSettings)

	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, res.Status)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, 0.2, res.Candidates[0].PUoM)
	assert.False(t, res.UoMCompatible)
}

func TestMatch_PriceTierPenaltyReflectedInResult(t *testing.T) {
	org, cust := uuid.New(), uuid.New()
	cat := &fakeCatalog{
		products: []model.Product{{InternalSKU: "ABCDEF", Name: "Steel bracket", BaseUoM: model.UoMPiece}},
		prices: []model.CustomerPrice{{
			InternalSKU: "ABCDEF", Currency: "USD", UoM: model.UoMPiece,
			MinQty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(10.00),
		}},
	}

	res, err := matching.Match(context.Background(), cat, org, cust, matching.Line{
		CustomerSKURaw: "ABCDEF", Description: "Steel bracket", Qty: decimal.NewFromInt(1),
		UoM: model.UoMPiece, UnitPrice: decimal.NewFromFloat(20.00), Currency: "USD", HasUnitPrice: true,
	}, defaultSettings)

	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.True(t, res.HasPriceTier)
	assert.InDelta(t, 100.0, res.PriceDeltaPct, 0.01)
}

func TestMatch_NoCandidatesUoMCompatibleDefaultsTrue(t *testing.T) {
	org, cust := uuid.New(), uuid.New()
	cat := &fakeCatalog{}
	res, err := matching.Match(context.Background(), cat, org, cust, matching.Line{CustomerSKURaw: "X"}, defaultSettings)
	require.NoError(t, err)
	assert.True(t, res.UoMCompatible, "no candidate means nothing to be incompatible with")
	assert.False(t, res.HasPriceTier)
}

func TestMatch_AutoApplyGapBoundary(t *testing.T) {
	org, cust := uuid.New(), uuid.New()
	// Two skus that normalize to the same string score identically, so the
	// top candidate clears the threshold but the gap to the runner-up is 0.
	settings := matching.Settings{AutoApplyThreshold: 0.5, AutoApplyGap: 0.10}
	cat := &fakeCatalog{products: []model.Product{
		{InternalSKU: "ABC-DEF", Name: "Steel bracket", BaseUoM: model.UoMPiece},
		{InternalSKU: "ABCDEF", Name: "Steel bracket", BaseUoM: model.UoMPiece},
	}}

	res, err := matching.Match(context.Background(), cat, org, cust, matching.Line{
		CustomerSKURaw: "ABCDEF", Description: "Steel bracket", Qty: decimal.NewFromInt(1), UoM: model.UoMPiece,
	}, settings)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	assert.Greater(t, res.Confidence, settings.AutoApplyThreshold)
	assert.Equal(t, model.MatchUnmatched, res.Status)
}

func TestTrigramSimilarity_Basic(t *testing.T) {
	assert.Greater(t, matching.TrigramSimilarity("ABC1234", "ABC1234"), 0.99)
	assert.Equal(t, 0.0, matching.TrigramSimilarity("", "ABC"))
	assert.Greater(t, matching.TrigramSimilarity("ABC123", "ABC124"), 0.3)
}

func TestMatch_NoCandidatesIsUnmatched(t *testing.T) {
	org, cust := uuid.New(), uuid.New()
	cat := &fakeCatalog{}
	res, err := matching.Match(context.Background(), cat, org, cust, matching.Line{CustomerSKURaw: "X"}, defaultSettings)
	require.NoError(t, err)
	assert.Equal(t, model.MatchUnmatched, res.Status)
	assert.Equal(t, 0.0, res.Confidence)
}
