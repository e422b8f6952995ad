// Package matching implements the C6 matching engine: the
// confirmed-mapping → trigram → embedding hybrid scorer that resolves a
// customer SKU/description line to an internal catalog SKU.
package matching

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/money"
)

// Catalog is the narrow read port the matching engine needs. The
// concrete implementation (internal/store) is responsible for the
// PersistencePort-level trigram/vector queries of §4.5.1 steps 2-3; this
// interface only asks for the already-filtered candidate set so the
// engine itself stays a pure function of its inputs (§9 "cross-module
// service classes with hidden state" is avoided by injecting this port
// rather than holding a DB handle).
type Catalog interface {
	ConfirmedMapping(ctx context.Context, org, customer uuid.UUID, customerSKUNorm string) (*model.SkuMapping, error)
	TrigramCandidates(ctx context.Context, org uuid.UUID, customerSKUNorm, description string) ([]model.Product, error)
	EmbeddingsEnabled(org uuid.UUID) bool
	LineEmbedding(ctx context.Context, org uuid.UUID, description string) ([]float32, error)
	ProductEmbedding(ctx context.Context, org uuid.UUID, sku string) (*model.ProductEmbedding, error)
	PriceTiers(ctx context.Context, org, customer uuid.UUID, sku, currency string, uom model.UoM) ([]model.CustomerPrice, error)
}

// Settings bundles the org-tunable thresholds §4.5.1/§4.5.2 reference.
type Settings struct {
	AutoApplyThreshold float64
	AutoApplyGap       float64
	PriceTolerancePct  float64
}

// Line is the subset of a DraftOrderLine the engine needs as input.
type Line struct {
	CustomerSKURaw string
	Description    string
	Qty            decimal.Decimal
	UoM            model.UoM
	UnitPrice      decimal.Decimal
	Currency       string
	HasUnitPrice   bool
}

// Result is the §4.5 MatchResult.
type Result struct {
	InternalSKU *string
	Confidence  float64
	Method      model.MatchMethod
	Status      model.MatchStatus
	Candidates  []model.ScoredCandidateDebug
	LowConfidenceWarning bool
	// UoMCompatible reports whether the top candidate's UoM penalty came
	// from a known conversion (or an exact base-UoM match) rather than an
	// incompatible unit; an unmatched line (len(Candidates)==0) is true
	// since there is no candidate to be incompatible with.
	UoMCompatible bool
	// HasPriceTier and PriceDeltaPct carry the §4.5.2 price-tier penalty
	// inputs through to validation.LineInput for IssuePriceMismatch.
	HasPriceTier  bool
	PriceDeltaPct float64
}

func normalizeSKU(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r == ' ' || r == '-' || r == '_' || r == '.' {
			continue
		}
		out = append(out, r)
	}
	s := string(out)
	// case fold
	return toUpperASCII(s)
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

// Match runs the §4.5.1 pipeline for a single line.
func Match(ctx context.Context, catalog Catalog, org, customer uuid.UUID, line Line, settings Settings) (Result, error) {
	const op = "matching.Match"
	skuNorm := normalizeSKU(line.CustomerSKURaw)

	// Step 1: confirmed mapping lookup short-circuits everything else.
	if skuNorm != "" {
		mapping, err := catalog.ConfirmedMapping(ctx, org, customer, skuNorm)
		if err != nil {
			return Result{}, apperr.Transient(op, "confirmed mapping lookup failed", err)
		}
		if mapping != nil {
			sku := mapping.InternalSKU
			return Result{
				InternalSKU: &sku,
				Confidence:  0.99,
				Method:      model.MethodExactMapping,
				Status:      model.MatchMatched,
				Candidates:  nil,
			}, nil
		}
	}

	// Step 2: trigram search (threshold 0.30, top 30 already applied by
	// the catalog port).
	products, err := catalog.TrigramCandidates(ctx, org, skuNorm, line.Description)
	if err != nil {
		return Result{}, apperr.Transient(op, "trigram candidate search failed", err)
	}

	// Step 3: optional vector search.
	var lineEmbedding []float32
	embeddingsOn := catalog.EmbeddingsEnabled(org)
	if embeddingsOn {
		lineEmbedding, err = catalog.LineEmbedding(ctx, org, line.Description)
		if err != nil {
			return Result{}, apperr.Transient(op, "line embedding failed", err)
		}
	}

	// Step 4: score every candidate.
	scored := make([]scoredInternal, 0, len(products))
	for _, p := range products {
		sTri := scoreTrigram(skuNorm, p, line.Description)

		sEmb := 0.0
		if embeddingsOn && len(lineEmbedding) > 0 {
			pe, err := catalog.ProductEmbedding(ctx, org, p.InternalSKU)
			if err != nil {
				return Result{}, apperr.Transient(op, "product embedding lookup failed", err)
			}
			if pe != nil {
				sEmb = embeddingScore(lineEmbedding, pe.Vector)
			}
		}

		sHybrid := 0.62*sTri + 0.38*sEmb
		if sHybrid < 0 {
			sHybrid = 0
		}

		pUoM, uomCompatible := uomPenalty(line.UoM, p)

		pPrice := 1.0
		hasPriceTier := false
		priceDeltaPct := 0.0
		if line.HasUnitPrice && customer != uuid.Nil && line.Currency != "" {
			pPrice, hasPriceTier, priceDeltaPct, err = pricePenalty(ctx, catalog, org, customer, p.InternalSKU, line, settings.PriceTolerancePct)
			if err != nil {
				return Result{}, apperr.Transient(op, "price tier lookup failed", err)
			}
		}

		confidence := model.Clamp(sHybrid * pUoM * pPrice)
		scored = append(scored, scoredInternal{
			sku: p.InternalSKU, confidence: confidence,
			sTri: sTri, sEmb: sEmb, pUoM: pUoM, pPrice: pPrice,
			uomCompatible: uomCompatible, hasPriceTier: hasPriceTier, priceDeltaPct: priceDeltaPct,
		})
	}

	// §4.5.4: deterministic tie-break ordering.
	sort.Slice(scored, func(i, j int) bool {
		if round6(scored[i].confidence) != round6(scored[j].confidence) {
			return scored[i].confidence > scored[j].confidence
		}
		return scored[i].sku < scored[j].sku
	})

	top5 := scored
	if len(top5) > 5 {
		top5 = top5[:5]
	}
	debug := make([]model.ScoredCandidateDebug, 0, len(top5))
	for _, c := range top5 {
		method := model.MethodTrigram
		if c.sEmb > 0 {
			method = model.MethodEmbedding
		}
		debug = append(debug, model.ScoredCandidateDebug{
			InternalSKU: c.sku, Confidence: c.confidence, Method: method,
			STri: c.sTri, SEmb: c.sEmb, PUoM: c.pUoM, PPrice: c.pPrice,
		})
	}

	result := Result{Candidates: debug, UoMCompatible: true}
	if len(scored) == 0 {
		result.Status = model.MatchUnmatched
		return result, nil
	}

	top1, top2 := scored[0], (*scoredInternal)(nil)
	if len(scored) > 1 {
		top2 = &scored[1]
	}
	result.Confidence = top1.confidence
	result.UoMCompatible = top1.uomCompatible
	result.HasPriceTier = top1.hasPriceTier
	result.PriceDeltaPct = top1.priceDeltaPct

	gap := top1.confidence
	if top2 != nil {
		gap = top1.confidence - top2.confidence
	}
	if top1.confidence >= settings.AutoApplyThreshold && gap >= settings.AutoApplyGap {
		sku := top1.sku
		result.InternalSKU = &sku
		result.Method = model.MethodHybrid
		result.Status = model.MatchSuggested
	} else {
		result.Status = model.MatchUnmatched
	}

	if top1.confidence < 0.75 {
		result.LowConfidenceWarning = true
	}

	return result, nil
}

type scoredInternal struct {
	sku           string
	confidence    float64
	sTri          float64
	sEmb          float64
	pUoM          float64
	pPrice        float64
	uomCompatible bool
	hasPriceTier  bool
	priceDeltaPct float64
}

func round6(f float64) float64 {
	const factor = 1_000_000
	return float64(int64(f*factor+0.5)) / factor
}

func scoreTrigram(skuNorm string, p model.Product, description string) float64 {
	sSKU := TrigramSimilarity(skuNorm, normalizeSKU(p.InternalSKU))
	sDesc := TrigramSimilarity(description, p.Name+" "+p.Description)
	tri := sSKU
	if 0.7*sDesc > tri {
		tri = 0.7 * sDesc
	}
	return tri
}

// embeddingScore maps cosine similarity from [-1,1] to [0,1].
func embeddingScore(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return model.Clamp((cos + 1) / 2)
}

// uomPenalty implements §4.5.2's P_uom, also reporting whether the
// candidate is UoM-compatible: an exact base-UoM match or a known
// conversion, as opposed to the 0.2 incompatible penalty.
func uomPenalty(lineUoM model.UoM, p model.Product) (penalty float64, compatible bool) {
	if lineUoM == "" {
		return 0.9, true
	}
	if lineUoM == p.BaseUoM {
		return 1.0, true
	}
	if _, ok := p.UoMConversions[lineUoM]; ok {
		return 1.0, true
	}
	return 0.2, false
}

// pricePenalty implements §4.5.2's P_price, including the tier-selection
// rule (argmax min_qty subject to min_qty ≤ qty) and the open-question
// resolution that a null line currency is "unknown" → 1.0 (never here,
// since the caller already checked line.HasUnitPrice and line.Currency).
// It also reports whether a tier was found and the delta percentage
// against it, for validation.LineInput's PRICE_MISMATCH issue.
func pricePenalty(ctx context.Context, catalog Catalog, org, customer uuid.UUID, sku string, line Line, tolerancePct float64) (penalty float64, hasTier bool, deltaPct float64, err error) {
	tiers, err := catalog.PriceTiers(ctx, org, customer, sku, line.Currency, line.UoM)
	if err != nil {
		return 0, false, 0, err
	}
	if len(tiers) == 0 {
		return 1.0, false, 0, nil
	}

	var best *model.CustomerPrice
	for i := range tiers {
		t := &tiers[i]
		if t.Currency != line.Currency {
			continue // never cross-convert currencies
		}
		if t.MinQty.GreaterThan(line.Qty) {
			continue
		}
		if best == nil || t.MinQty.GreaterThan(best.MinQty) {
			best = t
		}
	}
	if best == nil {
		return 1.0, false, 0, nil
	}

	delta := money.PercentDelta(line.UnitPrice, best.UnitPrice)
	deltaPct, _ = delta.Float64()
	tau := decimal.NewFromFloat(tolerancePct)
	switch {
	case delta.LessThanOrEqual(tau):
		return 1.0, true, deltaPct, nil
	case delta.LessThanOrEqual(tau.Mul(decimal.NewFromInt(2))):
		return 0.85, true, deltaPct, nil
	default:
		return 0.65, true, deltaPct, nil
	}
}
