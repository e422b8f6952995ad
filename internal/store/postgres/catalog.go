package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/orderflow/orderflow/internal/apperr"
	"github.com/orderflow/orderflow/internal/matching"
	"github.com/orderflow/orderflow/internal/model"
)

var _ matching.Catalog = (*Store)(nil)

// ConfirmedMapping loads a CONFIRMED sku_mapping row, returning (nil,
// nil) on no match rather than a NotFound error: an unmapped SKU is an
// expected outcome for the matching pipeline's confirmed-mapping step,
// not a caller error.
func (s *Store) ConfirmedMapping(ctx context.Context, org, customer uuid.UUID, customerSKUNorm string) (*model.SkuMapping, error) {
	const op = "postgres.ConfirmedMapping"
	const query = `
		SELECT id, customer_id, customer_sku_norm, internal_sku, status,
		       confidence, support_count, reject_count, last_used_at
		FROM sku_mappings
		WHERE org_id = $1 AND customer_id = $2 AND customer_sku_norm = $3 AND status = 'CONFIRMED'`

	var m model.SkuMapping
	m.OrgID = org
	err := s.pool.QueryRow(ctx, query, org, customer, customerSKUNorm).Scan(
		&m.ID, &m.CustomerID, &m.CustomerSKUNorm, &m.InternalSKU, &m.Status,
		&m.Confidence, &m.SupportCount, &m.RejectCount, &m.LastUsedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient(op, "confirmed mapping lookup failed", err)
	}
	return &m, nil
}

// TrigramCandidates runs the pg_trgm similarity search against
// products.name (and, when customerSKUNorm is non-empty, also against a
// loosened match on internal_sku) scoped to the active catalog of org,
// returning the top 30 by similarity descending.
func (s *Store) TrigramCandidates(ctx context.Context, org uuid.UUID, customerSKUNorm, description string) ([]model.Product, error) {
	const op = "postgres.TrigramCandidates"
	const query = `
		SELECT org_id, internal_sku, name, description, base_uom, active
		FROM products
		WHERE org_id = $1 AND active
		  AND (similarity(name, $2) > 0.3 OR internal_sku ILIKE '%' || NULLIF($3, '') || '%')
		ORDER BY similarity(name, $2) DESC
		LIMIT 30`

	rows, err := s.pool.Query(ctx, query, org, description, customerSKUNorm)
	if err != nil {
		return nil, apperr.Transient(op, "trigram candidate query failed", err)
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.OrgID, &p.InternalSKU, &p.Name, &p.Description, &p.BaseUoM, &p.Active); err != nil {
			return nil, apperr.Transient(op, "trigram candidate scan failed", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient(op, "trigram candidate rows iteration failed", err)
	}
	return out, nil
}

// EmbeddingsEnabled reports whether org has opted into the
// embedding-backed fallback match step, stored as a per-org feature
// flag rather than a global toggle.
func (s *Store) EmbeddingsEnabled(org uuid.UUID) bool {
	const query = `SELECT embeddings_enabled FROM org_settings WHERE org_id = $1`
	var enabled bool
	if err := s.pool.QueryRow(context.Background(), query, org).Scan(&enabled); err != nil {
		return false
	}
	return enabled
}

// LineEmbedding looks up the cached vector for description in the
// pgvector-backed table line_embedding_cache, keyed by md5 of the text.
// It returns nil when no vector is cached; it does not call an
// embedding provider.
func (s *Store) LineEmbedding(ctx context.Context, org uuid.UUID, description string) ([]float32, error) {
	const op = "postgres.LineEmbedding"
	const query = `SELECT vector FROM line_embedding_cache WHERE org_id = $1 AND text_hash = md5($2)`
	var vec []float32
	err := s.pool.QueryRow(ctx, query, org, description).Scan(&vec)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient(op, "line embedding lookup failed", err)
	}
	return vec, nil
}

// ProductEmbedding loads the stored catalog-product embedding used as
// the comparison side of the cosine-distance fallback match.
func (s *Store) ProductEmbedding(ctx context.Context, org uuid.UUID, sku string) (*model.ProductEmbedding, error) {
	const op = "postgres.ProductEmbedding"
	const query = `
		SELECT org_id, internal_sku, model, text_hash, vector
		FROM product_embeddings
		WHERE org_id = $1 AND internal_sku = $2`
	var e model.ProductEmbedding
	err := s.pool.QueryRow(ctx, query, org, sku).Scan(&e.OrgID, &e.InternalSKU, &e.Model, &e.TextHash, &e.Vector)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Transient(op, "product embedding lookup failed", err)
	}
	return &e, nil
}

// PriceTiers loads the customer_prices rows a line's quantity is priced
// against, ordered by min_qty descending. The matching engine picks the
// tier with the largest min_qty the line's quantity clears, whatever the
// row order.
func (s *Store) PriceTiers(ctx context.Context, org, customer uuid.UUID, sku, currency string, uom model.UoM) ([]model.CustomerPrice, error) {
	const op = "postgres.PriceTiers"
	const query = `
		SELECT org_id, customer_id, internal_sku, currency, uom, min_qty,
		       valid_from, valid_to, unit_price
		FROM customer_prices
		WHERE org_id = $1 AND customer_id = $2 AND internal_sku = $3
		  AND currency = $4 AND uom = $5
		  AND (valid_to IS NULL OR valid_to >= now())
		ORDER BY min_qty DESC`

	rows, err := s.pool.Query(ctx, query, org, customer, sku, currency, uom)
	if err != nil {
		return nil, apperr.Transient(op, "price tier query failed", err)
	}
	defer rows.Close()

	var out []model.CustomerPrice
	for rows.Next() {
		var p model.CustomerPrice
		var minQty, unitPrice decimal.Decimal
		if err := rows.Scan(&p.OrgID, &p.CustomerID, &p.InternalSKU, &p.Currency, &p.UoM,
			&minQty, &p.ValidFrom, &p.ValidTo, &unitPrice); err != nil {
			return nil, apperr.Transient(op, "price tier scan failed", err)
		}
		p.MinQty, p.UnitPrice = minQty, unitPrice
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Transient(op, "price tier rows iteration failed", err)
	}
	return out, nil
}
