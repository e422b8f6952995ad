package cmd

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/export"
	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/matching"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/orchestrator"
	"github.com/orderflow/orderflow/internal/retention"
	"github.com/orderflow/orderflow/internal/store/memstore"
	"github.com/orderflow/orderflow/internal/store/postgres"
)

// persistentStore is the union of every narrow store port the CLI and
// worker commands need: matching.Catalog, orchestrator.BudgetPort,
// export.Store/AckStore/DraftSource, retention.Store, and the
// draft-lifecycle read/write pair the approve command uses. memstore.Store
// and postgres.Store both satisfy it; buildStore picks between them based
// on whether --db-dsn/ORDERFLOW_DB_DSN is set, falling back to the
// in-memory store for local one-shot runs against no real database.
type persistentStore interface {
	matching.Catalog
	orchestrator.BudgetPort
	export.Store
	export.AckStore
	export.DraftSource
	retention.Store
	feedback.Store

	GetDraft(ctx context.Context, org, draftID uuid.UUID) (*model.DraftOrder, error)
	SaveDraftStatus(ctx context.Context, d *model.DraftOrder) error
	RecentDuplicateExternalOrder(ctx context.Context, org uuid.UUID, externalOrderNumber string, window time.Duration) (bool, error)
}

func buildStore(ctx context.Context) (persistentStore, func(), error) {
	if dbDSN == "" {
		return memstore.New(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := postgres.Connect(connectCtx, dbDSN)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.NewStore(pool)
	return store, pool.Close, nil
}
