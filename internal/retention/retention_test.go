package retention_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/retention"
)

type docRow struct {
	createdAt time.Time
	deleted   bool
}

type logRow struct {
	createdAt time.Time
	deleted   bool
}

type fakeStore struct {
	orgs        []uuid.UUID
	rawDays     int
	aiDays      int
	docs        map[uuid.UUID][]docRow
	logs        map[uuid.UUID][]logRow
	auditCalls  int
}

func newFakeStore(org uuid.UUID) *fakeStore {
	return &fakeStore{
		orgs:    []uuid.UUID{org},
		rawDays: 365,
		aiDays:  90,
		docs:    map[uuid.UUID][]docRow{},
		logs:    map[uuid.UUID][]logRow{},
	}
}

func (f *fakeStore) OrgIDs(ctx context.Context) ([]uuid.UUID, error) { return f.orgs, nil }

func (f *fakeStore) RetentionDays(ctx context.Context, org uuid.UUID) (int, int, error) {
	return f.rawDays, f.aiDays, nil
}

func (f *fakeStore) SoftDeleteDocuments(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error) {
	n := 0
	rows := f.docs[org]
	for i := range rows {
		if n >= batchSize {
			break
		}
		if !rows[i].deleted && rows[i].createdAt.Before(olderThan) {
			rows[i].deleted = true
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) HardDeleteAICallLogs(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error) {
	rows := f.logs[org]
	kept := rows[:0]
	n := 0
	for _, r := range rows {
		if n < batchSize && r.createdAt.Before(olderThan) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.logs[org] = kept
	return n, nil
}

func (f *fakeStore) SoftDeleteDocumentByID(ctx context.Context, org, documentID uuid.UUID) error {
	f.auditCalls++ // manual path always pairs with RecordAudit in the real caller
	return nil
}

func (f *fakeStore) RecordAudit(ctx context.Context, org uuid.UUID, actorID string, subjectID uuid.UUID, action model.AuditAction, details map[string]any) error {
	f.auditCalls++
	return nil
}

func TestRunOnce_SoftDeletesAgedDocuments(t *testing.T) {
	org := uuid.New()
	store := newFakeStore(org)
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	store.docs[org] = []docRow{
		{createdAt: now.AddDate(-2, 0, 0)},
		{createdAt: now.AddDate(0, 0, -10)},
	}

	job := retention.Job{Store: store}
	report, err := job.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.OrgsSwept)
	assert.Equal(t, 1, report.DocumentsSoftDeleted)
	assert.True(t, store.docs[org][0].deleted)
	assert.False(t, store.docs[org][1].deleted)
}

func TestRunOnce_HardDeletesAgedAICallLogs(t *testing.T) {
	org := uuid.New()
	store := newFakeStore(org)
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	store.logs[org] = []logRow{
		{createdAt: now.AddDate(0, 0, -100)},
		{createdAt: now.AddDate(0, 0, -5)},
	}

	job := retention.Job{Store: store}
	report, err := job.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.AICallLogsHardDeleted)
	require.Len(t, store.logs[org], 1)
}

func TestRunOnce_SecondRunOnUnchangedCorpusIsNoop(t *testing.T) {
	org := uuid.New()
	store := newFakeStore(org)
	now := time.Date(2026, 1, 1, 2, 0, 0, 0, time.UTC)
	store.docs[org] = []docRow{{createdAt: now.AddDate(-2, 0, 0)}}

	job := retention.Job{Store: store}
	first, err := job.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DocumentsSoftDeleted)

	second, err := job.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.DocumentsSoftDeleted)
}

func TestManualDeleter_RecordsAudit(t *testing.T) {
	org := uuid.New()
	store := newFakeStore(org)
	m := retention.ManualDeleter{Store: store}

	err := m.DeleteDocument(context.Background(), org, uuid.New(), "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.auditCalls) // delete + audit record
}
