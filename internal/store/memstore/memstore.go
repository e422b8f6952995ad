// Package memstore is an in-memory PersistencePort double: it backs
// unit and integration-style tests for every component that would
// otherwise need a live Postgres (matching.Catalog, orchestrator's
// budget gate, export's idempotency bookkeeping), the same role the
// pack's in-memory fakes play for their own store interfaces.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orderflow/orderflow/internal/export"
	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/matching"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/orchestrator"
	"github.com/orderflow/orderflow/internal/retention"
)

// Store holds every entity table the pipeline touches, guarded by one
// mutex: contention isn't a concern for a test double.
type Store struct {
	mu sync.Mutex

	Products       map[string]model.Product          // internal_sku -> product, catalog-wide (org check done by caller)
	ProductEmbeds  map[string]model.ProductEmbedding  // "org:sku" -> embedding
	Mappings       map[string]model.SkuMapping        // "org:customer:skuNorm" -> mapping
	Prices         []model.CustomerPrice
	AICallLogs     []model.AICallLog
	Exports        map[string]*model.ERPExport // keyed by export ID
	ExportFileName map[string]string           // file name -> export ID, for ack reconciliation
	EmbeddingsOn   map[uuid.UUID]bool
	Documents      map[uuid.UUID]*model.Document // keyed by document ID
	AuditLog       []auditEntry

	Drafts        map[uuid.UUID]*model.DraftOrder // keyed by draft ID
	CustomerNames map[uuid.UUID]customerInfo      // keyed by customer ID

	FeedbackEvents []model.FeedbackEvent
	LayoutProfiles map[string]*model.DocLayoutProfile // "org:fingerprint" -> profile

	RawDocumentRetentionDays int
	AICallLogRetentionDays   int
}

// customerInfo is the sliver of customer master data the export wire
// document's customer block needs; there's no broader customer entity
// in this persistence port.
type customerInfo struct {
	Name              string
	ErpCustomerNumber *string
}

type auditEntry struct {
	OrgID     uuid.UUID
	ActorID   string
	SubjectID uuid.UUID
	Action    model.AuditAction
	Details   map[string]any
}

func New() *Store {
	return &Store{
		Products:       map[string]model.Product{},
		ProductEmbeds:  map[string]model.ProductEmbedding{},
		Mappings:       map[string]model.SkuMapping{},
		Exports:        map[string]*model.ERPExport{},
		ExportFileName: map[string]string{},
		EmbeddingsOn:   map[uuid.UUID]bool{},
		Documents:      map[uuid.UUID]*model.Document{},
		Drafts:         map[uuid.UUID]*model.DraftOrder{},
		CustomerNames:  map[uuid.UUID]customerInfo{},
		LayoutProfiles: map[string]*model.DocLayoutProfile{},

		RawDocumentRetentionDays: 365,
		AICallLogRetentionDays:   90,
	}
}

// --- matching.Catalog ---

func mappingKey(org, customer uuid.UUID, skuNorm string) string {
	return org.String() + ":" + customer.String() + ":" + skuNorm
}

func (s *Store) ConfirmedMapping(ctx context.Context, org, customer uuid.UUID, customerSKUNorm string) (*model.SkuMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.Mappings[mappingKey(org, customer, customerSKUNorm)]
	if !ok || m.Status != model.MappingConfirmed {
		return nil, nil
	}
	return &m, nil
}

func (s *Store) PutConfirmedMapping(org, customer uuid.UUID, m model.SkuMapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Mappings[mappingKey(org, customer, m.CustomerSKUNorm)] = m
}

func (s *Store) TrigramCandidates(ctx context.Context, org uuid.UUID, customerSKUNorm, description string) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Product, 0, len(s.Products))
	for _, p := range s.Products {
		if p.OrgID == org && p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InternalSKU < out[j].InternalSKU })
	return out, nil
}

func (s *Store) EmbeddingsEnabled(org uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.EmbeddingsOn[org]
}

func (s *Store) LineEmbedding(ctx context.Context, org uuid.UUID, description string) ([]float32, error) {
	return nil, nil
}

func (s *Store) ProductEmbedding(ctx context.Context, org uuid.UUID, sku string) (*model.ProductEmbedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ProductEmbeds[org.String()+":"+sku]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) PriceTiers(ctx context.Context, org, customer uuid.UUID, sku, currency string, uom model.UoM) ([]model.CustomerPrice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CustomerPrice, 0)
	for _, p := range s.Prices {
		if p.OrgID == org && p.CustomerID == customer && p.InternalSKU == sku {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- orchestrator.BudgetPort ---

func (s *Store) TodaySpendMicros(ctx context.Context, orgID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	today := time.Now().UTC().Format("2006-01-02")
	for _, l := range s.AICallLogs {
		if l.OrgID == orgID && l.CreatedAt.UTC().Format("2006-01-02") == today {
			total += l.CostMicros
		}
	}
	return total, nil
}

func (s *Store) FindByInputHash(ctx context.Context, orgID uuid.UUID, inputHash string) (*model.AICallLog, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.AICallLogs) - 1; i >= 0; i-- {
		l := s.AICallLogs[i]
		if l.OrgID == orgID && l.InputHash != nil && *l.InputHash == inputHash && time.Since(l.CreatedAt) <= 7*24*time.Hour {
			return &l, true, nil
		}
	}
	return nil, false, nil
}

func (s *Store) RecordCall(ctx context.Context, log model.AICallLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AICallLogs = append(s.AICallLogs, log)
	return nil
}

var (
	_ matching.Catalog        = (*Store)(nil)
	_ orchestrator.BudgetPort = (*Store)(nil)
	_ export.Store            = (*Store)(nil)
	_ export.AckStore         = (*Store)(nil)
	_ retention.Store         = (*Store)(nil)
	_ export.DraftSource      = (*Store)(nil)
	_ feedback.Store          = (*Store)(nil)
)

// --- retention.Store ---

func (s *Store) OrgIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, d := range s.Documents {
		if !seen[d.OrgID] {
			seen[d.OrgID] = true
			out = append(out, d.OrgID)
		}
	}
	for _, l := range s.AICallLogs {
		if !seen[l.OrgID] {
			seen[l.OrgID] = true
			out = append(out, l.OrgID)
		}
	}
	return out, nil
}

func (s *Store) RetentionDays(ctx context.Context, org uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.RawDocumentRetentionDays, s.AICallLogRetentionDays, nil
}

func (s *Store) SoftDeleteDocuments(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for _, d := range s.Documents {
		if deleted >= batchSize {
			break
		}
		if d.OrgID != org || d.Status == model.DocumentDeleted || !d.CreatedAt.Before(olderThan) {
			continue
		}
		d.Status = model.DocumentDeleted
		d.StorageKey = ""
		deleted++
	}
	return deleted, nil
}

func (s *Store) SoftDeleteDocumentByID(ctx context.Context, org, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.Documents[documentID]
	if !ok || d.OrgID != org {
		return nil
	}
	d.Status = model.DocumentDeleted
	return nil
}

func (s *Store) HardDeleteAICallLogs(ctx context.Context, org uuid.UUID, olderThan time.Time, batchSize int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]model.AICallLog, 0, len(s.AICallLogs))
	deleted := 0
	for _, l := range s.AICallLogs {
		if deleted < batchSize && l.OrgID == org && l.CreatedAt.Before(olderThan) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	s.AICallLogs = kept
	return deleted, nil
}

func (s *Store) RecordAudit(ctx context.Context, org uuid.UUID, actorID string, subjectID uuid.UUID, action model.AuditAction, details map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.AuditLog = append(s.AuditLog, auditEntry{OrgID: org, ActorID: actorID, SubjectID: subjectID, Action: action, Details: details})
	return nil
}

// --- export.Store / export.AckStore ---

func (s *Store) RecordExportAttempt(ctx context.Context, rec export.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Exports[rec.ExportID]
	if !ok {
		e = &model.ERPExport{ID: uuid.New()}
		s.Exports[rec.ExportID] = e
	}
	e.Status = model.ExportSent
	e.CreatedAt = rec.PushedAt
	s.ExportFileName[rec.FileName] = rec.ExportID
	return nil
}

// ExportPushedAt recovers the org slug embedded in an export ID
// ("export:<orgSlug>:<draftID>") and the push timestamp recorded at
// RecordExportAttempt time, for the ack reconciler's latency metric.
func (s *Store) ExportPushedAt(ctx context.Context, exportID string) (string, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Exports[exportID]
	if !ok {
		return "", time.Time{}, false
	}
	parts := strings.SplitN(exportID, ":", 3)
	orgSlug := "unknown"
	if len(parts) == 3 {
		orgSlug = parts[1]
	}
	return orgSlug, e.CreatedAt, true
}

func (s *Store) UpdateExportStatus(ctx context.Context, exportID, status string, errMsg, erpOrderID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.Exports[exportID]
	if !ok {
		e = &model.ERPExport{}
		s.Exports[exportID] = e
	}
	e.Status = model.ExportStatus(status)
	e.ErpOrderID = erpOrderID
	if errMsg != nil {
		e.ErrorJSON = map[string]any{"message": *errMsg}
	}
	return nil
}

func (s *Store) ResolveExportID(ctx context.Context, fileName string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ExportFileName[fileName]
	return id, ok
}

// --- feedback.Store ---

func (s *Store) AppendEvent(ctx context.Context, ev model.FeedbackEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FeedbackEvents = append(s.FeedbackEvents, ev)
	return nil
}

func (s *Store) RecentByLayout(ctx context.Context, org uuid.UUID, layoutFingerprint string, types []model.FeedbackEventType, limit int) ([]model.FeedbackEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allowed := map[model.FeedbackEventType]bool{}
	for _, t := range types {
		allowed[t] = true
	}
	var out []model.FeedbackEvent
	for i := len(s.FeedbackEvents) - 1; i >= 0 && len(out) < limit; i-- {
		ev := s.FeedbackEvents[i]
		if ev.OrgID != org || ev.LayoutFingerprint == nil || *ev.LayoutFingerprint != layoutFingerprint {
			continue
		}
		if !allowed[ev.EventType] {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *Store) BumpLayoutProfile(ctx context.Context, org uuid.UUID, layoutFingerprint string, sawExample bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := org.String() + ":" + layoutFingerprint
	p, ok := s.LayoutProfiles[key]
	if !ok {
		p = &model.DocLayoutProfile{OrgID: org, LayoutFingerprint: layoutFingerprint}
		s.LayoutProfiles[key] = p
	}
	p.SeenCount++
	if sawExample {
		p.ExampleCount++
	}
	p.LastSeenAt = time.Now().UTC()
	return nil
}

// --- export.DraftSource ---

// PutDraft seeds a draft and its source document, the CLI export
// command's loading path since this port has no separate draft-write
// API of its own (drafts are produced upstream by extraction/approval,
// out of scope here).
func (s *Store) PutDraft(draft model.DraftOrder, doc model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Drafts[draft.ID] = &draft
	s.Documents[doc.ID] = &doc
}

// PutCustomer seeds the customer master-data fields BuildDocument
// stamps onto the wire document's customer block.
func (s *Store) PutCustomer(customerID uuid.UUID, name string, erpCustomerNumber *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CustomerNames[customerID] = customerInfo{Name: name, ErpCustomerNumber: erpCustomerNumber}
}

// GetDraft loads one org-scoped draft for the approve command's
// lifecycle transitions.
func (s *Store) GetDraft(ctx context.Context, org, draftID uuid.UUID) (*model.DraftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.Drafts[draftID]
	if !ok || d.OrgID != org {
		return nil, fmt.Errorf("memstore: draft %s not found for org %s", draftID, org)
	}
	cp := *d
	return &cp, nil
}

// SaveDraftStatus persists the status/approver/approved_at fields
// draft.Transition mutated, the write half of GetDraft's read.
func (s *Store) SaveDraftStatus(ctx context.Context, d *model.DraftOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Drafts[d.ID]; !ok {
		return fmt.Errorf("memstore: draft %s not found", d.ID)
	}
	cp := *d
	s.Drafts[d.ID] = &cp
	return nil
}

// RecentDuplicateExternalOrder reports whether any draft for org carries
// externalOrderNumber with a CreatedAt within the trailing window.
func (s *Store) RecentDuplicateExternalOrder(ctx context.Context, org uuid.UUID, externalOrderNumber string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if externalOrderNumber == "" {
		return false, nil
	}
	cutoff := time.Now().UTC().Add(-window)
	for _, d := range s.Drafts {
		if d.OrgID != org || d.Header.ExternalOrderNumber == nil {
			continue
		}
		if *d.Header.ExternalOrderNumber == externalOrderNumber && d.CreatedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DraftForExport(ctx context.Context, org, draftID uuid.UUID) (export.DraftExportInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.Drafts[draftID]
	if !ok || draft.OrgID != org {
		return export.DraftExportInput{}, fmt.Errorf("memstore: draft %s not found for org %s", draftID, org)
	}
	var doc *model.Document
	if d, ok := s.Documents[draft.DocumentID]; ok {
		doc = d
	}
	var name string
	var erpNumber *string
	if draft.CustomerID != nil {
		if c, ok := s.CustomerNames[*draft.CustomerID]; ok {
			name, erpNumber = c.Name, c.ErpCustomerNumber
		}
	}
	return export.DraftExportInput{
		Draft:             draft,
		Document:          doc,
		CustomerName:      name,
		ErpCustomerNumber: erpNumber,
	}, nil
}

