// Package model holds the canonical order schema (C1) and the entity
// records of §3. Entities are plain records with explicit relations by
// identifier — no inheritance, no cyclic ORM graphs (§9 "duck-typed ORM
// entities" / "cyclic ORM relationships"): a soft foreign key (a string
// SKU, a uuid.UUID) is the only link between aggregates.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrgSettings is the typed per-org settings record replacing the
// "settings_json free-form blob" anti-pattern flagged in §9: a typed
// struct has no field for an unknown key. Neither this package nor
// internal/config parses free-form settings keys, so no key is checked
// or rejected at runtime.
type OrgSettings struct {
	RetentionDays        int
	MatchingAutoApplyThr float64
	MatchingAutoApplyGap float64
	PriceTolerancePct    float64
	DailyAIBudgetMicros  int64
	RejectThreshold      int
}

type Org struct {
	ID       uuid.UUID
	Slug     string
	Name     string
	Settings OrgSettings
}

type MessageSource string

const (
	SourceEmail  MessageSource = "EMAIL"
	SourceUpload MessageSource = "UPLOAD"
)

type InboundMessage struct {
	OrgID       uuid.UUID
	ID          uuid.UUID
	Source      MessageSource
	ReceivedAt  time.Time
	DedupKey    string
}

type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "UPLOADED"
	DocumentStored     DocumentStatus = "STORED"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentExtracted  DocumentStatus = "EXTRACTED"
	DocumentFailed     DocumentStatus = "FAILED"
	DocumentDeleted    DocumentStatus = "DELETED"
)

// documentTransitions is the DAG of §3: "∅ → UPLOADED → STORED →
// PROCESSING → {EXTRACTED | FAILED}" with "FAILED → PROCESSING" for retry.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	"":                 {DocumentUploaded},
	DocumentUploaded:   {DocumentStored},
	DocumentStored:     {DocumentProcessing},
	DocumentProcessing: {DocumentExtracted, DocumentFailed},
	DocumentFailed:     {DocumentProcessing, DocumentDeleted},
	DocumentExtracted:  {DocumentDeleted},
}

// CanTransitionDocument reports whether from→to is an allowed Document
// status transition.
func CanTransitionDocument(from, to DocumentStatus) bool {
	for _, candidate := range documentTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

type Document struct {
	OrgID             uuid.UUID
	ID                uuid.UUID
	InboundMessageID  uuid.UUID
	StorageKey        string
	MimeType          string
	FileName          string
	SizeBytes         int64
	SHA256             string
	Status            DocumentStatus
	TextCoverageRatio *float64
	PageCount         *int
	LayoutFingerprint *string
	CreatedAt         time.Time
}

type ExtractionRunStatus string

const (
	RunNew       ExtractionRunStatus = "NEW"
	RunRunning   ExtractionRunStatus = "RUNNING"
	RunSucceeded ExtractionRunStatus = "SUCCEEDED"
	RunFailed    ExtractionRunStatus = "FAILED"
)

type ExtractionRun struct {
	OrgID            uuid.UUID
	ID               uuid.UUID
	DocumentID       uuid.UUID
	ExtractorVersion string // "rule_v1", "llm_v1"
	Status           ExtractionRunStatus
	StartedAt        time.Time
	FinishedAt       *time.Time
	LineCount        int
	OverallConfidence float64
	Output           *CanonicalOrder
	ErrorJSON        map[string]any
	Metrics          map[string]any
}

type Product struct {
	OrgID          uuid.UUID
	InternalSKU    string
	Name           string
	Description    string
	BaseUoM        UoM
	UoMConversions map[UoM]decimal.Decimal // alternate uom -> factor to base
	Active         bool
	Attributes     map[string]any
}

// ConvertsToBase reports whether u is usable against this product: the
// base UoM itself or a recognized alternate-UoM conversion key.
func (p Product) ConvertsToBase(u UoM) bool {
	if u == p.BaseUoM {
		return true
	}
	_, ok := p.UoMConversions[u]
	return ok
}

type ProductEmbedding struct {
	OrgID       uuid.UUID
	InternalSKU string
	Model       string
	TextHash    string
	Vector      []float32
}

type MappingStatus string

const (
	MappingSuggested  MappingStatus = "SUGGESTED"
	MappingConfirmed  MappingStatus = "CONFIRMED"
	MappingRejected   MappingStatus = "REJECTED"
	MappingDeprecated MappingStatus = "DEPRECATED"
)

type SkuMapping struct {
	OrgID               uuid.UUID
	ID                  uuid.UUID
	CustomerID          uuid.UUID
	CustomerSKUNorm     string
	InternalSKU         string
	Status              MappingStatus
	Confidence          float64
	SupportCount        int
	RejectCount         int
	LastUsedAt          *time.Time
}

type DraftStatus string

const (
	DraftNeedsReview DraftStatus = "NEEDS_REVIEW"
	DraftReady       DraftStatus = "READY"
	DraftApproved    DraftStatus = "APPROVED"
	DraftPushing     DraftStatus = "PUSHING"
	DraftPushed      DraftStatus = "PUSHED"
	DraftError       DraftStatus = "ERROR"
)

type DraftOrder struct {
	OrgID           uuid.UUID
	ID              uuid.UUID
	CustomerID      *uuid.UUID
	DocumentID      uuid.UUID
	ExtractionRunID uuid.UUID
	Status          DraftStatus
	Header          OrderHeader
	ApproverID      *string
	ApprovedAt      *time.Time
	ReadyCheckJSON  map[string]any
	Lines           []DraftOrderLine
	CreatedAt       time.Time
}

type MatchMethod string

const (
	MethodExactMapping MatchMethod = "exact_mapping"
	MethodHybrid       MatchMethod = "hybrid"
	MethodTrigram      MatchMethod = "trigram"
	MethodEmbedding    MatchMethod = "embedding"
	MethodNone         MatchMethod = ""
)

type MatchStatus string

const (
	MatchMatched    MatchStatus = "MATCHED"
	MatchSuggested  MatchStatus = "SUGGESTED"
	MatchUnmatched  MatchStatus = "UNMATCHED"
	MatchOverridden MatchStatus = "OVERRIDDEN"
)

type DraftOrderLine struct {
	ID              uuid.UUID
	LineNo          int
	CustomerSKURaw  string
	Description     string
	Qty             decimal.Decimal
	UoM             UoM
	UnitPrice       decimal.Decimal
	Currency        string

	InternalSKU     *string
	MatchConfidence float64
	MatchMethod     MatchMethod
	MatchStatus     MatchStatus
	MatchDebug      []ScoredCandidateDebug
}

// ScoredCandidateDebug is the persisted top-5 candidate breakdown (§3
// DraftOrderLine.match_debug).
type ScoredCandidateDebug struct {
	InternalSKU string
	Confidence  float64
	Method      MatchMethod
	STri        float64
	SEmb        float64
	PUoM        float64
	PPrice      float64
}

type CustomerPrice struct {
	OrgID       uuid.UUID
	CustomerID  uuid.UUID
	InternalSKU string
	Currency    string
	UoM         UoM
	MinQty      decimal.Decimal
	ValidFrom   *time.Time
	ValidTo     *time.Time
	UnitPrice   decimal.Decimal
}

type IssueSeverity string

const (
	SeverityWarning IssueSeverity = "WARNING"
	SeverityError   IssueSeverity = "ERROR"
)

type IssueKind string

const (
	IssueMissingCustomer     IssueKind = "MISSING_CUSTOMER"
	IssueAmbiguousCustomer   IssueKind = "AMBIGUOUS_CUSTOMER"
	IssueMissingSKU          IssueKind = "MISSING_SKU"
	IssueLowConfidenceMatch  IssueKind = "LOW_CONFIDENCE_MATCH"
	IssuePriceMismatch       IssueKind = "PRICE_MISMATCH"
	IssueMissingPrice        IssueKind = "MISSING_PRICE"
	IssueUoMIncompatible     IssueKind = "UOM_INCOMPATIBLE"
	IssueDuplicateOrder      IssueKind = "DUPLICATE_ORDER"
	IssueLineCountMismatch   IssueKind = "LINE_COUNT_MISMATCH"
	IssueExtractionWarnings  IssueKind = "EXTRACTION_WARNINGS_PROPAGATED"
)

type ValidationIssue struct {
	Kind     IssueKind
	Severity IssueSeverity
	LineNo   *int // nil for header-level issues
	Details  map[string]any
}

type ExportStatus string

const (
	ExportPending ExportStatus = "PENDING"
	ExportSent    ExportStatus = "SENT"
	ExportAcked   ExportStatus = "ACKED"
	ExportFailed  ExportStatus = "FAILED"
)

type ERPExport struct {
	OrgID          uuid.UUID
	ID             uuid.UUID
	DraftOrderID   uuid.UUID
	ErpConnection  string
	Status         ExportStatus
	StorageKey     *string
	DropzonePath   *string
	ErpOrderID     *string
	ErrorJSON      map[string]any
	CreatedAt      time.Time
}

type FeedbackEventType string

const (
	FeedbackMappingConfirmed        FeedbackEventType = "MAPPING_CONFIRMED"
	FeedbackMappingRejected         FeedbackEventType = "MAPPING_REJECTED"
	FeedbackExtractionLineCorrected FeedbackEventType = "EXTRACTION_LINE_CORRECTED"
	FeedbackExtractionFieldCorrected FeedbackEventType = "EXTRACTION_FIELD_CORRECTED"
	FeedbackCustomerSelected        FeedbackEventType = "CUSTOMER_SELECTED"
)

// FeedbackPayloadCap is the §3/§9 10 KB cap per side.
const FeedbackPayloadCap = 10 * 1024

type FeedbackEvent struct {
	OrgID             uuid.UUID
	ID                uuid.UUID
	EventType         FeedbackEventType
	BeforeJSON        map[string]any
	AfterJSON         map[string]any
	LayoutFingerprint *string
	InputSnippet      string
	Actor             string
	CreatedAt         time.Time
}

type DocLayoutProfile struct {
	OrgID             uuid.UUID
	LayoutFingerprint string
	SeenCount         int
	ExampleCount      int
	LastSeenAt        time.Time
}

type AICallStatus string

const (
	AICallSucceeded AICallStatus = "SUCCEEDED"
	AICallFailed    AICallStatus = "FAILED"
)

type AICallLog struct {
	OrgID        uuid.UUID
	ID           uuid.UUID
	DocumentID   *uuid.UUID
	CallType     string // "extract_text", "extract_image", "repair_json", "embed"
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMS    int64
	CostMicros   int64
	Status       AICallStatus
	InputHash    *string
	CreatedAt    time.Time
}

type AuditAction string

const (
	AuditDraftApproved        AuditAction = "DRAFT_APPROVED"
	AuditDraftPushed          AuditAction = "DRAFT_PUSHED"
	AuditDraftPushFailed      AuditAction = "DRAFT_PUSH_FAILED"
	AuditDraftApprovalRevoked AuditAction = "DRAFT_APPROVAL_REVOKED"
	AuditExportAcked          AuditAction = "EXPORT_ACKED"
	AuditManualDelete         AuditAction = "MANUAL_DELETE"
)

type AuditLog struct {
	OrgID     uuid.UUID
	ID        uuid.UUID
	Action    AuditAction
	ActorID   string
	SubjectID uuid.UUID
	Details   map[string]any
	CreatedAt time.Time
}
