package orderflowlib_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csvextract "github.com/orderflow/orderflow/internal/extract/csv"
	"github.com/orderflow/orderflow/internal/feedback"
	"github.com/orderflow/orderflow/internal/model"
	"github.com/orderflow/orderflow/internal/orchestrator"
	"github.com/orderflow/orderflow/internal/store/memstore"
	"github.com/orderflow/orderflow/pkg/orderflowlib"
)

func TestPipeline_Ingest_CSVHappyPath(t *testing.T) {
	store := memstore.New()
	org, customer := uuid.New(), uuid.New()
	store.Products["SKU-WIDGET"] = model.Product{OrgID: org, InternalSKU: "SKU-WIDGET", Name: "Widget", Active: true, BaseUoM: model.UoMPiece}
	store.PutConfirmedMapping(org, customer, model.SkuMapping{
		CustomerSKUNorm: "X1", InternalSKU: "SKU-WIDGET", Status: model.MappingConfirmed,
	})

	orch := &orchestrator.Orchestrator{
		Rules: map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{
			orchestrator.MimeCSV: csvextract.Extract,
		},
		Budget: store,
	}
	pipeline := orderflowlib.NewPipeline(orch, store, orderflowlib.DefaultPipelineOptions())

	raw := []byte("SKU,Description,Qty,Unit,Unit Price,Currency\n" +
		"X-1,Widget,10,pc,1.25,USD\n")

	result, err := pipeline.Ingest(context.Background(), org, customer, "order.csv", raw, "", "", 1, 0)
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.NotNil(t, result.Matches[0].InternalSKU)
	assert.Equal(t, "SKU-WIDGET", *result.Matches[0].InternalSKU)
	assert.False(t, result.UsedLLM)
}

func TestPipeline_Ingest_SkipsHintLookupWithoutLayoutFingerprint(t *testing.T) {
	store := memstore.New()
	org, customer := uuid.New(), uuid.New()
	orch := &orchestrator.Orchestrator{
		Rules: map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{
			orchestrator.MimeCSV: csvextract.Extract,
		},
		Budget: store,
	}
	pipeline := orderflowlib.NewPipeline(orch, store, orderflowlib.DefaultPipelineOptions())
	pipeline.Feedback = &feedback.Retriever{Store: store}

	raw := []byte("SKU,Description,Qty,Unit,Unit Price,Currency\n" +
		"X-1,Widget,10,pc,1.25,USD\n")

	// No --layout-fingerprint equivalent supplied: Feedback.Hints must
	// never be consulted, so a store with zero feedback events is fine.
	_, err := pipeline.Ingest(context.Background(), org, customer, "order.csv", raw, "", "", 1, 0)
	require.NoError(t, err)
}

func TestPipeline_Ingest_UnrecognizedFormatFails(t *testing.T) {
	store := memstore.New()
	orch := &orchestrator.Orchestrator{Rules: map[orchestrator.MimeClass]orchestrator.RuleExtractorFunc{}, Budget: store}
	pipeline := orderflowlib.NewPipeline(orch, store, orderflowlib.DefaultPipelineOptions())

	_, err := pipeline.Ingest(context.Background(), uuid.New(), uuid.New(), "", []byte{0x00, 0x01}, "", "", 0, 0)
	require.Error(t, err)
}
