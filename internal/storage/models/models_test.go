package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"resume-gap-go/pkg/types"
)

func TestReferenceDocumentRoundTrip(t *testing.T) {
	doc := types.ReferenceDocument{ID: "job-1", Title: "Backend Engineer", Text: "Go services", Tags: []string{"Go", "gRPC"}}
	rec, err := NewReferenceDocument(DocumentKindJob, 3, doc)
	require.NoError(t, err)
	assert.Equal(t, "job", rec.Kind)
	assert.Equal(t, 3, rec.Position)
	assert.JSONEq(t, `["Go","gRPC"]`, string(rec.Tags))

	back, err := rec.ToType()
	require.NoError(t, err)
	assert.Equal(t, doc, back)

	rec, err = NewReferenceDocument(DocumentKindResume, 0, types.ReferenceDocument{ID: "r", Text: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(rec.Tags))
}

func TestDecodeResult(t *testing.T) {
	rec := GapAnalysisRecord{
		AnalysisID: "a-1",
		Status:     string(types.AnalysisStatusCompleted),
		Result:     datatypes.JSON(`{"analysis_id":"a-1","status":"PENDING","gap_analysis":{"coverage_percentage":25}}`),
	}
	res, err := rec.DecodeResult()
	require.NoError(t, err)
	assert.Equal(t, types.AnalysisStatusCompleted, res.Status, "状态以数据库列为准")
	assert.Equal(t, 25.0, res.GapAnalysis.CoveragePercentage)

	rec.Result = datatypes.JSON(`{bad`)
	_, err = rec.DecodeResult()
	assert.Error(t, err)
}

func TestNewOutboxMessage(t *testing.T) {
	msg, err := NewOutboxMessage("a-1", "analysis.completed", "ex", "rk", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, OutboxStatusPending, msg.Status)
	assert.JSONEq(t, `{"n":1}`, msg.Payload)
	assert.Equal(t, "ex", msg.TargetExchange)
	assert.Equal(t, "rk", msg.TargetRoutingKey)

	_, err = NewOutboxMessage("a-1", "x", "ex", "rk", make(chan int))
	assert.Error(t, err)
}
