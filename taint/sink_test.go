package taint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDemo(t *testing.T) {
	p := load(t, demoRoot)

	report, err := newDetector(t, p).Detect(context.Background())
	require.NoError(t, err)

	assert.True(t, report.FoundAny())
	assert.Equal(t, 2, report.SinkCount)
	assert.Equal(t, []string{"backend.vul.add_user_to_db", "backend.vul.get_user_from_db"}, report.SinkFunctions)
	assert.Equal(t, []string{"backend.vul.get_user_from_db"}, report.Keys())
	assert.Empty(t, report.Incomplete)

	finding := report.Findings["backend.vul.get_user_from_db"]
	require.NotNil(t, finding)
	assert.Equal(t, "backend.vul", finding.Module)
	assert.Equal(t, "get_user_from_db", finding.Function)
	assert.Equal(t, []string{"backend.vul_wrapper:get_user_wrapper"}, finding.Endpoints)
	require.Len(t, finding.Sinks, 1)
	assert.Equal(t, 20, finding.Sinks[0].StartLine)

	root, ok := finding.Graph.Node(demoSinkID)
	require.True(t, ok)
	assert.False(t, root.Endpoint)
	assert.Equal(t, "cursor.execute", root.Calls.Name)
	assert.Len(t, root.Assignments, 3)

	entry, ok := finding.Graph.Node(demoEntryID)
	require.True(t, ok)
	assert.True(t, entry.Endpoint)
	assert.Equal(t, []string{"a"}, entry.Vars)
	require.NotNil(t, entry.Scope)
	assert.Equal(t, "get_user_wrapper", entry.Scope.Name)
}

func TestDetectNegative(t *testing.T) {
	report, err := newDetector(t, load(t, "../testdata/negative")).Detect(context.Background())
	require.NoError(t, err)

	assert.False(t, report.FoundAny())
	assert.Empty(t, report.Keys())
	assert.Equal(t, 1, report.SinkCount)
}

func TestDetectCycle(t *testing.T) {
	report, err := newDetector(t, load(t, "../testdata/cycle")).Detect(context.Background())
	require.NoError(t, err)

	assert.False(t, report.FoundAny())
	assert.Equal(t, []string{"a.ping"}, report.SinkFunctions)
}

func TestDetectIncomplete(t *testing.T) {
	report, err := newDetector(t, load(t, demoRoot), WithMaxVisits(1)).Detect(context.Background())
	require.NoError(t, err)

	assert.False(t, report.FoundAny())
	assert.Equal(t, []string{"backend.vul.get_user_from_db"}, report.Incomplete)
}

func TestDetectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newDetector(t, load(t, demoRoot)).Detect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
