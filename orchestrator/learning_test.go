package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscout/leadscout/llm"
	"github.com/leadscout/leadscout/llm/testutil"
	"github.com/leadscout/leadscout/orchestrator"
)

func TestReflector_ExtractsLessons(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{
			{Content: `{"lessons": [
				{"topic": "workflow", "content": "enrich after discover works well for plumbing niches"}
			]}`},
		},
	}

	r := orchestrator.NewReflector(mock, nil, nil)

	lessons, err := r.Reflect(context.Background(), "find plumbers", []orchestrator.StepRecord{
		{Action: "discover", Status: "completed", Success: true},
		{Action: "enrich", Status: "completed", Success: true},
	}, true)

	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "workflow", lessons[0].Topic)
	assert.Equal(t, "find plumbers", lessons[0].Goal)
	assert.True(t, lessons[0].Success)
}

func TestReflector_NoLessons(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{{Content: `{"lessons": []}`}},
	}

	r := orchestrator.NewReflector(mock, nil, nil)

	lessons, err := r.Reflect(context.Background(), "goal", []orchestrator.StepRecord{
		{Action: "discover", Status: "completed", Success: true},
	}, true)

	require.NoError(t, err)
	assert.Empty(t, lessons)
}

func TestReflector_SkipsEmptySteps(t *testing.T) {
	mock := &testutil.MockClient{}

	r := orchestrator.NewReflector(mock, nil, nil)

	lessons, err := r.Reflect(context.Background(), "goal", nil, false)

	require.NoError(t, err)
	assert.Empty(t, lessons)
	assert.Zero(t, mock.CallCount(), "no completion call for an empty job")
}

func TestReflector_DropsIncompleteLessons(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{
			{Content: `{"lessons": [
				{"topic": "", "content": "missing topic"},
				{"topic": "timing", "content": ""},
				{"topic": "timing", "content": "audits take longest"}
			]}`},
		},
	}

	r := orchestrator.NewReflector(mock, nil, nil)

	lessons, err := r.Reflect(context.Background(), "goal", []orchestrator.StepRecord{
		{Action: "audit", Status: "completed", Success: true},
	}, true)

	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "audits take longest", lessons[0].Content)
}

func TestReflector_MalformedResponse(t *testing.T) {
	mock := &testutil.MockClient{
		Responses: []*llm.Response{{Content: "nothing useful"}},
	}

	r := orchestrator.NewReflector(mock, nil, nil)

	_, err := r.Reflect(context.Background(), "goal", []orchestrator.StepRecord{
		{Action: "discover", Status: "failed", Success: false},
	}, false)

	require.Error(t, err)
}
