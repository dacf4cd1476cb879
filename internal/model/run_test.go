package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatusTerminal(t *testing.T) {
	assert.False(t, RunStatusPending.Terminal())
	assert.False(t, RunStatusRunning.Terminal())
	assert.True(t, RunStatusCompleted.Terminal())
	assert.True(t, RunStatusFailed.Terminal())
}

func TestRunStart(t *testing.T) {
	run := &PipelineRun{Status: RunStatusPending}
	run.Start()
	assert.Equal(t, RunStatusRunning, run.Status)

	// Start never leaves a terminal state.
	run.Status = RunStatusFailed
	run.Start()
	assert.Equal(t, RunStatusFailed, run.Status)
}

func TestStageOutput(t *testing.T) {
	run := &PipelineRun{Stages: []StageResult{
		{StageName: "verification", Output: "VERIFIED", OK: true},
	}}
	assert.Equal(t, "VERIFIED", run.StageOutput("verification"))
	assert.Nil(t, run.StageOutput("risk_assessment"))
}
