package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStagesOrder(t *testing.T) {
	stages := DefaultStages()
	require.Len(t, stages, 4)

	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = s.Name
	}
	assert.Equal(t, []string{StageVerification, StageAnalysis, StageRisk, StageRecommendation}, names)

	for _, s := range stages {
		assert.NotEmpty(t, s.Role, s.Name)
		assert.NotEmpty(t, s.Task, s.Name)
		assert.NotEmpty(t, s.ExpectedOutput, s.Name)
	}
	assert.True(t, stages[0].UseMetrics)
	assert.False(t, stages[0].UseSearch)
	assert.True(t, stages[3].UseSearch)
}

func TestLoadStagesEmptyPathReturnsDefaults(t *testing.T) {
	stages, err := LoadStages("")
	require.NoError(t, err)
	assert.Equal(t, DefaultStages(), stages)
}

func TestLoadStagesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
stages:
  - name: summary
    role: Summarizer
    goal: Summarize the document
    task: Write a one paragraph summary.
    expected_output: A paragraph.
    use_metrics: true
  - name: outlook
    role: Forecaster
    goal: Project next quarter
    task: Estimate the next quarter trend.
    expected_output: A short outlook.
    use_search: true
`), 0o644))

	stages, err := LoadStages(path)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, "summary", stages[0].Name)
	assert.True(t, stages[0].UseMetrics)
	assert.Equal(t, "outlook", stages[1].Name)
	assert.True(t, stages[1].UseSearch)
}

func TestLoadStagesRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("stages: []\n"), 0o644))
	_, err := LoadStages(empty)
	assert.Error(t, err)

	noName := filepath.Join(dir, "noname.yaml")
	require.NoError(t, os.WriteFile(noName, []byte("stages:\n  - task: do it\n"), 0o644))
	_, err = LoadStages(noName)
	assert.Error(t, err)

	noTask := filepath.Join(dir, "notask.yaml")
	require.NoError(t, os.WriteFile(noTask, []byte("stages:\n  - name: x\n"), 0o644))
	_, err = LoadStages(noTask)
	assert.Error(t, err)

	_, err = LoadStages(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
