package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 0.1, cfg.Anthropic.Temperature)
	assert.Equal(t, int64(100*1024*1024), cfg.Extract.MaxFileSize)
	assert.Equal(t, 50, cfg.Extract.MinContentChars)
	assert.Equal(t, []string{".pdf", ".docx", ".txt"}, cfg.Extract.AllowedExtensions)
	assert.Equal(t, 300, cfg.Pipeline.StageTimeoutSecs)
	assert.Equal(t, 24000, cfg.Pipeline.MaxDocumentChars)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FINSIGHT_STORE_DRIVER", "postgres")
	t.Setenv("FINSIGHT_ANTHROPIC_KEY", "sk-test")
	t.Setenv("FINSIGHT_SERPER_KEY", "serper-test")
	t.Setenv("FINSIGHT_PIPELINE_STAGE_TIMEOUT_SECS", "60")
	t.Setenv("FINSIGHT_PIPELINE_STAGES_FILE", "custom-stages.yaml")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, "serper-test", cfg.Serper.Key)
	assert.Equal(t, 60, cfg.Pipeline.StageTimeoutSecs)
	assert.Equal(t, "custom-stages.yaml", cfg.Pipeline.StagesFile)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
