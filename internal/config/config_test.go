package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "temp_project", cfg.WorkDir)
	assert.Equal(t, "memory", cfg.MemoryDir)
	assert.Equal(t, 1, cfg.CloneDepth)
	assert.Equal(t, ":5000", cfg.Listen)
	assert.Equal(t, 3, cfg.TopK)
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, "openrouter", cfg.LLM.Provider)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "stepfun/step-3.5-flash:free", cfg.LLM.Model)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "ollama", cfg.Embed.Provider)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REPO_URL", "https://example.com/a.git")
	t.Setenv("OPEN_ROUTER", "sk-or-test")
	t.Setenv("LUMIS_LLM_MODEL", "other/model")
	t.Setenv("LUMIS_TOP_K", "5")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.git", cfg.RepoURL)
	assert.Equal(t, "sk-or-test", cfg.LLM.APIKey)
	assert.Equal(t, "other/model", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.TopK)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lumis.yaml"), []byte(`
repo_url: https://example.com/b.git
workers: 2
embed:
  provider: openai
  model: text-embedding-3-small
log:
  format: json
`), 0o644))

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/b.git", cfg.RepoURL)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "openai", cfg.Embed.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embed.Model)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://localhost:11434", cfg.Embed.BaseURL)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogConfig_Logger(t *testing.T) {
	_, err := LogConfig{Level: "debug", Format: "json"}.Logger()
	assert.NoError(t, err)
	_, err = LogConfig{Level: "loud", Format: "text"}.Logger()
	assert.Error(t, err)
	_, err = LogConfig{Level: "info", Format: "xml"}.Logger()
	assert.Error(t, err)
}
