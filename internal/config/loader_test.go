package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("load default config when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("OPENAI_API_KEY", "")

		cfg, err := NewLoader(filepath.Join(tmpDir, "nonexistent.json")).Load()

		require.NoError(t, err)
		assert.Equal(t, "assistant", cfg.Agent.Name)
		assert.Equal(t, 10, cfg.Agent.MaxIterations)
		assert.Equal(t, "jsonl", cfg.History.Backend)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "onion.json")

		testConfig := `{
			"agent": {"name": "my_assistant", "max_iterations": 4},
			"model": {"provider": "anthropic", "model": "claude-sonnet-4", "api_key": "sk-ant-file"},
			"history": {"backend": "sqlite"},
			"data_dir": "` + tmpDir + `"
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "my_assistant", cfg.Agent.Name)
		assert.Equal(t, 4, cfg.Agent.MaxIterations)
		assert.Equal(t, "anthropic", cfg.Model.Provider)
		assert.Equal(t, "sk-ant-file", cfg.Model.APIKey)
		assert.Equal(t, "sqlite", cfg.History.Backend)
		assert.Equal(t, filepath.Join(tmpDir, "history"), cfg.History.Dir)
		// unset keys keep defaults
		assert.Equal(t, "You are a helpful assistant.", cfg.Agent.SystemPrompt)
	})

	t.Run("environment overrides", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("ONION_AGENT_NAME", "from_env")
		t.Setenv("ONION_AGENT_MAX_ITERATIONS", "3")
		t.Setenv("ONION_DATA_DIR", tmpDir)

		cfg, err := NewLoader(filepath.Join(tmpDir, "missing.json")).Load()

		require.NoError(t, err)
		assert.Equal(t, "from_env", cfg.Agent.Name)
		assert.Equal(t, 3, cfg.Agent.MaxIterations)
		assert.Equal(t, tmpDir, cfg.DataDir)
	})

	t.Run("provider key from environment", func(t *testing.T) {
		tmpDir := t.TempDir()
		t.Setenv("OPENAI_API_KEY", "sk-from-env")

		cfg, err := NewLoader(filepath.Join(tmpDir, "missing.json")).Load()

		require.NoError(t, err)
		assert.Equal(t, "sk-from-env", cfg.Model.APIKey)
	})

	t.Run("invalid json", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "onion.json")

	cfg := DefaultConfig()
	cfg.Agent.Name = "saved_agent"
	cfg.Model.Provider = "gemini"
	cfg.DataDir = tmpDir

	loader := NewLoader(configPath)
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "saved_agent", loaded.Agent.Name)
	assert.Equal(t, "gemini", loaded.Model.Provider)
	assert.Equal(t, tmpDir, loaded.DataDir)
}
