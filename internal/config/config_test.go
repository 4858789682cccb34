package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfigMergesDefaults 验证 YAML 中未出现的字段保留默认值
func TestLoadConfigMergesDefaults(t *testing.T) {
	content := `
server:
  address: ":9090"
  api_keys: ["k1", "k2"]
engine:
  priority_limit: 5
rabbitmq:
  prefetch_count: 20
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := LoadConfigFromFileOnly(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, 5, cfg.Engine.PriorityLimit)
	assert.Equal(t, 20, cfg.RabbitMQ.PrefetchCount)

	// 默认值
	assert.Equal(t, 5.0, cfg.Engine.RelevanceSaturation)
	assert.Equal(t, 1000, cfg.Engine.MaxFeatures)
	assert.Equal(t, 3, cfg.Engine.TopMissingPerCategory)
	assert.Equal(t, "q.gap_analysis_requests", cfg.RabbitMQ.AnalysisRequestQueue)
	assert.Equal(t, "file", cfg.Corpus.Source)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  model: qwen-plus\n"), 0644))

	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("GAP_API_KEYS", " a , ,b ")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, "qwen-plus", cfg.LLM.Model)
	assert.Equal(t, []string{"a", "b"}, cfg.Server.APIKeys)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfigFromFileOnly("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	badPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badPath, []byte("server: [unterminated"), 0644))
	_, err = LoadConfig(badPath)
	assert.Error(t, err)
}

func TestCreateSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.yaml")
	require.NoError(t, CreateSampleConfig(path))
	assert.Error(t, CreateSampleConfig(path), "已存在的文件不应被覆盖")

	cfg, err := LoadConfigFromFileOnly(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("", 5*time.Second))
	assert.Equal(t, 2*time.Minute, GetDuration("2m", 5*time.Second))
	assert.Equal(t, 5*time.Second, GetDuration("bogus", 5*time.Second))
}
