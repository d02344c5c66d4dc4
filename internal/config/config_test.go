package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadConfigDefaultsAndEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "8080"
  mode: debug
jwt:
  secret: dev-secret
  expire_hours: 24
ai:
  base_url: https://api.groq.com/openai/v1
  model: llama-3.3-70b-versatile
`)
	t.Setenv("AI_API_KEY", "sk-test-123")

	viper.Reset()
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sk-test-123", cfg.AI.APIKey)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)

	// 编排参数默认值
	assert.Equal(t, 20, cfg.Chat.HistoryWindow)
	assert.Equal(t, 120, cfg.Chat.TurnLockSeconds)
	assert.Equal(t, 60, cfg.AI.TimeoutSeconds)
	assert.Equal(t, "prompts", cfg.Prompt.Dir)
}

func TestLoadConfigRejectsWeakSecretInRelease(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "8080"
  mode: release
jwt:
  secret: short
  expire_hours: 24
`)

	viper.Reset()
	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}
