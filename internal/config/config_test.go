package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{DeepSeekAPIKeyEnv, AnthropicAPIKeyEnv, EnvPrefix + "_LLM_API_KEY"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, DefaultAggregateMarker, cfg.Analysis.AggregateMarker)
	assert.Equal(t, 0.5, cfg.Analysis.CleanThreshold)
	assert.Equal(t, 10, cfg.Analysis.TopN)
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "deepseek-chat", cfg.LLM.Model)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFrom_Precedence(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "stockdesk.yaml")
	yaml := `
analysis:
  top_n: 5
  aggregate_marker: 指数
llm:
  temperature: 0.2
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0644))

	t.Setenv("STOCKDESK_ANALYSIS_TOP_N", "7")

	cfg, err := LoadFrom(file)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Analysis.TopN, "env overrides file")
	assert.Equal(t, "指数", cfg.Analysis.AggregateMarker, "file overrides default")
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, DefaultContextLimit, cfg.Analysis.ContextLimit, "default kept")
}

func TestLoadFrom_ResolvesAPIKey(t *testing.T) {
	tests := []struct {
		name      string
		provider  string
		env       string
		value     string
		wantModel string
	}{
		{"deepseek", "deepseek", DeepSeekAPIKeyEnv, "sk-deep", DefaultLLMModel},
		{"anthropic", "anthropic", AnthropicAPIKeyEnv, "sk-ant", DefaultAnthropicModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("STOCKDESK_LLM_PROVIDER", tt.provider)
			t.Setenv(tt.env, tt.value)

			cfg, err := LoadFrom("")
			require.NoError(t, err)
			assert.Equal(t, tt.value, cfg.LLM.APIKey)
			assert.Equal(t, tt.wantModel, cfg.LLM.Model)
			assert.True(t, cfg.LLM.HasAPIKey())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"threshold zero", func(c *Config) { c.Analysis.CleanThreshold = 0 }, true},
		{"threshold above one", func(c *Config) { c.Analysis.CleanThreshold = 1.5 }, true},
		{"top n zero", func(c *Config) { c.Analysis.TopN = 0 }, true},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }, true},
		{"unknown format", func(c *Config) { c.Analysis.ReportFormats = []string{"docx"} }, true},
		{"required key missing", func(c *Config) { c.LLM.RequireAPIKey = true }, true},
		{"required key present", func(c *Config) {
			c.LLM.RequireAPIKey = true
			c.LLM.APIKey = "sk-real"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_ConverterDefaultsBinary(t *testing.T) {
	cfg := Default()
	cfg.Converter.Enabled = true
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "soffice", cfg.Converter.Binary)
}

func TestHasAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"your-api-key-here", false},
		{"sk-your-api-key-here", false},
		{"sk-123", true},
	}
	for _, tt := range tests {
		c := LLMConfig{APIKey: tt.key}
		assert.Equal(t, tt.want, c.HasAPIKey(), "key %q", tt.key)
	}
}
