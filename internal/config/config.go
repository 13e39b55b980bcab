package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	LLM       LLMConfig       `yaml:"llm" envconfig:"LLM"`
	Converter ConverterConfig `yaml:"converter" envconfig:"CONVERTER"`
	Tracing   TracingConfig   `yaml:"tracing" envconfig:"TRACING"`
}

// ServerConfig contains HTTP server configuration for cmd/web
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" validate:"gte=0"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" validate:"gte=0"`
	// WebSocketAnyOrigin accepts upgrades from pages served by other origins
	WebSocketAnyOrigin bool `yaml:"websocket_any_origin" envconfig:"WEBSOCKET_ANY_ORIGIN"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	// OutputDir is where reports are written. Empty means the user's desktop.
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// AnalysisConfig tunes the analysis pipeline
type AnalysisConfig struct {
	AggregateMarker string   `yaml:"aggregate_marker" envconfig:"AGGREGATE_MARKER" validate:"required"`
	CleanThreshold  float64  `yaml:"clean_threshold" envconfig:"CLEAN_THRESHOLD" validate:"gt=0,lte=1"`
	TopN            int      `yaml:"top_n" envconfig:"TOP_N" validate:"gt=0,lte=500"`
	ContextLimit    int      `yaml:"context_limit" envconfig:"CONTEXT_LIMIT" validate:"gte=500"`
	ReportFormats   []string `yaml:"report_formats" envconfig:"REPORT_FORMATS" validate:"min=1,dive,oneof=md xlsx csv docx"`
	// Strategies overrides the ingestion order by strategy name. Empty keeps the defaults.
	Strategies []string `yaml:"strategies" envconfig:"STRATEGIES"`
}

// LLMConfig configures the narrative generation capability
type LLMConfig struct {
	Provider    string        `yaml:"provider" envconfig:"PROVIDER" validate:"oneof=deepseek openai anthropic none"`
	Endpoint    string        `yaml:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
	Model       string        `yaml:"model" envconfig:"MODEL"`
	APIKey      string        `yaml:"api_key" envconfig:"API_KEY"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	Temperature float64       `yaml:"temperature" envconfig:"TEMPERATURE" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" envconfig:"MAX_TOKENS" validate:"gt=0"`
	// RequireAPIKey turns a missing key into a validation error instead of
	// a silent switch to the local fallback narrative.
	RequireAPIKey bool `yaml:"require_api_key" envconfig:"REQUIRE_API_KEY"`
}

// ConverterConfig configures the optional external spreadsheet converter
type ConverterConfig struct {
	Enabled bool          `yaml:"enabled" envconfig:"ENABLED"`
	Binary  string        `yaml:"binary" envconfig:"BINARY"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// TracingConfig toggles OpenTelemetry span export
type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
}

// Load loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file path. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Unset variables leave file and default values untouched
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.resolveSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolveSecrets fills the API key from the provider's conventional variable.
// Keys are never compiled in.
func (c *Config) resolveSecrets() {
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "anthropic":
		c.LLM.APIKey = os.Getenv(AnthropicAPIKeyEnv)
		if c.LLM.Model == DefaultLLMModel {
			c.LLM.Model = DefaultAnthropicModel
		}
	default:
		c.LLM.APIKey = os.Getenv(DeepSeekAPIKeyEnv)
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
}

// HasAPIKey reports whether a usable key is configured. Placeholder values
// shipped in sample configs count as missing.
func (c *LLMConfig) HasAPIKey() bool {
	key := strings.TrimSpace(c.APIKey)
	switch key {
	case "", "your-api-key-here", "sk-your-api-key-here":
		return false
	}
	return true
}

// Validate checks struct constraints and cross-field rules
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}

	if c.LLM.RequireAPIKey && c.LLM.Provider != "none" && !c.LLM.HasAPIKey() {
		return fmt.Errorf("llm api key is required for provider %s", c.LLM.Provider)
	}

	if c.Converter.Enabled && c.Converter.Binary == "" {
		c.Converter.Binary = "soffice"
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/stockdesk.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}

	// Check for config file in common locations
	locations := []string{
		"stockdesk.yaml",
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimitRPS:    20,
			RateLimitBurst:  10,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/stockdesk.log",
		},
		Paths: PathsConfig{
			LogsDir: "logs",
		},
		Analysis: AnalysisConfig{
			AggregateMarker: DefaultAggregateMarker,
			CleanThreshold:  DefaultCleanThreshold,
			TopN:            DefaultTopN,
			ContextLimit:    DefaultContextLimit,
			ReportFormats:   []string{"md"},
		},
		LLM: LLMConfig{
			Provider:    DefaultLLMProvider,
			Endpoint:    DefaultLLMEndpoint,
			Model:       DefaultLLMModel,
			Timeout:     DefaultLLMTimeout,
			Temperature: DefaultLLMTemperature,
			MaxTokens:   DefaultLLMMaxTokens,
		},
		Converter: ConverterConfig{
			Timeout: DefaultConverterTimeout,
		},
	}
}
