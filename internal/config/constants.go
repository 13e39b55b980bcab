package config

import "time"

// Application constants
const (
	AppName    = "stockdesk"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable read by Load.
	EnvPrefix = "STOCKDESK"

	// Report naming
	ReportFilePrefix  = "股票分析报告"
	ReportTimeLayout  = "20060102_150405"
	RankingFilePrefix = "ranking"

	// Analysis defaults
	DefaultAggregateMarker = "板块"
	DefaultCleanThreshold  = 0.5
	DefaultTopN            = 10
	DefaultContextLimit    = 6000

	// Narrative defaults
	DefaultLLMProvider    = "deepseek"
	DefaultLLMEndpoint    = "https://api.deepseek.com/v1/chat/completions"
	DefaultLLMModel       = "deepseek-chat"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultLLMTimeout     = 60 * time.Second
	DefaultLLMTemperature = 0.7
	DefaultLLMMaxTokens   = 4000

	// External converter
	DefaultConverterTimeout = 2 * time.Minute

	// Fallback API key variables, read when the namespaced key is unset.
	DeepSeekAPIKeyEnv  = "DEEPSEEK_API_KEY"
	AnthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
)
