// Package config loads stockdesk configuration.
//
// # Configuration Sources
//
// Values are resolved in the following order, later sources overriding
// earlier ones:
//
//  1. Default values (Default)
//  2. An optional YAML file: $STOCKDESK_CONFIG, stockdesk.yaml, config.yaml
//     or configs/config.yaml
//  3. Environment variables prefixed with STOCKDESK_
//
// # Environment Variables
//
//	STOCKDESK_LOGGING_LEVEL=debug
//	STOCKDESK_PATHS_OUTPUT_DIR=/tmp/reports
//	STOCKDESK_ANALYSIS_TOP_N=20
//	STOCKDESK_LLM_PROVIDER=anthropic
//	STOCKDESK_CONVERTER_ENABLED=true
//
// API keys are never compiled in. When STOCKDESK_LLM_API_KEY is unset the
// provider's conventional variable is read (DEEPSEEK_API_KEY or
// ANTHROPIC_API_KEY). A missing key makes the pipeline use the local
// fallback narrative unless llm.require_api_key is set.
//
// # Path Management
//
// GetPaths resolves the log directory next to the executable and the report
// directory via ResolveOutputDir. cmd/web places relative log files there.
package config
