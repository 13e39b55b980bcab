// Package narrative turns run statistics into analysis text.
//
// A Narrator sends a bounded, whitelisted request to a remote chat model
// (an OpenAI-compatible endpoint such as DeepSeek, or Anthropic). Fallback
// builds the same section locally and is used whenever no model is
// configured or the call fails.
package narrative
