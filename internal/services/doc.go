// Package services sits between the HTTP layer and the analysis pipeline.
//
// AnalysisService starts runs in the background, allows only one at a time,
// records their progress and log lines, and forwards both to WebSocket
// clients. HealthService reports whether reports can be written and whether
// a language model is configured.
package services
