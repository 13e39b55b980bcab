// Package app wires configuration, logging, telemetry, the analysis pipeline
// and the HTTP service together, and manages their lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, YAML file and environment
//	2. Initialize logging and OpenTelemetry
//	3. Build the pipeline: ingestor, classifier, narrator, report exporter
//	4. Start the WebSocket hub and the analysis service
//	5. Set up handlers and middleware
//	6. Start the HTTP server; stop everything on signal
//
// Command-line tools that only need the pipeline use BuildPipeline directly.
package app
