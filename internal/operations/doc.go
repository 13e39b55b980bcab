// Package operations runs an analysis from input files to a written report.
//
// An Orchestrator moves each run through a fixed sequence of states:
//
//	idle → scanning → ingesting → cleaning → computing_returns → narrating → composing → done
//
// Validation problems and report write failures end the run in failed;
// context cancellation ends it in cancelled. Unreadable files are skipped and
// a failed language model call falls back to a locally generated narrative,
// so neither ends the run. When no returns can be computed the narrating
// state is skipped and a degraded report is written instead.
//
// Progress and log lines are delivered to a Sink as Events. The package
// ships sinks for channels, slog loggers and fan-out.
package operations
