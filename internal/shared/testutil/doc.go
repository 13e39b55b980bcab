// Package testutil holds helpers shared by tests across packages: a slog
// handler that captures records, and builders for spreadsheet fixtures.
package testutil
