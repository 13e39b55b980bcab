package exporter

import (
	"fmt"
	"strings"
	"time"
)

// DisplayTimeLayout is used for timestamps shown inside reports
const DisplayTimeLayout = "2006-01-02 15:04:05"

// formatFloat formats a float64 value with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatPct formats a percentage change such as 50 as "50.00%"
func formatPct(f float64) string {
	return formatFloat(f) + "%"
}

// formatInt formats an int value
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// cell makes text safe inside a Markdown table cell
func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
