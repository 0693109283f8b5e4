package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// TableWriter wraps tabwriter for formatted output
type TableWriter struct {
	writer *tabwriter.Writer
}

// NewTableWriter creates a new table writer
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

// WriteHeader writes table headers
func (t *TableWriter) WriteHeader(headers ...string) {
	t.WriteRow(headers...)
}

// WriteRow writes a table row
func (t *TableWriter) WriteRow(values ...string) {
	fmt.Fprintln(t.writer, strings.Join(values, "\t"))
}

// Flush writes buffered output
func (t *TableWriter) Flush() error {
	return t.writer.Flush()
}

// PrintSuccess prints a success message with checkmark
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✓ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "✗ %s\n", message)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠ %s\n", message)
}

// FormatExpiry renders an epoch-millisecond expiry for humans
func FormatExpiry(expiresAt *int64, now time.Time) string {
	if expiresAt == nil {
		return "never"
	}
	t := time.UnixMilli(*expiresAt)
	if !t.After(now) {
		return "expired " + t.Local().Format(time.RFC3339)
	}
	return t.Local().Format(time.RFC3339)
}

// Dash returns "-" for empty values
func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
