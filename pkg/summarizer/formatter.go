package summarizer

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Formatter defines the interface for formatting a Summary.
type Formatter interface {
	// Format converts a Summary to a formatted string.
	Format(summary *Summary) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(summary *Summary) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(summary *Summary) string {
	return f(summary)
}

// JSONFormatter renders a Summary as indented JSON.
type JSONFormatter struct{}

// Format implements Formatter. Summary only holds plain values, so encoding
// cannot fail.
func (JSONFormatter) Format(summary *Summary) string {
	data, _ := json.MarshalIndent(summary, "", "  ")
	return string(data) + "\n"
}

// ForPath picks a formatter from the file extension: JSON for .json,
// Markdown otherwise.
func ForPath(path string, opts ...MarkdownOption) Formatter {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSONFormatter{}
	}
	return NewMarkdownFormatter(opts...)
}
