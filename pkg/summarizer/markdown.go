package summarizer

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders a Summary as Markdown tables.
type MarkdownFormatter struct {
	translate func(string) string
	version   string
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator sets the function used to translate labels.
func WithTranslator(translate func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.translate = translate
	}
}

// WithVersion adds the tool version to the footer.
func WithVersion(version string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = version
	}
}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{
		translate: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(s *Summary) string {
	t := f.translate
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", t("Run Summary"))
	fmt.Fprintf(&b, "- %s: %s\n", t("Generated At"), s.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	if s.RunID != "" {
		fmt.Fprintf(&b, "- %s: `%s`\n", t("Run ID"), s.RunID)
	}

	// Input
	f.section(&b, "Input")
	if s.Input.Type != "" {
		f.row(&b, "Source", fmt.Sprintf("%s (%s)", s.Input.Type, s.Input.Path))
	}
	f.row(&b, "Size", fmt.Sprintf("%dx%d", s.Input.Width, s.Input.Height))
	if s.Input.Codec != "" {
		f.row(&b, "Codec", s.Input.Codec)
	}
	if s.Input.FPS > 0 {
		f.row(&b, "Source FPS", fmt.Sprintf("%.2f", s.Input.FPS))
	}

	// Performance
	f.section(&b, "Performance")
	f.row(&b, "Final FPS", fmt.Sprintf("%d", s.Performance.FinalFPS))
	f.row(&b, "Average FPS", fmt.Sprintf("%.1f", s.Performance.AvgFPS))
	f.row(&b, "Average Processing Time", fmt.Sprintf("%.1f ms", s.Performance.AvgProcessingMs))
	f.row(&b, "Max Processing Time", fmt.Sprintf("%d ms", s.Performance.MaxProcessingMs))

	// Frames
	f.section(&b, "Frames")
	f.row(&b, "Output Frames", fmt.Sprintf("%d", s.Run.Frames))
	f.row(&b, "Composited", fmt.Sprintf("%d (%s)", s.Run.Composited, percent(s.Run.Composited, s.Run.Frames)))
	f.row(&b, "Passthrough", fmt.Sprintf("%d", s.Run.Passthrough))
	if s.Run.Mismatched > 0 {
		f.row(&b, "Size Mismatches", fmt.Sprintf("%d", s.Run.Mismatched))
	}
	f.row(&b, "Dropped Ticks", fmt.Sprintf("%d", s.Run.DroppedTicks))
	f.row(&b, "Failed Ticks", fmt.Sprintf("%d", s.Run.FailedTicks))
	if s.Run.StopReason != "" {
		f.row(&b, "Stop Reason", t(s.Run.StopReason))
	}
	f.row(&b, "Duration", fmt.Sprintf("%.2f s", float64(s.Run.DurationMs)/1000))

	// Segmentation
	f.section(&b, "Segmentation")
	if s.Segmentation.Segmenter != "" {
		f.row(&b, "Segmenter", s.Segmentation.Segmenter)
	}
	if s.Segmentation.Staleness != "" {
		f.row(&b, "Staleness Policy", s.Segmentation.Staleness)
	}
	f.row(&b, "Requests", fmt.Sprintf("%d", s.Segmentation.Submitted))
	f.row(&b, "Accepted", fmt.Sprintf("%d", s.Segmentation.Accepted))
	f.row(&b, "Rejected as Stale", fmt.Sprintf("%d", s.Segmentation.Rejected))
	f.row(&b, "Failed", fmt.Sprintf("%d", s.Segmentation.Failed))
	f.row(&b, "Average Person Coverage", fmt.Sprintf("%.1f%%", s.Segmentation.AvgCoverage*100))

	// Settings
	f.section(&b, "Settings")
	if s.Settings.Effect != "" {
		f.row(&b, "Effect", s.Settings.Effect)
	}
	if s.Settings.Grayscale != "" {
		f.row(&b, "Grayscale Method", s.Settings.Grayscale)
	}
	f.row(&b, "Confidence Threshold", fmt.Sprintf("%d", s.Settings.Threshold))
	if s.Settings.TargetFPS > 0 {
		f.row(&b, "Target FPS", fmt.Sprintf("%g", s.Settings.TargetFPS))
	}
	switch {
	case s.Settings.MaskTimeoutMs < 0:
		f.row(&b, "Mask Timeout", t("Wait for every result"))
	case s.Settings.MaskTimeoutMs > 0:
		f.row(&b, "Mask Timeout", fmt.Sprintf("%d ms", s.Settings.MaskTimeoutMs))
	case s.Settings.TargetFPS > 0:
		f.row(&b, "Mask Timeout", t("Use the latest mask without waiting"))
	}

	// Output
	if s.Output.Type != "" {
		f.section(&b, "Output")
		f.row(&b, "Type", s.Output.Type)
		if s.Output.Path != "" {
			f.row(&b, "Path", s.Output.Path)
		}
		if s.Output.FileSize > 0 {
			f.row(&b, "File Size", formatBytes(s.Output.FileSize))
		}
	}

	if f.version != "" {
		fmt.Fprintf(&b, "\n---\n%s %s\n", t("Generated by maskfx"), f.version)
	}

	return b.String()
}

func (f *MarkdownFormatter) section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n## %s\n\n", f.translate(title))
	fmt.Fprintf(b, "| %s | %s |\n", f.translate("Item"), f.translate("Value"))
	b.WriteString("|---|---|\n")
}

func (f *MarkdownFormatter) row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", f.translate(label), value)
}

func percent(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

// formatBytes formats bytes into a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

var _ Formatter = (*MarkdownFormatter)(nil)
