package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mekanics/beanport/importer"
)

var errContextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})

// ErrorRenderer renders extraction errors with terminal styling and, for
// format errors carrying a line number, the offending source line.
type ErrorRenderer struct {
	source []byte
}

// NewErrorRenderer creates a renderer with source content for context.
// Source may be nil; errors are then rendered without the excerpt.
func NewErrorRenderer(source []byte) *ErrorRenderer {
	return &ErrorRenderer{source: source}
}

// Render formats a single error with styling and context.
func (r *ErrorRenderer) Render(err error) string {
	var formatErr *importer.FormatError
	if errors.As(err, &formatErr) && formatErr.Line > 0 && r.source != nil {
		return r.renderWithSourceContext(formatErr)
	}

	var unmapped *importer.UnmappedInstrumentError
	if errors.As(err, &unmapped) {
		return r.renderUnmapped(unmapped)
	}

	return errorStyle.Render(err.Error())
}

func (r *ErrorRenderer) renderWithSourceContext(e *importer.FormatError) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(e.Error()))
	buf.WriteString("\n\n")

	lines := strings.Split(string(r.source), "\n")
	start := e.Line - 3
	if start < 0 {
		start = 0
	}
	end := e.Line
	if end >= len(lines) {
		end = len(lines) - 1
	}

	for i := start; i <= end && i < len(lines); i++ {
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(lines[i]))
		buf.WriteByte('\n')
	}

	return buf.String()
}

func (r *ErrorRenderer) renderUnmapped(e *importer.UnmappedInstrumentError) string {
	var buf strings.Builder

	buf.WriteString(errorStyle.Render(e.Error()))
	if len(e.Known) > 0 {
		buf.WriteString("\n\n")
		buf.WriteString("   ")
		buf.WriteString(errContextStyle.Render(fmt.Sprintf("known instruments: %s", strings.Join(e.Known, ", "))))
	}
	return buf.String()
}
