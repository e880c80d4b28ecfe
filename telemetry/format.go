package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
	slowStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FFAF00", Dark: "#FFAF00"})
)

// slowThreshold is the duration above which an operation is highlighted.
const slowThreshold = 100 * time.Millisecond

// formatTimingTree outputs one timing tree in a hierarchical format.
// Example output:
//
//	extract statement.csv: 125ms
//	├─ parse: 85ms
//	├─ dedup: 5ms
//	└─ render: 35ms
func formatTimingTree(w io.Writer, root *timerNode) {
	duration := root.end.Sub(root.start)
	_, _ = fmt.Fprintf(w, "%s: %s\n", root.name, formatDuration(duration))

	for i, child := range root.children {
		isLast := i == len(root.children)-1
		formatNode(w, child, "", isLast)
	}
}

// formatNode recursively formats a node and its children.
func formatNode(w io.Writer, node *timerNode, prefix string, isLast bool) {
	duration := node.end.Sub(node.start)

	var branch, extension string
	if isLast {
		branch = "└─ "
		extension = "   "
	} else {
		branch = "├─ "
		extension = "│  "
	}

	timing := formatDuration(duration)
	if duration >= slowThreshold {
		timing = slowStyle.Render(timing)
	} else {
		timing = dimStyle.Render(timing)
	}
	_, _ = fmt.Fprintf(w, "%s%s: %s\n", dimStyle.Render(prefix+branch), node.name, timing)

	childPrefix := prefix + extension
	for i, child := range node.children {
		childIsLast := i == len(node.children)-1
		formatNode(w, child, childPrefix, childIsLast)
	}
}

// formatDuration shows milliseconds below one second, seconds above.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		ms := float64(d) / float64(time.Millisecond)
		return fmt.Sprintf("%.0fms", ms)
	}
	s := float64(d) / float64(time.Second)
	return fmt.Sprintf("%.2fs", s)
}
