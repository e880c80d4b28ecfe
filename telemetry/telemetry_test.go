package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
)

func TestTimingCollectorReport(t *testing.T) {
	c := NewTimingCollector()

	root := c.Start("extract statement.csv")
	parse := root.Child("parse")
	parse.End()
	render := root.Child("render")
	render.End()
	root.End()

	var buf bytes.Buffer
	c.Report(&buf)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "extract statement.csv: "))
	assert.Contains(t, out, "parse")
	assert.Contains(t, out, "render")
	assert.Contains(t, out, "├─")
	assert.Contains(t, out, "└─")
}

func TestTimingCollectorMultipleRoots(t *testing.T) {
	c := NewTimingCollector()

	for _, name := range []string{"extract a.csv", "extract b.csv"} {
		timer := c.Start(name)
		timer.End()
	}

	var buf bytes.Buffer
	c.Report(&buf)

	assert.Contains(t, buf.String(), "extract a.csv")
	assert.Contains(t, buf.String(), "extract b.csv")
}

func TestFromContext(t *testing.T) {
	// Without a collector every call is a usable no-op.
	c := FromContext(context.Background())
	timer := c.Start("noop")
	timer.Child("nested").End()
	timer.End()

	var buf bytes.Buffer
	c.Report(&buf)
	assert.Equal(t, "", buf.String())

	tc := NewTimingCollector()
	ctx := WithCollector(context.Background(), tc)
	assert.Equal[Collector](t, tc, FromContext(ctx))
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"85ms", "85ms"},
		{"999ms", "999ms"},
		{"1s", "1.00s"},
		{"2500ms", "2.50s"},
	}
	for _, tt := range tests {
		d, err := time.ParseDuration(tt.input)
		assert.NoError(t, err)
		assert.Equal(t, tt.want, formatDuration(d))
	}
}
