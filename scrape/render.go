package scrape

import (
	"fmt"
	"strings"

	"github.com/nuclearfurnace/tic/meters"
)

// Render formats a Meters snapshot for the given request path: "/vars"
// and "/metrics" get one "{key} {value}\n" line per stat, integer stats
// first; any other path gets a single-line JSON object with the
// trailing comma stripped, "{}" when empty. This is the only place
// Meters is ever read to produce output, always called from the
// Receiver's own goroutine.
func Render(m *meters.Meters, path string) string {
	switch path {
	case "/vars", "/metrics":
		return renderPlain(m)
	default:
		return renderJSON(m)
	}
}

func renderPlain(m *meters.Meters) string {
	var b strings.Builder
	for stat, value := range m.Data {
		fmt.Fprintf(&b, "%s %d\n", stat, value)
	}
	for stat, value := range m.DataFloat {
		fmt.Fprintf(&b, "%s %v\n", stat, value)
	}
	return b.String()
}

func renderJSON(m *meters.Meters) string {
	var b strings.Builder
	b.WriteByte('{')
	wrote := false
	for stat, value := range m.Data {
		fmt.Fprintf(&b, "\"%s\":%d,", stat, value)
		wrote = true
	}
	for stat, value := range m.DataFloat {
		fmt.Fprintf(&b, "\"%s\":%v,", stat, value)
		wrote = true
	}
	out := b.String()
	if wrote {
		out = out[:len(out)-1] // strip trailing comma
	}
	return out + "}"
}
