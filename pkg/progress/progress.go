// Package progress renders the daemon's Control/Status stream to the
// user. It is named in spec.md §6 as the out-of-scope "console/JSON
// progress rendering" collaborator; this keeps it thin (one interface,
// two small implementations) rather than building a full TUI, matching
// the "named for completeness" instruction.
package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"

	"github.com/imgbuild/imgbuild/pkg/wire"
)

// Handler receives one batch of status events per Control/Status
// message. It is the out-of-scope collaborator pkg/build (C9) dispatches
// to; it never errors back into the build.
type Handler interface {
	Handle(*wire.StatusResponse)
}

// Console renders vertex starts/completions and transfer sizes as plain
// colored lines, the way the teacher's pkg/commands formats container
// status with fatih/color.
type Console struct {
	Out io.Writer

	mu      sync.Mutex
	started map[string]bool
}

// NewConsole builds a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{Out: out, started: map[string]bool{}}
}

// Handle prints one line per newly-started or newly-completed vertex,
// and one line per logged chunk of vertex stdout/stderr.
func (c *Console) Handle(resp *wire.StatusResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range resp.Vertexes {
		switch {
		case v.Completed != 0:
			status := color.New(color.FgGreen).Sprint("done")
			if v.Error != "" {
				status = color.New(color.FgRed).Sprint("error")
			} else if v.Cached {
				status = color.New(color.FgCyan).Sprint("cached")
			}
			fmt.Fprintf(c.Out, "[%s] %s\n", status, v.Name)
			if v.Error != "" {
				fmt.Fprintf(c.Out, "  %s\n", color.New(color.FgRed).Sprint(v.Error))
			}
		case !c.started[v.Digest]:
			c.started[v.Digest] = true
			fmt.Fprintf(c.Out, "[%s] %s\n", color.New(color.FgYellow).Sprint("start"), v.Name)
		}
	}

	for _, s := range resp.Statuses {
		if s.Total > 0 {
			fmt.Fprintf(c.Out, "  %s %s/%s\n", s.Name, units.BytesSize(float64(s.Current)), units.BytesSize(float64(s.Total)))
		}
	}

	for _, l := range resp.Logs {
		c.Out.Write(l.Msg)
	}
}

// jsonEvent is one line of --json output: a flattened, timestamped view
// of a StatusResponse batch, one object per vertex/status/log entry.
type jsonEvent struct {
	Time      string `json:"time"`
	Kind      string `json:"kind"`
	Vertex    string `json:"vertex,omitempty"`
	Name      string `json:"name,omitempty"`
	Error     string `json:"error,omitempty"`
	Cached    bool   `json:"cached,omitempty"`
	Current   int64  `json:"current,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Message   string `json:"message,omitempty"`
}

// JSON renders each event as a newline-delimited JSON object, for
// machine consumption (the CLI's --json flag).
type JSON struct {
	Out io.Writer
	Now func() time.Time
}

// NewJSON builds a JSON handler writing to out.
func NewJSON(out io.Writer) *JSON {
	return &JSON{Out: out, Now: time.Now}
}

func (j *JSON) emit(ev jsonEvent) {
	ev.Time = j.Now().UTC().Format(time.RFC3339Nano)
	enc := json.NewEncoder(j.Out)
	_ = enc.Encode(ev)
}

// Handle writes one JSON object per vertex/status/log entry in resp.
func (j *JSON) Handle(resp *wire.StatusResponse) {
	for _, v := range resp.Vertexes {
		j.emit(jsonEvent{Kind: "vertex", Vertex: v.Digest, Name: v.Name, Error: v.Error, Cached: v.Cached})
	}
	for _, s := range resp.Statuses {
		j.emit(jsonEvent{Kind: "status", Vertex: s.Vertex, Name: s.Name, Current: s.Current, Total: s.Total})
	}
	for _, l := range resp.Logs {
		j.emit(jsonEvent{Kind: "log", Vertex: l.Vertex, Message: string(l.Msg)})
	}
}

var (
	_ Handler = (*Console)(nil)
	_ Handler = (*JSON)(nil)
)
