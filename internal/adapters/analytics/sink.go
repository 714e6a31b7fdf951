// Package analytics provides fire-and-forget event sinks. Emission
// never blocks a write path and never reports failure to callers.
package analytics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ldeneuve/felicare/internal/ports"
)

const defaultBufferSize = 256

// WriterSink serializes events as single diagnostic lines to a writer
// (stderr by default) through a buffered channel. When the buffer is
// full the event is dropped; losing an analytics event must never
// affect a treatment write.
type WriterSink struct {
	events chan event
	done   chan struct{}
	once   sync.Once
}

type event struct {
	name   string
	fields map[string]any
	at     time.Time
}

var _ ports.AnalyticsSink = (*WriterSink)(nil)

func NewWriterSink(w io.Writer) *WriterSink {
	sink := &WriterSink{
		events: make(chan event, defaultBufferSize),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sink.done)
		for e := range sink.events {
			fmt.Fprintln(w, formatEvent(e))
		}
	}()

	return sink
}

func (s *WriterSink) Emit(name string, fields map[string]any) {
	select {
	case s.events <- event{name: name, fields: fields, at: time.Now()}:
	default:
	}
}

// Close drains buffered events and stops the writer goroutine.
func (s *WriterSink) Close() {
	s.once.Do(func() {
		close(s.events)
		<-s.done
	})
}

func formatEvent(e event) string {
	var b strings.Builder
	b.WriteString(e.at.Format(time.RFC3339))
	b.WriteString(" event=")
	b.WriteString(e.name)

	keys := make([]string, 0, len(e.fields))
	for key := range e.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, e.fields[key])
	}

	return b.String()
}

// NopSink discards every event.
type NopSink struct{}

var _ ports.AnalyticsSink = NopSink{}

func (NopSink) Emit(string, map[string]any) {}
