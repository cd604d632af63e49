// Package listener defines the progress-reporting capability handed to the
// packaging and sync services. Commands own the concrete sink; services only
// ever see the single-method interface.
package listener

import (
	"fmt"
	"io"
)

// Verbosity grades how chatty a message is. A sink drops anything above its
// own threshold.
type Verbosity int

const (
	Quiet Verbosity = iota
	Normal
	Verbose
	VeryVerbose
	Debug
)

// Listener receives human-readable progress and error text from the services.
type Listener interface {
	Message(text string, level Verbosity)
}

// Null discards every message. It is the default when callers pass nil.
var Null Listener = nullListener{}

type nullListener struct{}

func (nullListener) Message(string, Verbosity) {}

// Writer is a threshold-filtered sink writing one line per message.
type Writer struct {
	Out   io.Writer
	Level Verbosity
}

// NewWriter returns a Writer emitting messages at or below the given level.
func NewWriter(out io.Writer, level Verbosity) *Writer {
	return &Writer{Out: out, Level: level}
}

func (w *Writer) Message(text string, level Verbosity) {
	if level > w.Level {
		return
	}
	fmt.Fprintln(w.Out, text)
}

// Recorder keeps every message it receives. Used by tests to assert on
// reported progress.
type Recorder struct {
	Messages []string
}

func (r *Recorder) Message(text string, level Verbosity) {
	r.Messages = append(r.Messages, text)
}

// OrNull normalizes a possibly-nil listener.
func OrNull(l Listener) Listener {
	if l == nil {
		return Null
	}
	return l
}
