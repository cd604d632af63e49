// Test Type: Unit Test
// Description: Tests for the progress listener sinks

package listener_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/relpack/pkg/listener"
)

func TestWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	w := listener.NewWriter(&buf, listener.Normal)

	w.Message("always", listener.Quiet)
	w.Message("normal", listener.Normal)
	w.Message("hidden", listener.Verbose)

	assert.Equal(t, "always\nnormal\n", buf.String())
}

func TestRecorderKeepsMessages(t *testing.T) {
	r := &listener.Recorder{}
	r.Message("one", listener.Normal)
	r.Message("two", listener.Debug)
	assert.Equal(t, []string{"one", "two"}, r.Messages)
}

func TestOrNull(t *testing.T) {
	assert.Equal(t, listener.Null, listener.OrNull(nil))

	r := &listener.Recorder{}
	assert.Equal(t, listener.Listener(r), listener.OrNull(r))

	// Null silently swallows everything.
	listener.Null.Message("dropped", listener.Quiet)
}
