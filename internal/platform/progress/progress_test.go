package progress

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNop(t *testing.T) {
	var ind Indicator = Nop{}

	stop := ind.Spin("label")
	stop()

	tr := ind.Track("file", 10)
	tr.SetValue(5)
	tr.SetTotal(20)
	tr.Done()
	ind.Close()
}

func TestConsoleSpinStopIsIdempotent(t *testing.T) {
	c := NewConsole(io.Discard)
	defer c.Close()

	stop := c.Spin("Preparing data")
	stop()
	stop()

	tr := c.Track("upload", 0)
	tr.SetTotal(100)
	tr.SetValue(100)
	tr.Done()

	c.mu.Lock()
	started := c.started
	c.mu.Unlock()

	assert.True(t, started)
}

func TestConsoleCloseWithoutTrackers(t *testing.T) {
	c := NewConsole(io.Discard)
	c.Close()

	assert.False(t, c.started)
}
