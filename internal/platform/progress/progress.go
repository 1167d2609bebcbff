// Package progress renders transient console feedback while a run waits on the
// network. It never writes to the log stream and carries no run state.
package progress

import (
	"io"
	"sync"
	"time"

	pw "github.com/jedib0t/go-pretty/v6/progress"
)

const updateFrequency = 100 * time.Millisecond

// Indicator starts spinners and byte trackers.
type Indicator interface {
	// Spin shows an indeterminate spinner until the returned func is called.
	Spin(label string) (stop func())
	// Track shows a byte counter for a transfer of total bytes (0 if unknown).
	Track(label string, total int64) Tracker
	// Close stops rendering.
	Close()
}

// Tracker follows one transfer.
type Tracker interface {
	SetValue(done int64)
	SetTotal(total int64)
	Done()
}

// Console renders with go-pretty.
type Console struct {
	mu      sync.Mutex
	w       pw.Writer
	started bool
}

var _ Indicator = (*Console)(nil)

// NewConsole creates an indicator writing to out, usually stdout.
func NewConsole(out io.Writer) *Console {
	w := pw.NewWriter()
	w.SetOutputWriter(out)
	w.SetAutoStop(false)
	w.SetUpdateFrequency(updateFrequency)
	w.SetTrackerPosition(pw.PositionRight)
	w.SetStyle(pw.StyleDefault)
	w.Style().Visibility.ETA = false
	w.Style().Visibility.Time = true
	w.Style().Visibility.Value = true

	return &Console{w: w}
}

// Spin implements Indicator.
func (c *Console) Spin(label string) func() {
	t := &pw.Tracker{Message: label}
	c.append(t)

	var once sync.Once

	return func() {
		once.Do(t.MarkAsDone)
	}
}

// Track implements Indicator.
func (c *Console) Track(label string, total int64) Tracker {
	t := &pw.Tracker{Message: label, Total: total, Units: pw.UnitsBytes}
	c.append(t)

	return &tracker{t: t}
}

// Close implements Indicator.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		c.w.Stop()
		c.started = false
	}
}

func (c *Console) append(t *pw.Tracker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.AppendTracker(t)

	if !c.started {
		c.started = true
		go c.w.Render()
	}
}

type tracker struct {
	t *pw.Tracker
}

func (t *tracker) SetValue(done int64) { t.t.SetValue(done) }

func (t *tracker) SetTotal(total int64) { t.t.UpdateTotal(total) }

func (t *tracker) Done() { t.t.MarkAsDone() }

// Nop is an Indicator that renders nothing.
type Nop struct{}

var _ Indicator = Nop{}

// Spin implements Indicator.
func (Nop) Spin(string) func() { return func() {} }

// Track implements Indicator.
func (Nop) Track(string, int64) Tracker { return nopTracker{} }

// Close implements Indicator.
func (Nop) Close() {}

type nopTracker struct{}

func (nopTracker) SetValue(int64) {}

func (nopTracker) SetTotal(int64) {}

func (nopTracker) Done() {}
