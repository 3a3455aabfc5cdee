package progress

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/snakada/ecbridge/internal/logging"
)

// Tracker renders a terminal progress bar for one entity pass.
type Tracker struct {
	bar       *progressbar.ProgressBar
	entity    string
	current   atomic.Int64
	startTime time.Time
}

// New creates a tracker for migrating total records of the named entity.
func New(entity string, total int) *Tracker {
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(fmt.Sprintf("Migrating %s", entity)),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &Tracker{
		bar:       bar,
		entity:    entity,
		startTime: time.Now(),
	}
}

// Add advances the bar by one processed record.
func (t *Tracker) Add(n int) {
	t.current.Add(int64(n))
	if t.bar != nil {
		t.bar.Add(n)
	}
}

// Current returns the number of records processed so far.
func (t *Tracker) Current() int64 {
	return t.current.Load()
}

// Finish completes the bar and logs the pass throughput.
func (t *Tracker) Finish() {
	if t.bar != nil {
		t.bar.Finish()
	}

	elapsed := time.Since(t.startTime)
	perSec := float64(t.current.Load()) / elapsed.Seconds()

	fmt.Println()
	logging.Info("%s pass complete: %d records in %s (%.1f records/sec)",
		t.entity, t.current.Load(), elapsed.Round(time.Second), perSec)
}
