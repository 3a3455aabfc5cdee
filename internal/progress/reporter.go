package progress

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/snakada/ecbridge/internal/logging"
)

// Update is a JSON progress record for automation that wraps the CLI.
type Update struct {
	Timestamp    string `json:"timestamp"`
	Phase        string `json:"phase"` // "products", "customers", "orders"
	RecordsDone  int    `json:"records_done"`
	RecordsTotal int    `json:"records_total"`
	Created      int    `json:"created"`
	Linked       int    `json:"linked,omitempty"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
}

// Reporter emits machine-readable progress updates.
type Reporter interface {
	Report(update Update)
	ReportImmediate(update Update)
	Close()
}

// JSONReporter writes newline-delimited JSON updates to a writer, throttled
// so per-record reporting does not flood the consumer.
type JSONReporter struct {
	writer     io.Writer
	mu         sync.Mutex
	interval   time.Duration
	lastReport time.Time
	closed     bool
}

// NewJSONReporter creates a reporter. interval is the minimum gap between
// throttled updates; a nil writer defaults to stderr.
func NewJSONReporter(writer io.Writer, interval time.Duration) *JSONReporter {
	if writer == nil {
		writer = os.Stderr
	}
	return &JSONReporter{
		writer:   writer,
		interval: interval,
	}
}

// Report emits an update unless one was written within the throttle interval.
func (r *JSONReporter) Report(update Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	now := time.Now()
	if r.interval > 0 && now.Sub(r.lastReport) < r.interval {
		return
	}
	r.write(update, now)
}

// ReportImmediate bypasses throttling. Use for phase transitions and final
// counts.
func (r *JSONReporter) ReportImmediate(update Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.write(update, time.Now())
}

func (r *JSONReporter) write(update Update, now time.Time) {
	if update.Timestamp == "" {
		update.Timestamp = now.Format(time.RFC3339)
	}

	data, err := json.Marshal(update)
	if err != nil {
		logging.Warn("Failed to marshal progress update: %v", err)
		return
	}
	fmt.Fprintln(r.writer, string(data))
	r.lastReport = now
}

// Close stops further output.
func (r *JSONReporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// NopReporter discards all updates.
type NopReporter struct{}

func (NopReporter) Report(Update)          {}
func (NopReporter) ReportImmediate(Update) {}
func (NopReporter) Close()                 {}
