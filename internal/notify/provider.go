package notify

import "time"

// EntityCount is one entity's outcome counters for notification text.
type EntityCount struct {
	Entity  string
	Created int
	Linked  int
	Skipped int
	Failed  int
}

// Provider defines the notification contract for migration events.
// This interface allows for different notification backends (Slack, email, etc.)
// and enables easier testing through mock implementations.
type Provider interface {
	// MigrationStarted sends notification when a migration run starts.
	MigrationStarted(runID, sourceShop, targetShop string, dryRun bool) error

	// MigrationCompleted sends notification when a run finishes without
	// record failures.
	MigrationCompleted(runID string, startTime time.Time, duration time.Duration, counts []EntityCount) error

	// MigrationCompletedWithErrors sends notification when a run finishes
	// but some records failed.
	MigrationCompletedWithErrors(runID string, startTime time.Time, duration time.Duration, counts []EntityCount) error

	// MigrationFailed sends notification when a run aborts.
	MigrationFailed(runID string, err error, duration time.Duration) error
}

// Ensure Notifier implements Provider
var _ Provider = (*Notifier)(nil)
