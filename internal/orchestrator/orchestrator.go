package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/snakada/ecbridge/internal/apiclient"
	"github.com/snakada/ecbridge/internal/checkpoint"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/exitcodes"
	"github.com/snakada/ecbridge/internal/idmap"
	"github.com/snakada/ecbridge/internal/logging"
	"github.com/snakada/ecbridge/internal/notify"
	"github.com/snakada/ecbridge/internal/progress"
	"github.com/snakada/ecbridge/internal/source"
	"github.com/snakada/ecbridge/internal/target"
)

// Entity names, in migration order. Orders depend on the ID mappings the
// product and customer passes produce, so the order is fixed.
const (
	EntityProducts  = "products"
	EntityCustomers = "customers"
	EntityOrders    = "orders"
)

// AllEntities returns the entities in dependency order.
func AllEntities() []string {
	return []string{EntityProducts, EntityCustomers, EntityOrders}
}

// Summary holds one entity pass's outcome counters.
type Summary struct {
	Entity  string
	Created int // records created at the destination
	Linked  int // records matched to an existing destination record
	Skipped int // already migrated, filtered out, or unusable
	Failed  int // records that errored and were passed over
}

func (s Summary) String() string {
	parts := []string{fmt.Sprintf("%d created", s.Created)}
	if s.Linked > 0 {
		parts = append(parts, fmt.Sprintf("%d linked", s.Linked))
	}
	parts = append(parts,
		fmt.Sprintf("%d skipped", s.Skipped),
		fmt.Sprintf("%d failed", s.Failed))
	return fmt.Sprintf("%s: %s", s.Entity, strings.Join(parts, ", "))
}

type migrator interface {
	Run(ctx context.Context) (Summary, error)
}

// Coordinator wires the migration passes together: it owns the shared ID map,
// the run ledger, the platform clients, and notifications.
type Coordinator struct {
	config       *config.Config
	ids          *idmap.Store
	src          *source.Client
	dst          *target.Client
	ledger       *checkpoint.Ledger
	notifier     notify.Provider
	reporter     progress.Reporter
	progressFile *os.File
}

// New creates a coordinator from configuration.
func New(cfg *config.Config) (*Coordinator, error) {
	ledger, err := checkpoint.New(cfg.Migration.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening run ledger: %w", err)
	}

	c := &Coordinator{
		config:   cfg,
		ids:      idmap.Open(cfg.IDMapFile()),
		src:      source.NewClient(cfg),
		dst:      target.NewClient(cfg),
		ledger:   ledger,
		notifier: notify.New(&cfg.Slack),
		reporter: progress.NopReporter{},
	}

	if cfg.Migration.ProgressFile != "" {
		f, err := os.OpenFile(cfg.Migration.ProgressFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			ledger.Close()
			return nil, fmt.Errorf("opening progress file: %w", err)
		}
		c.progressFile = f
		c.reporter = progress.NewJSONReporter(f, 5*time.Second)
	}

	return c, nil
}

// Close releases the coordinator's resources.
func (c *Coordinator) Close() {
	c.reporter.Close()
	if c.progressFile != nil {
		c.progressFile.Close()
	}
	c.ledger.Close()
}

// Extract fetches the configured sales date range from the source platform
// and writes it to the data directory for the order pass.
func (c *Coordinator) Extract(ctx context.Context) error {
	logging.Info("Extracting sales from %s", c.config.Source.BaseURL)

	sales, err := c.src.FetchAllSales(ctx, c.config.Source.StartDate, c.config.Source.EndDate)
	if err != nil {
		return fmt.Errorf("fetching sales: %w", err)
	}

	path := c.config.SalesFile()
	if err := source.WriteSales(path, sales); err != nil {
		return fmt.Errorf("writing sales: %w", err)
	}
	logging.Info("Extracted %d sales to %s", len(sales), path)
	return nil
}

// Run executes the named entity passes in order, or all of them when none are
// given. A record failure is counted and logged but does not stop the pass;
// auth and state errors abort the run.
func (c *Coordinator) Run(ctx context.Context, entities ...string) error {
	if len(entities) == 0 {
		entities = AllEntities()
	}

	runID := uuid.New().String()[:8]
	startTime := time.Now()
	if c.config.Migration.DryRun {
		logging.Info("Starting migration run %s (dry run)", runID)
	} else {
		logging.Info("Starting migration run %s", runID)
	}

	if err := c.ledger.CreateRun(runID, c.config); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	c.notifier.MigrationStarted(runID, c.config.Source.BaseURL, c.config.Destination.BaseURL, c.config.Migration.DryRun)

	var counts []notify.EntityCount
	failedRecords := 0
	for _, entity := range entities {
		m, err := c.migrator(entity)
		if err != nil {
			c.ledger.CompleteRun(runID, "failed")
			return err
		}

		sum, runErr := m.Run(ctx)
		if lerr := c.ledger.RecordEntity(runID, checkpoint.EntityResult{
			Entity:  sum.Entity,
			Created: sum.Created,
			Linked:  sum.Linked,
			Skipped: sum.Skipped,
			Failed:  sum.Failed,
		}); lerr != nil {
			logging.Warn("Recording %s counters: %v", entity, lerr)
		}
		counts = append(counts, notify.EntityCount{
			Entity:  sum.Entity,
			Created: sum.Created,
			Linked:  sum.Linked,
			Skipped: sum.Skipped,
			Failed:  sum.Failed,
		})
		failedRecords += sum.Failed

		if runErr != nil {
			status := "failed"
			if errors.Is(runErr, context.Canceled) {
				status = "cancelled"
			}
			c.ledger.CompleteRun(runID, status)
			c.notifier.MigrationFailed(runID, runErr, time.Since(startTime))
			return fmt.Errorf("migrating %s: %w", entity, runErr)
		}
		logging.Info("%s", sum)
	}

	duration := time.Since(startTime)
	if failedRecords > 0 {
		c.ledger.CompleteRun(runID, "completed_with_errors")
		c.notifier.MigrationCompletedWithErrors(runID, startTime, duration, counts)
		logging.Warn("Run %s completed with %d failed records in %s", runID, failedRecords, duration.Round(time.Second))
		return exitcodes.NewExitError(
			fmt.Errorf("%d records failed to migrate", failedRecords),
			exitcodes.TransferError)
	}

	c.ledger.CompleteRun(runID, "completed")
	c.notifier.MigrationCompleted(runID, startTime, duration, counts)
	logging.Info("Run %s completed in %s", runID, duration.Round(time.Second))
	return nil
}

func (c *Coordinator) migrator(entity string) (migrator, error) {
	switch entity {
	case EntityProducts:
		return newProductMigrator(c.config, c.ids, c.dst, c.reporter), nil
	case EntityCustomers:
		return newCustomerMigrator(c.config, c.ids, c.dst, c.reporter), nil
	case EntityOrders:
		return newOrderMigrator(c.config, c.ids, c.dst, c.reporter), nil
	default:
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
}

// matchesFilter reports whether any of names contains the filter substring.
// An empty filter matches everything. The match is case-sensitive: the names
// are predominantly Japanese, where case folding has no meaning.
func matchesFilter(filter string, names ...string) bool {
	if filter == "" {
		return true
	}
	for _, n := range names {
		if strings.Contains(n, filter) {
			return true
		}
	}
	return false
}

// abortable reports whether err must stop the whole pass instead of being
// counted against the single record. Credential failures would repeat for
// every record; context errors mean the user gave up.
func abortable(err error) bool {
	var authErr *apiclient.AuthError
	if errors.As(err, &authErr) {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ensure target.Client satisfies the per-entity API surfaces
var (
	_ productAPI  = (*target.Client)(nil)
	_ customerAPI = (*target.Client)(nil)
	_ orderAPI    = (*target.Client)(nil)
)
