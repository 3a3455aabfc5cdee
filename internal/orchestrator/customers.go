package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/snakada/ecbridge/internal/apiclient"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/exitcodes"
	"github.com/snakada/ecbridge/internal/idmap"
	"github.com/snakada/ecbridge/internal/logging"
	"github.com/snakada/ecbridge/internal/progress"
	"github.com/snakada/ecbridge/internal/source"
	"github.com/snakada/ecbridge/internal/target"
	"github.com/snakada/ecbridge/internal/transform"
)

type customerAPI interface {
	CreateCustomer(ctx context.Context, cu *target.Customer) (int64, error)
	SearchCustomerByEmail(ctx context.Context, email string) (int64, bool, error)
}

// CustomerMigrator creates destination customers from the customer export.
// A duplicate conflict is resolved by searching the destination by email and
// linking the existing record, so re-running against a partially populated
// shop converges instead of failing.
type CustomerMigrator struct {
	cfg      *config.Config
	ids      *idmap.Store
	api      customerAPI
	reporter progress.Reporter
	now      func() time.Time
}

func newCustomerMigrator(cfg *config.Config, ids *idmap.Store, api customerAPI, reporter progress.Reporter) *CustomerMigrator {
	return &CustomerMigrator{cfg: cfg, ids: ids, api: api, reporter: reporter, now: time.Now}
}

func (m *CustomerMigrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Entity: EntityCustomers}

	rows, err := source.LoadRows(m.cfg.CustomerRowsFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sum, exitcodes.NewExitError(err, exitcodes.ConfigError)
		}
		return sum, fmt.Errorf("loading customer rows: %w", err)
	}

	bar := progress.New(EntityCustomers, len(rows))
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := m.migrateOne(ctx, rows[i], &sum); err != nil {
			return sum, err
		}
		bar.Add(1)
		m.reporter.Report(progress.Update{
			Phase:        EntityCustomers,
			RecordsDone:  i + 1,
			RecordsTotal: len(rows),
			Created:      sum.Created,
			Linked:       sum.Linked,
			Skipped:      sum.Skipped,
			Failed:       sum.Failed,
		})
	}
	bar.Finish()
	m.reporter.ReportImmediate(progress.Update{
		Phase:        EntityCustomers,
		RecordsDone:  len(rows),
		RecordsTotal: len(rows),
		Created:      sum.Created,
		Linked:       sum.Linked,
		Skipped:      sum.Skipped,
		Failed:       sum.Failed,
	})
	return sum, nil
}

func (m *CustomerMigrator) migrateOne(ctx context.Context, row source.Row, sum *Summary) error {
	sourceID := row.Get(source.ColCustomerID)
	if sourceID == "" {
		logging.Warn("Customer row without %s, skipping", source.ColCustomerID)
		sum.Skipped++
		return nil
	}
	if m.ids.Map().Has(idmap.Customers, sourceID) {
		sum.Skipped++
		return nil
	}
	if !matchesFilter(m.cfg.Migration.NameFilter, row.Get(source.ColName)) {
		sum.Skipped++
		return nil
	}

	cu := transform.Customer(row, m.cfg, m.now())
	destID, err := m.api.CreateCustomer(ctx, cu)
	if err == nil {
		sum.Created++
		if m.cfg.Migration.DryRun {
			return nil
		}
		if err := m.ids.Record(idmap.Customers, sourceID, destID); err != nil {
			return fmt.Errorf("recording customer mapping: %w", err)
		}
		return nil
	}

	if abortable(err) {
		return fmt.Errorf("creating customer %s: %w", sourceID, err)
	}
	if !apiclient.IsConflict(err) {
		logging.Error("Creating customer %s: %v", sourceID, err)
		sum.Failed++
		return nil
	}

	// The destination refused a duplicate. Link the existing record by its
	// email so orders still resolve the buyer.
	email := row.Get(source.ColEmail)
	if email == "" {
		logging.Error("Customer %s: duplicate at destination but row has no email to link by", sourceID)
		sum.Failed++
		return nil
	}
	destID, found, serr := m.api.SearchCustomerByEmail(ctx, email)
	if serr != nil {
		if abortable(serr) {
			return fmt.Errorf("searching customer %s: %w", sourceID, serr)
		}
		logging.Error("Searching customer %s by email: %v", sourceID, serr)
		sum.Failed++
		return nil
	}
	if !found {
		logging.Error("Customer %s: duplicate at destination but email %s not found", sourceID, email)
		sum.Failed++
		return nil
	}

	sum.Linked++
	if m.cfg.Migration.DryRun {
		return nil
	}
	if err := m.ids.Record(idmap.Customers, sourceID, destID); err != nil {
		return fmt.Errorf("recording customer mapping: %w", err)
	}
	logging.Info("Customer %s linked to existing destination customer %d", sourceID, destID)
	return nil
}
