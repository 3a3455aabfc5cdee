package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/exitcodes"
	"github.com/snakada/ecbridge/internal/idmap"
	"github.com/snakada/ecbridge/internal/logging"
	"github.com/snakada/ecbridge/internal/progress"
	"github.com/snakada/ecbridge/internal/source"
	"github.com/snakada/ecbridge/internal/target"
	"github.com/snakada/ecbridge/internal/transform"
)

type orderAPI interface {
	CreateOrder(ctx context.Context, o *target.Order) (int64, error)
}

// OrderMigrator creates destination orders from the extracted sales file,
// resolving buyers and variants through the mappings the earlier passes
// recorded. It runs last for that reason.
type OrderMigrator struct {
	cfg      *config.Config
	ids      *idmap.Store
	api      orderAPI
	reporter progress.Reporter
}

func newOrderMigrator(cfg *config.Config, ids *idmap.Store, api orderAPI, reporter progress.Reporter) *OrderMigrator {
	return &OrderMigrator{cfg: cfg, ids: ids, api: api, reporter: reporter}
}

func (m *OrderMigrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Entity: EntityOrders}

	sales, err := source.ReadSales(m.cfg.SalesFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sum, exitcodes.NewExitError(err, exitcodes.ConfigError)
		}
		return sum, fmt.Errorf("loading sales: %w", err)
	}

	bar := progress.New(EntityOrders, len(sales))
	for i := range sales {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := m.migrateOne(ctx, &sales[i], &sum); err != nil {
			return sum, err
		}
		bar.Add(1)
		m.reporter.Report(progress.Update{
			Phase:        EntityOrders,
			RecordsDone:  i + 1,
			RecordsTotal: len(sales),
			Created:      sum.Created,
			Skipped:      sum.Skipped,
			Failed:       sum.Failed,
		})
	}
	bar.Finish()
	m.reporter.ReportImmediate(progress.Update{
		Phase:        EntityOrders,
		RecordsDone:  len(sales),
		RecordsTotal: len(sales),
		Created:      sum.Created,
		Skipped:      sum.Skipped,
		Failed:       sum.Failed,
	})
	return sum, nil
}

func (m *OrderMigrator) migrateOne(ctx context.Context, sale *source.Sale, sum *Summary) error {
	sourceID := sale.SourceID()
	if sourceID == "" || sourceID == "0" {
		logging.Warn("Sale without an id, skipping")
		sum.Skipped++
		return nil
	}
	if m.ids.Map().Has(idmap.Orders, sourceID) {
		sum.Skipped++
		return nil
	}
	if sale.TotalPrice == 0 && !m.cfg.Migration.IncludeZeroOrders {
		sum.Skipped++
		return nil
	}
	if !matchesFilter(m.cfg.Migration.NameFilter, transform.DisplayNames(sale)...) {
		sum.Skipped++
		return nil
	}

	for i := range sale.Details {
		if d := &sale.Details[i]; d.Quantity <= 0 && d.DisplayName() != "" {
			logging.Warn("Sale %s: line %q has quantity %d", sourceID, d.DisplayName(), d.Quantity)
		}
	}

	o := transform.Order(sale, m.ids.Map(), m.cfg)
	if len(o.LineItems) == 0 {
		logging.Warn("Sale %s has no usable line items, skipping", sourceID)
		sum.Skipped++
		return nil
	}

	destID, err := m.api.CreateOrder(ctx, o)
	if err != nil {
		if abortable(err) {
			return fmt.Errorf("creating order %s: %w", sourceID, err)
		}
		logging.Error("Creating order %s: %v", sourceID, err)
		sum.Failed++
		return nil
	}
	sum.Created++

	if m.cfg.Migration.DryRun {
		return nil
	}
	if err := m.ids.Record(idmap.Orders, sourceID, destID); err != nil {
		return fmt.Errorf("recording order mapping: %w", err)
	}
	return nil
}
