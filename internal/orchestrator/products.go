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

type productAPI interface {
	CreateProduct(ctx context.Context, p *target.Product) (*target.CreatedProduct, error)
	SetInventoryLevel(ctx context.Context, locationID, inventoryItemID, available int64) error
	SetInventoryCost(ctx context.Context, inventoryItemID int64, cost string) error
	PrimaryLocationID(ctx context.Context) (int64, error)
}

// ProductMigrator creates destination products from the product export and
// records the product, variant, and inventory item mappings. After each
// create it pushes the stock level and unit cost, which the create API does
// not accept inline.
type ProductMigrator struct {
	cfg      *config.Config
	ids      *idmap.Store
	api      productAPI
	reporter progress.Reporter

	locID int64 // destination location, resolved once per pass
}

func newProductMigrator(cfg *config.Config, ids *idmap.Store, api productAPI, reporter progress.Reporter) *ProductMigrator {
	return &ProductMigrator{cfg: cfg, ids: ids, api: api, reporter: reporter}
}

func (m *ProductMigrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Entity: EntityProducts}

	rows, err := source.LoadRows(m.cfg.ProductRowsFile())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sum, exitcodes.NewExitError(err, exitcodes.ConfigError)
		}
		return sum, fmt.Errorf("loading product rows: %w", err)
	}

	bar := progress.New(EntityProducts, len(rows))
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := m.migrateOne(ctx, rows[i], &sum); err != nil {
			return sum, err
		}
		bar.Add(1)
		m.reporter.Report(progress.Update{
			Phase:        EntityProducts,
			RecordsDone:  i + 1,
			RecordsTotal: len(rows),
			Created:      sum.Created,
			Skipped:      sum.Skipped,
			Failed:       sum.Failed,
		})
	}
	bar.Finish()
	m.reporter.ReportImmediate(progress.Update{
		Phase:        EntityProducts,
		RecordsDone:  len(rows),
		RecordsTotal: len(rows),
		Created:      sum.Created,
		Skipped:      sum.Skipped,
		Failed:       sum.Failed,
	})
	return sum, nil
}

// migrateOne processes a single row. A returned error aborts the pass; record
// level problems are counted on sum and logged instead.
func (m *ProductMigrator) migrateOne(ctx context.Context, row source.Row, sum *Summary) error {
	sourceID := row.Get(source.ColProductID)
	if sourceID == "" {
		logging.Warn("Product row without %s, skipping", source.ColProductID)
		sum.Skipped++
		return nil
	}
	if m.ids.Map().Has(idmap.Products, sourceID) {
		sum.Skipped++
		return nil
	}
	if !matchesFilter(m.cfg.Migration.NameFilter, row.Get(source.ColTitle)) {
		sum.Skipped++
		return nil
	}

	p, err := transform.Product(row, m.cfg)
	if err != nil {
		logging.Error("Product %s: %v", sourceID, err)
		sum.Failed++
		return nil
	}

	created, err := m.api.CreateProduct(ctx, p)
	if err != nil {
		if abortable(err) {
			return fmt.Errorf("creating product %s: %w", sourceID, err)
		}
		logging.Error("Creating product %s: %v", sourceID, err)
		sum.Failed++
		return nil
	}
	sum.Created++

	if m.cfg.Migration.DryRun {
		// Nothing came back to record, and the map must not learn IDs
		// that do not exist.
		return nil
	}
	if created.ID == 0 || len(created.Variants) == 0 {
		logging.Warn("Product %s: create response carried no variant, mappings not recorded", sourceID)
		return nil
	}

	if err := m.ids.Record(idmap.Products, sourceID, created.ID); err != nil {
		return fmt.Errorf("recording product mapping: %w", err)
	}
	v := created.Variants[0]
	if err := m.ids.Record(idmap.Variants, sourceID, v.ID); err != nil {
		return fmt.Errorf("recording variant mapping: %w", err)
	}
	if err := m.ids.Record(idmap.InventoryItems, sourceID, v.InventoryItemID); err != nil {
		return fmt.Errorf("recording inventory item mapping: %w", err)
	}

	// Stock and cost failures leave a usable product behind, so they are
	// logged rather than counted as record failures.
	m.pushInventory(ctx, row, sourceID, v.InventoryItemID)
	return nil
}

func (m *ProductMigrator) pushInventory(ctx context.Context, row source.Row, sourceID string, inventoryItemID int64) {
	if transform.TracksInventory(row) {
		stock, err := transform.Money(row.Get(source.ColStock))
		if err != nil {
			logging.Warn("Product %s: unreadable stock %q: %v", sourceID, row.Get(source.ColStock), err)
		} else {
			locID, lerr := m.locationID(ctx)
			if lerr != nil {
				logging.Warn("Product %s: resolving location: %v", sourceID, lerr)
			} else if serr := m.api.SetInventoryLevel(ctx, locID, inventoryItemID, stock.IntPart()); serr != nil {
				logging.Warn("Product %s: setting stock: %v", sourceID, serr)
			}
		}
	}

	if raw := row.Get(source.ColCost); raw != "" {
		cost, err := transform.Money(raw)
		if err != nil {
			logging.Warn("Product %s: unreadable cost %q: %v", sourceID, raw, err)
		} else if !cost.IsZero() {
			if serr := m.api.SetInventoryCost(ctx, inventoryItemID, cost.String()); serr != nil {
				logging.Warn("Product %s: setting cost: %v", sourceID, serr)
			}
		}
	}
}

// locationID resolves the destination location for inventory levels, caching
// it in the ID map so later runs skip the lookup.
func (m *ProductMigrator) locationID(ctx context.Context) (int64, error) {
	if m.locID != 0 {
		return m.locID, nil
	}
	if id := m.ids.Map().LocationID; id != 0 {
		m.locID = id
		return id, nil
	}

	id, err := m.api.PrimaryLocationID(ctx)
	if err != nil {
		return 0, err
	}
	m.locID = id
	if !m.cfg.Migration.DryRun {
		if err := m.ids.SetLocationID(id); err != nil {
			return 0, err
		}
	}
	return id, nil
}
