package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/snakada/ecbridge/internal/apiclient"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/idmap"
	"github.com/snakada/ecbridge/internal/progress"
	"github.com/snakada/ecbridge/internal/source"
	"github.com/snakada/ecbridge/internal/target"
)

func testSetup(t *testing.T) (*config.Config, *idmap.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.LoadBytes([]byte(fmt.Sprintf(`
source:
  base_url: https://api.example.test
  access_token: src-token
destination:
  base_url: https://shop.example.test/admin/api/2024-01
  access_token: dst-token
  default_vendor: 旧店舗
migration:
  data_dir: %s
`, dir)))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg, idmap.Open(cfg.IDMapFile())
}

func writeRows(t *testing.T, path string, rows []source.Row) {
	t.Helper()
	data, err := json.Marshal(rows)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

// --- products ---

type fakeProductAPI struct {
	created    []*target.Product
	createErr  map[int]error // call index -> error
	nextID     int64
	locationID int64
	locCalls   int
	levels     map[int64]int64  // inventory item -> available
	levelLoc   map[int64]int64  // inventory item -> location
	costs      map[int64]string // inventory item -> cost
}

func newFakeProductAPI() *fakeProductAPI {
	return &fakeProductAPI{
		nextID:     100,
		locationID: 77,
		levels:     make(map[int64]int64),
		levelLoc:   make(map[int64]int64),
		costs:      make(map[int64]string),
	}
}

func (f *fakeProductAPI) CreateProduct(_ context.Context, p *target.Product) (*target.CreatedProduct, error) {
	if err := f.createErr[len(f.created)]; err != nil {
		f.created = append(f.created, nil)
		return nil, err
	}
	f.created = append(f.created, p)
	id := f.nextID
	f.nextID++
	return &target.CreatedProduct{
		ID:       id,
		Variants: []target.CreatedVariant{{ID: id * 10, InventoryItemID: id * 100}},
	}, nil
}

func (f *fakeProductAPI) SetInventoryLevel(_ context.Context, locationID, inventoryItemID, available int64) error {
	f.levels[inventoryItemID] = available
	f.levelLoc[inventoryItemID] = locationID
	return nil
}

func (f *fakeProductAPI) SetInventoryCost(_ context.Context, inventoryItemID int64, cost string) error {
	f.costs[inventoryItemID] = cost
	return nil
}

func (f *fakeProductAPI) PrimaryLocationID(_ context.Context) (int64, error) {
	f.locCalls++
	return f.locationID, nil
}

func productRow(id string) source.Row {
	return source.Row{
		source.ColProductID:    id,
		source.ColTitle:        "有田焼 茶碗 " + id,
		source.ColPrice:        "2400",
		source.ColCost:         "800",
		source.ColStock:        "12",
		source.ColStockManaged: "1",
		source.ColDisplayState: "showing",
	}
}

func TestProductMigrator(t *testing.T) {
	t.Run("creates and records mappings", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeRows(t, cfg.ProductRowsFile(), []source.Row{productRow("p1")})
		api := newFakeProductAPI()

		sum, err := newProductMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Created != 1 || sum.Failed != 0 || sum.Skipped != 0 {
			t.Errorf("summary = %+v", sum)
		}

		m := ids.Map()
		if got, _ := m.Get(idmap.Products, "p1"); got != 100 {
			t.Errorf("product mapping = %d", got)
		}
		if got, _ := m.Get(idmap.Variants, "p1"); got != 1000 {
			t.Errorf("variant mapping = %d", got)
		}
		if got, _ := m.Get(idmap.InventoryItems, "p1"); got != 10000 {
			t.Errorf("inventory item mapping = %d", got)
		}
		if m.LocationID != 77 {
			t.Errorf("location not cached, got %d", m.LocationID)
		}
		if api.levels[10000] != 12 || api.levelLoc[10000] != 77 {
			t.Errorf("inventory level = %d at %d", api.levels[10000], api.levelLoc[10000])
		}
		if api.costs[10000] != "800" {
			t.Errorf("cost = %q", api.costs[10000])
		}
	})

	t.Run("location resolved once per pass", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeRows(t, cfg.ProductRowsFile(), []source.Row{productRow("p1"), productRow("p2")})
		api := newFakeProductAPI()

		if _, err := newProductMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background()); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if api.locCalls != 1 {
			t.Errorf("location lookups = %d, want 1", api.locCalls)
		}
	})

	t.Run("already migrated rows are skipped", func(t *testing.T) {
		cfg, ids := testSetup(t)
		if err := ids.Record(idmap.Products, "p1", 999); err != nil {
			t.Fatal(err)
		}
		writeRows(t, cfg.ProductRowsFile(), []source.Row{productRow("p1")})
		api := newFakeProductAPI()

		sum, err := newProductMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Skipped != 1 || len(api.created) != 0 {
			t.Errorf("summary = %+v, created = %d", sum, len(api.created))
		}
	})

	t.Run("record failures do not stop the pass", func(t *testing.T) {
		cfg, ids := testSetup(t)
		bad := productRow("p1")
		bad[source.ColPrice] = "not a number"
		writeRows(t, cfg.ProductRowsFile(), []source.Row{bad, productRow("p2")})
		api := newFakeProductAPI()

		sum, err := newProductMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Failed != 1 || sum.Created != 1 {
			t.Errorf("summary = %+v", sum)
		}
		if !ids.Map().Has(idmap.Products, "p2") {
			t.Error("second row should still migrate")
		}
	})

	t.Run("auth errors abort", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeRows(t, cfg.ProductRowsFile(), []source.Row{productRow("p1"), productRow("p2")})
		api := newFakeProductAPI()
		api.createErr = map[int]error{0: &apiclient.AuthError{Status: 401}}

		sum, err := newProductMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err == nil {
			t.Fatal("expected error")
		}
		if len(api.created) != 1 {
			t.Errorf("pass should stop at the auth failure, %d create calls", len(api.created))
		}
		if sum.Created != 0 {
			t.Errorf("summary = %+v", sum)
		}
	})

	t.Run("dry run records nothing", func(t *testing.T) {
		cfg, ids := testSetup(t)
		cfg.Migration.DryRun = true
		writeRows(t, cfg.ProductRowsFile(), []source.Row{productRow("p1")})
		api := newFakeProductAPI()

		sum, err := newProductMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Created != 1 {
			t.Errorf("summary = %+v", sum)
		}
		if ids.Map().Has(idmap.Products, "p1") || ids.Map().LocationID != 0 {
			t.Error("dry run must not record mappings")
		}
	})

	t.Run("name filter", func(t *testing.T) {
		cfg, ids := testSetup(t)
		cfg.Migration.NameFilter = "湯呑み"
		match := productRow("p1")
		match[source.ColTitle] = "湯呑みセット"
		writeRows(t, cfg.ProductRowsFile(), []source.Row{match, productRow("p2")})
		api := newFakeProductAPI()

		sum, err := newProductMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Created != 1 || sum.Skipped != 1 {
			t.Errorf("summary = %+v", sum)
		}
	})
}

// --- customers ---

type fakeCustomerAPI struct {
	nextID      int64
	createCalls int
	conflict    map[string]bool  // email -> destination refuses as duplicate
	existing    map[string]int64 // email -> existing destination id
	createErr   error
}

func newFakeCustomerAPI() *fakeCustomerAPI {
	return &fakeCustomerAPI{
		nextID:   500,
		conflict: make(map[string]bool),
		existing: make(map[string]int64),
	}
}

func (f *fakeCustomerAPI) CreateCustomer(_ context.Context, cu *target.Customer) (int64, error) {
	f.createCalls++
	if f.createErr != nil {
		return 0, f.createErr
	}
	if f.conflict[cu.Email] {
		return 0, &apiclient.APIError{Status: 422, Body: `{"errors":{"email":["has already been taken"]}}`}
	}
	id := f.nextID
	f.nextID++
	return id, nil
}

func (f *fakeCustomerAPI) SearchCustomerByEmail(_ context.Context, email string) (int64, bool, error) {
	id, ok := f.existing[email]
	return id, ok, nil
}

func customerRow(id, email string) source.Row {
	return source.Row{
		source.ColCustomerID: id,
		source.ColName:       "山田　太郎",
		source.ColEmail:      email,
		source.ColTel:        "090-1234-5678",
	}
}

func TestCustomerMigrator(t *testing.T) {
	t.Run("creates and records", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeRows(t, cfg.CustomerRowsFile(), []source.Row{customerRow("c1", "taro@example.test")})
		api := newFakeCustomerAPI()

		sum, err := newCustomerMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Created != 1 {
			t.Errorf("summary = %+v", sum)
		}
		if got, _ := ids.Map().Get(idmap.Customers, "c1"); got != 500 {
			t.Errorf("mapping = %d", got)
		}
	})

	t.Run("duplicate links the existing customer", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeRows(t, cfg.CustomerRowsFile(), []source.Row{customerRow("c1", "taro@example.test")})
		api := newFakeCustomerAPI()
		api.conflict["taro@example.test"] = true
		api.existing["taro@example.test"] = 42

		sum, err := newCustomerMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Linked != 1 || sum.Created != 0 || sum.Failed != 0 {
			t.Errorf("summary = %+v", sum)
		}
		if got, _ := ids.Map().Get(idmap.Customers, "c1"); got != 42 {
			t.Errorf("mapping = %d, want the linked id", got)
		}
	})

	t.Run("duplicate without a searchable email fails the record", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeRows(t, cfg.CustomerRowsFile(), []source.Row{customerRow("c1", "")})
		api := newFakeCustomerAPI()
		api.conflict[""] = true

		sum, err := newCustomerMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Failed != 1 {
			t.Errorf("summary = %+v", sum)
		}
	})

	t.Run("duplicate not found by search fails the record", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeRows(t, cfg.CustomerRowsFile(), []source.Row{customerRow("c1", "taro@example.test")})
		api := newFakeCustomerAPI()
		api.conflict["taro@example.test"] = true

		sum, err := newCustomerMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Failed != 1 || sum.Linked != 0 {
			t.Errorf("summary = %+v", sum)
		}
		if ids.Map().Has(idmap.Customers, "c1") {
			t.Error("failed record must not be mapped")
		}
	})
}

// --- orders ---

type fakeOrderAPI struct {
	orders []*target.Order
	nextID int64
}

func (f *fakeOrderAPI) CreateOrder(_ context.Context, o *target.Order) (int64, error) {
	f.orders = append(f.orders, o)
	f.nextID++
	return 9000 + f.nextID, nil
}

func writeSales(t *testing.T, cfg *config.Config, sales []source.Sale) {
	t.Helper()
	if err := source.WriteSales(cfg.SalesFile(), sales); err != nil {
		t.Fatal(err)
	}
}

func testSale(id int64) source.Sale {
	return source.Sale{
		ID:         id,
		MakeDate:   1700000000,
		CustomerID: 88,
		Paid:       true,
		TotalPrice: 2400,
		Details: []source.LineDetail{
			{ProductID: 501, ProductName: "有田焼 茶碗", PriceWithTax: 2400, Quantity: 1},
		},
		Deliveries: []source.Delivery{{Name: "山田 太郎", Charge: 600}},
	}
}

func TestOrderMigrator(t *testing.T) {
	t.Run("creates with resolved mappings", func(t *testing.T) {
		cfg, ids := testSetup(t)
		if err := ids.Record(idmap.Customers, "88", 7001); err != nil {
			t.Fatal(err)
		}
		if err := ids.Record(idmap.Variants, "501", 8001); err != nil {
			t.Fatal(err)
		}
		writeSales(t, cfg, []source.Sale{testSale(1)})
		api := &fakeOrderAPI{}

		sum, err := newOrderMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Created != 1 {
			t.Errorf("summary = %+v", sum)
		}
		if len(api.orders) != 1 {
			t.Fatalf("orders created = %d", len(api.orders))
		}
		o := api.orders[0]
		if o.Customer == nil || o.Customer.ID != 7001 {
			t.Errorf("customer = %+v", o.Customer)
		}
		if o.LineItems[0].VariantID != 8001 {
			t.Errorf("variant = %d", o.LineItems[0].VariantID)
		}
		if !ids.Map().Has(idmap.Orders, "1") {
			t.Error("order mapping not recorded")
		}
	})

	t.Run("zero total skipped unless configured", func(t *testing.T) {
		cfg, ids := testSetup(t)
		sale := testSale(1)
		sale.TotalPrice = 0
		writeSales(t, cfg, []source.Sale{sale})
		api := &fakeOrderAPI{}

		sum, err := newOrderMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Skipped != 1 || len(api.orders) != 0 {
			t.Errorf("summary = %+v", sum)
		}

		cfg.Migration.IncludeZeroOrders = true
		sum, err = newOrderMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Created != 1 {
			t.Errorf("summary with zero orders included = %+v", sum)
		}
	})

	t.Run("already migrated sales are skipped", func(t *testing.T) {
		cfg, ids := testSetup(t)
		if err := ids.Record(idmap.Orders, "1", 9999); err != nil {
			t.Fatal(err)
		}
		writeSales(t, cfg, []source.Sale{testSale(1)})
		api := &fakeOrderAPI{}

		sum, err := newOrderMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Skipped != 1 || len(api.orders) != 0 {
			t.Errorf("summary = %+v", sum)
		}
	})

	t.Run("sale without usable lines is skipped", func(t *testing.T) {
		cfg, ids := testSetup(t)
		sale := testSale(1)
		sale.Details = []source.LineDetail{{ProductID: 1, PriceWithTax: 100, Quantity: 1}}
		writeSales(t, cfg, []source.Sale{sale})
		api := &fakeOrderAPI{}

		sum, err := newOrderMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Skipped != 1 || len(api.orders) != 0 {
			t.Errorf("summary = %+v", sum)
		}
	})

	t.Run("name filter matches delivery recipients", func(t *testing.T) {
		cfg, ids := testSetup(t)
		cfg.Migration.NameFilter = "山田"
		other := testSale(2)
		other.Deliveries[0].Name = "佐藤 花子"
		writeSales(t, cfg, []source.Sale{testSale(1), other})
		api := &fakeOrderAPI{}

		sum, err := newOrderMigrator(cfg, ids, api, progress.NopReporter{}).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if sum.Created != 1 || sum.Skipped != 1 {
			t.Errorf("summary = %+v", sum)
		}
	})

	t.Run("cancelled context stops the pass", func(t *testing.T) {
		cfg, ids := testSetup(t)
		writeSales(t, cfg, []source.Sale{testSale(1)})
		api := &fakeOrderAPI{}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newOrderMigrator(cfg, ids, api, progress.NopReporter{}).Run(ctx)
		if err == nil {
			t.Fatal("expected context error")
		}
	})
}
