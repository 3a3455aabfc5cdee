// Package idmap implements the durable source-to-destination identifier
// ledger. The map is the sole resumability mechanism: an entry means the
// destination entity exists, absence means it still needs to be created.
package idmap

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/snakada/ecbridge/internal/logging"
	"gopkg.in/yaml.v3"
)

// Table names the five independent mapping tables.
type Table string

const (
	Products       Table = "products"
	Customers      Table = "customers"
	Orders         Table = "orders"
	Variants       Table = "variants"
	InventoryItems Table = "inventoryItems"
)

// Map holds the source-ID to destination-ID tables plus the destination
// location singleton. Entries are never removed.
type Map struct {
	Products       map[string]int64 `yaml:"products"`
	Customers      map[string]int64 `yaml:"customers"`
	Orders         map[string]int64 `yaml:"orders"`
	Variants       map[string]int64 `yaml:"variants"`
	InventoryItems map[string]int64 `yaml:"inventoryItems"`
	LocationID     int64            `yaml:"locationId,omitempty"`
}

// NewMap returns an empty map with all tables allocated.
func NewMap() *Map {
	return &Map{
		Products:       make(map[string]int64),
		Customers:      make(map[string]int64),
		Orders:         make(map[string]int64),
		Variants:       make(map[string]int64),
		InventoryItems: make(map[string]int64),
	}
}

func (m *Map) table(t Table) map[string]int64 {
	switch t {
	case Products:
		return m.Products
	case Customers:
		return m.Customers
	case Orders:
		return m.Orders
	case Variants:
		return m.Variants
	case InventoryItems:
		return m.InventoryItems
	}
	return nil
}

// Get returns the destination ID mapped to sourceID, if any.
func (m *Map) Get(t Table, sourceID string) (int64, bool) {
	tbl := m.table(t)
	if tbl == nil {
		return 0, false
	}
	id, ok := tbl[sourceID]
	return id, ok
}

// Has reports whether sourceID is already mapped.
func (m *Map) Has(t Table, sourceID string) bool {
	_, ok := m.Get(t, sourceID)
	return ok
}

// Count returns the number of entries in a table.
func (m *Map) Count(t Table) int {
	return len(m.table(t))
}

// Store owns the durable copy of a Map. Every mutation is persisted before
// the call returns, so a crash loses at most the in-flight record.
type Store struct {
	path string
	mu   sync.Mutex
	m    *Map
}

// Open loads the map from path, or starts empty if the file is missing or
// unreadable. A corrupt file is deliberately swallowed: resuming from empty
// is always safe, merely slower.
func Open(path string) *Store {
	s := &Store{path: path, m: NewMap()}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Warn("id map: cannot read %s, starting empty: %v", path, err)
		}
		return s
	}

	loaded := NewMap()
	if err := yaml.Unmarshal(data, loaded); err != nil {
		logging.Warn("id map: %s is corrupt, starting empty: %v", path, err)
		return s
	}
	// Tables absent from the file stay usable.
	if loaded.Products == nil {
		loaded.Products = make(map[string]int64)
	}
	if loaded.Customers == nil {
		loaded.Customers = make(map[string]int64)
	}
	if loaded.Orders == nil {
		loaded.Orders = make(map[string]int64)
	}
	if loaded.Variants == nil {
		loaded.Variants = make(map[string]int64)
	}
	if loaded.InventoryItems == nil {
		loaded.InventoryItems = make(map[string]int64)
	}
	s.m = loaded
	return s
}

// Map returns the current in-memory map. Read-only for callers; mutations go
// through Record and SetLocationID.
func (s *Store) Map() *Map {
	return s.m
}

// Record maps sourceID to destID and synchronously persists. The write must
// land before the caller moves to the next record; an I/O failure here
// propagates because losing it would silently re-create entities on re-run.
func (s *Store) Record(t Table, sourceID string, destID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tbl := s.m.table(t)
	if tbl == nil {
		return fmt.Errorf("id map: unknown table %q", t)
	}
	tbl[sourceID] = destID
	if err := s.save(); err != nil {
		return fmt.Errorf("id map: saving after recording %s/%s: %w", t, sourceID, err)
	}
	return nil
}

// SetLocationID stores the destination location singleton and persists.
func (s *Store) SetLocationID(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.m.LocationID = id
	if err := s.save(); err != nil {
		return fmt.Errorf("id map: saving location id: %w", err)
	}
	return nil
}

// save atomically overwrites the durable file (write temp, rename).
func (s *Store) save() error {
	data, err := yaml.Marshal(s.m)
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".idmap-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
