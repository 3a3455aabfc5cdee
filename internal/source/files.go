package source

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteSales writes extracted sales to the hand-off file consumed by the
// order migration step.
func WriteSales(path string, sales []Sale) error {
	data, err := json.MarshalIndent(sales, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding sales: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing sales file: %w", err)
	}
	return nil
}

// ReadSales reads the extracted-sales hand-off file.
func ReadSales(path string) ([]Sale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("extracted sales file not found at %s (run the extract step first): %w", path, err)
		}
		return nil, fmt.Errorf("reading sales file: %w", err)
	}
	var sales []Sale
	if err := json.Unmarshal(data, &sales); err != nil {
		return nil, fmt.Errorf("parsing sales file %s: %w", path, err)
	}
	return sales, nil
}

// LoadRows reads a pre-parsed tabular export (parsing and text decoding
// happen upstream; this file is plain JSON rows).
func LoadRows(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("export rows file not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("reading rows file: %w", err)
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing rows file %s: %w", path, err)
	}
	return rows, nil
}
