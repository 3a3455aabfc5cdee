package transform

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/source"
	"github.com/snakada/ecbridge/internal/target"
	"golang.org/x/text/width"
)

// maxSecondaryImages is the number of numbered image columns in the export
// ("image2" through "image10").
const maxSecondaryImages = 9

// Money parses a source money field into a decimal. Full-width digits and
// thousands separators appear in hand-edited exports.
func Money(raw string) (decimal.Decimal, error) {
	s := width.Narrow.String(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing money value %q: %w", raw, err)
	}
	return d, nil
}

// truthy interprets the export's flag columns.
func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// Product converts a product export row into a create-product payload.
func Product(row source.Row, cfg *config.Config) (*target.Product, error) {
	price, err := Money(row.Get(source.ColPrice))
	if err != nil {
		return nil, err
	}
	regular, err := Money(row.Get(source.ColRegularPrice))
	if err != nil {
		return nil, err
	}

	variant := target.Variant{
		Price: price.String(),
		SKU:   strings.TrimSpace(row.Get(source.ColProductID)),
	}
	// Compare-at only when a real pre-discount price exists.
	if !regular.IsZero() && !regular.Equal(price) {
		variant.CompareAtPrice = regular.String()
	}
	if truthy(row.Get(source.ColStockManaged)) {
		variant.InventoryManagement = "shopify"
		variant.InventoryPolicy = "deny"
	}

	vendor := strings.TrimSpace(row.Get(source.ColVendor))
	if vendor == "" {
		vendor = cfg.Destination.DefaultVendor
	}

	status := "draft"
	if strings.TrimSpace(row.Get(source.ColDisplayState)) == "showing" {
		status = "active"
	}

	p := &target.Product{
		Title:       strings.TrimSpace(row.Get(source.ColTitle)),
		BodyHTML:    row.Get(source.ColDescription),
		Vendor:      vendor,
		ProductType: strings.TrimSpace(row.Get(source.ColCategory)),
		Status:      status,
		Variants:    []target.Variant{variant},
		Images:      collectImages(row),
	}
	return p, nil
}

// collectImages gathers the primary image and up to nine numbered secondary
// images, skipping empty columns. Positions stay contiguous so the
// destination keeps the source's display order.
func collectImages(row source.Row) []target.Image {
	var images []target.Image
	add := func(src string) {
		src = strings.TrimSpace(src)
		if src == "" {
			return
		}
		images = append(images, target.Image{Src: src, Position: len(images) + 1})
	}
	add(row.Get(source.ColImage))
	for i := 2; i <= maxSecondaryImages+1; i++ {
		add(row.Get(fmt.Sprintf("%s%d", source.ColImage, i)))
	}
	return images
}

// TracksInventory reports whether the source row flags inventory tracking,
// which gates the post-create inventory level write.
func TracksInventory(row source.Row) bool {
	return truthy(row.Get(source.ColStockManaged))
}
