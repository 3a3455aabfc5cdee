package transform

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/idmap"
	"github.com/snakada/ecbridge/internal/source"
	"github.com/snakada/ecbridge/internal/target"
)

// Order converts a source sale into a create-order payload, resolving the
// buyer and line variants through the ID-map snapshot. A missing mapping is
// not an error: the order is created without that linkage, since the
// destination accepts line items with only a title and price.
func Order(sale *source.Sale, m *idmap.Map, cfg *config.Config) *target.Order {
	o := &target.Order{
		FinancialStatus: "pending",
		NoteAttributes: []target.NoteAttribute{
			// Keeps the mapping auditable from the destination side.
			{Name: "source_sale_id", Value: sale.SourceID()},
		},
	}
	if sale.Paid {
		o.FinancialStatus = "paid"
	}
	if sale.Delivered {
		o.FulfillmentStatus = "fulfilled"
	}

	ts := time.Unix(sale.MakeDate, 0).UTC().Format(time.RFC3339)
	o.CreatedAt = ts
	o.ProcessedAt = ts

	if destID, ok := m.Get(idmap.Customers, sale.CustomerSourceID()); ok {
		o.Customer = &target.OrderCustomer{ID: destID}
	}

	for i := range sale.Details {
		d := &sale.Details[i]
		title := d.DisplayName()
		if title == "" {
			// No display name in either field; nothing usable to migrate.
			continue
		}
		item := target.OrderLineItem{
			Title:    title,
			Price:    decimal.NewFromInt(d.PriceWithTax).String(),
			Quantity: d.Quantity,
		}
		if variantID, ok := m.Get(idmap.Variants, d.ProductSourceID()); ok {
			item.VariantID = variantID
		}
		o.LineItems = append(o.LineItems, item)
	}

	if len(sale.Deliveries) > 0 {
		o.ShippingAddress = deliveryAddress(&sale.Deliveries[0], cfg)
	}
	var fee int64
	for i := range sale.Deliveries {
		if c := sale.Deliveries[i].Charge; c > 0 {
			fee += c
		}
	}
	if fee > 0 {
		o.ShippingLines = []target.ShippingLine{{
			Title: "送料",
			Price: decimal.NewFromInt(fee).String(),
		}}
	}

	for i := range sale.Deliveries {
		d := &sale.Deliveries[i]
		if d.PreferredDate != "" {
			o.NoteAttributes = append(o.NoteAttributes,
				target.NoteAttribute{Name: "preferred_date", Value: d.PreferredDate})
		}
		if d.PreferredPeriod != "" {
			o.NoteAttributes = append(o.NoteAttributes,
				target.NoteAttribute{Name: "preferred_period", Value: d.PreferredPeriod})
		}
	}

	return o
}

// deliveryAddress maps a sale delivery to a destination shipping address.
func deliveryAddress(d *source.Delivery, cfg *config.Config) *target.Address {
	lastName, firstName := SplitName(d.Name)
	addr1, addr2 := d.Address1, d.Address2
	if addr2 == "" {
		addr1, addr2 = SplitAddress(addr1)
	}
	return &target.Address{
		FirstName: firstName,
		LastName:  lastName,
		Zip:       FormatPostal(d.Postal),
		Address1:  addr1,
		Address2:  addr2,
		Phone:     NormalizePhone(d.Tel, cfg.Destination.PhoneCountryCode),
	}
}

// DisplayNames returns the names a record exposes for the run's name filter:
// for a sale, the delivery recipient names.
func DisplayNames(sale *source.Sale) []string {
	names := make([]string, 0, len(sale.Deliveries))
	for i := range sale.Deliveries {
		if n := sale.Deliveries[i].Name; n != "" {
			names = append(names, n)
		}
	}
	return names
}
