// Package source reads records from the source platform: sales via its REST
// API, products and customers as pre-parsed rows from its tabular exports.
package source

import "strconv"

// Sale is one order on the source platform.
type Sale struct {
	ID         int64        `json:"id"`
	MakeDate   int64        `json:"make_date"` // epoch seconds
	CustomerID int64        `json:"customer_id"`
	Details    []LineDetail `json:"details"`
	Deliveries []Delivery   `json:"deliveries"`
	Paid       bool         `json:"paid"`
	Delivered  bool         `json:"delivered"`
	TotalPrice int64        `json:"total_price"` // tax inclusive
}

// SourceID returns the sale's identifier as an ID-map key.
func (s *Sale) SourceID() string {
	return strconv.FormatInt(s.ID, 10)
}

// CustomerSourceID returns the buyer reference as an ID-map key.
func (s *Sale) CustomerSourceID() string {
	return strconv.FormatInt(s.CustomerID, 10)
}

// LineDetail is one ordered item on a sale.
type LineDetail struct {
	ProductID       int64  `json:"product_id"`
	ProductName     string `json:"product_name"`
	ProductFullName string `json:"product_full_name"` // fallback display name
	PriceWithTax    int64  `json:"price_with_tax"`    // tax-inclusive unit price
	Quantity        int64  `json:"product_num"`
}

// DisplayName returns the line's title, falling back to the full name.
func (d *LineDetail) DisplayName() string {
	if d.ProductName != "" {
		return d.ProductName
	}
	return d.ProductFullName
}

// ProductSourceID returns the referenced product as an ID-map key.
func (d *LineDetail) ProductSourceID() string {
	return strconv.FormatInt(d.ProductID, 10)
}

// Delivery is one shipment on a sale.
type Delivery struct {
	Name            string `json:"name"`
	Postal          string `json:"postal"`
	Address1        string `json:"address1"`
	Address2        string `json:"address2"`
	Tel             string `json:"tel"`
	Charge          int64  `json:"delivery_charge"` // shipping fee
	PreferredDate   string `json:"preferred_date"`
	PreferredPeriod string `json:"preferred_period"` // requested time window
}

// Row is one record from a tabular export, already parsed upstream. Keys are
// the export's business field names.
type Row map[string]string

// Get returns the value for key, or "" when absent.
func (r Row) Get(key string) string {
	return r[key]
}

// Well-known product export columns. A product row carries a primary image
// plus up to nine numbered secondary images ("image2".."image10").
const (
	ColProductID    = "product_id"
	ColTitle        = "title"
	ColPrice        = "price"
	ColRegularPrice = "regular_price" // pre-discount price, becomes compare-at
	ColCost         = "cost"
	ColStock        = "stock"
	ColStockManaged = "stock_managed" // "1" when the source tracks inventory
	ColDisplayState = "display_state" // "showing" or hidden
	ColCategory     = "category"
	ColVendor       = "vendor"
	ColDescription  = "description"
	ColImage        = "image"
)

// Well-known customer export columns.
const (
	ColCustomerID = "customer_id"
	ColName       = "name"
	ColFurigana   = "furigana" // phonetic reading, kept as a note
	ColEmail      = "email"
	ColTel        = "tel"
	ColPostal     = "postal"
	ColPrefecture = "prefecture"
	ColCity       = "city"
	ColAddress    = "address"
	ColNewsletter = "newsletter" // "1" when opted in to the mail magazine
)
