// Package target writes to the destination platform's admin REST API and
// defines the payload shapes the transformers must produce.
package target

// Product is the create-product payload. Exactly one variant is produced per
// source product; the platform assigns variant and inventory-item IDs.
type Product struct {
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html,omitempty"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type,omitempty"`
	Status      string    `json:"status"` // "active" or "draft"
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images,omitempty"`
}

// Variant is a purchasable variation of a product.
type Variant struct {
	Price               string `json:"price"`
	CompareAtPrice      string `json:"compare_at_price,omitempty"`
	SKU                 string `json:"sku,omitempty"`
	InventoryManagement string `json:"inventory_management,omitempty"` // "shopify" when tracked, omitted when untracked
	InventoryPolicy     string `json:"inventory_policy,omitempty"`
}

// Image is a product image by URL. Position 1 is the primary image.
type Image struct {
	Src      string `json:"src"`
	Position int    `json:"position,omitempty"`
}

// Customer is the create-customer payload.
type Customer struct {
	FirstName             string            `json:"first_name"`
	LastName              string            `json:"last_name"`
	Email                 string            `json:"email"`
	Phone                 string            `json:"phone,omitempty"` // omitted entirely when normalization yields no value
	Note                  string            `json:"note,omitempty"`
	Addresses             []Address         `json:"addresses,omitempty"`
	EmailMarketingConsent *MarketingConsent `json:"email_marketing_consent,omitempty"`
}

// MarketingConsent captures the newsletter opt-in state.
type MarketingConsent struct {
	State            string `json:"state"`            // "subscribed" or "not_subscribed"
	OptInLevel       string `json:"opt_in_level"`     // "single_opt_in" or "unknown"
	ConsentUpdatedAt string `json:"consent_updated_at,omitempty"`
}

// Address is a postal address attached to a customer or order.
type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Province  string `json:"province,omitempty"`
	City      string `json:"city,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"` // building / unit
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Order is the create-order payload.
type Order struct {
	Customer          *OrderCustomer  `json:"customer,omitempty"` // omitted when the buyer was never migrated
	LineItems         []OrderLineItem `json:"line_items"`
	ShippingLines     []ShippingLine  `json:"shipping_lines,omitempty"`
	ShippingAddress   *Address        `json:"shipping_address,omitempty"`
	ProcessedAt       string          `json:"processed_at,omitempty"` // source creation time, RFC 3339
	CreatedAt         string          `json:"created_at,omitempty"`
	FinancialStatus   string          `json:"financial_status"`             // "paid" or "pending"
	FulfillmentStatus string          `json:"fulfillment_status,omitempty"` // "fulfilled" or omitted
	Note              string          `json:"note,omitempty"`
	NoteAttributes    []NoteAttribute `json:"note_attributes"` // always carries the source sale ID
	Tags              string          `json:"tags,omitempty"`
}

// OrderCustomer links an order to an existing destination customer.
type OrderCustomer struct {
	ID int64 `json:"id"`
}

// OrderLineItem is one line on an order. VariantID may be zero: the platform
// accepts custom line items with only a title and price.
type OrderLineItem struct {
	VariantID int64  `json:"variant_id,omitempty"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
}

// ShippingLine is the delivery fee as its own line.
type ShippingLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

// NoteAttribute is a key-value annotation on an order.
type NoteAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CreatedProduct is the identifying slice of a create-product response.
type CreatedProduct struct {
	ID       int64            `json:"id"`
	Variants []CreatedVariant `json:"variants"`
}

// CreatedVariant carries the destination IDs assigned to a new variant.
type CreatedVariant struct {
	ID              int64 `json:"id"`
	InventoryItemID int64 `json:"inventory_item_id"`
}

// Location is a destination warehouse/shop location.
type Location struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}
