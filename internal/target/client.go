package target

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/snakada/ecbridge/internal/apiclient"
	"github.com/snakada/ecbridge/internal/config"
)

// Client writes to the destination platform's admin API.
type Client struct {
	api *apiclient.Client
}

// NewClient creates a destination API client from configuration.
func NewClient(cfg *config.Config) *Client {
	token := cfg.Destination.AccessToken
	api := apiclient.New("destination", cfg.Destination.BaseURL, apiclient.Options{
		Interval:    cfg.DestinationInterval(),
		MaxRetries:  cfg.Migration.MaxRetries,
		BackoffBase: cfg.RetryBackoff(),
		DryRun:      cfg.Migration.DryRun,
		SetAuth: func(r *http.Request) {
			r.Header.Set("X-Shopify-Access-Token", token)
		},
		UsageHeader: "X-Shopify-Shop-Api-Call-Limit",
	})
	return &Client{api: api}
}

// CreateProduct creates a product and returns the assigned identifiers.
func (c *Client) CreateProduct(ctx context.Context, p *Product) (*CreatedProduct, error) {
	resp, err := c.api.Post(ctx, "/products.json", map[string]*Product{"product": p})
	if err != nil {
		return nil, fmt.Errorf("creating product %q: %w", p.Title, err)
	}
	var body struct {
		Product CreatedProduct `json:"product"`
	}
	if err := resp.Decode(&body); err != nil {
		return nil, err
	}
	return &body.Product, nil
}

// SetInventoryLevel sets the available quantity at a location.
func (c *Client) SetInventoryLevel(ctx context.Context, locationID, inventoryItemID, available int64) error {
	payload := map[string]int64{
		"location_id":       locationID,
		"inventory_item_id": inventoryItemID,
		"available":         available,
	}
	if _, err := c.api.Post(ctx, "/inventory_levels/set.json", payload); err != nil {
		return fmt.Errorf("setting inventory level for item %d: %w", inventoryItemID, err)
	}
	return nil
}

// SetInventoryCost sets the unit cost on an inventory item.
func (c *Client) SetInventoryCost(ctx context.Context, inventoryItemID int64, cost string) error {
	payload := map[string]any{
		"inventory_item": map[string]any{
			"id":   inventoryItemID,
			"cost": cost,
		},
	}
	path := fmt.Sprintf("/inventory_items/%d.json", inventoryItemID)
	if _, err := c.api.Put(ctx, path, payload); err != nil {
		return fmt.Errorf("setting cost for inventory item %d: %w", inventoryItemID, err)
	}
	return nil
}

// CreateCustomer creates a customer and returns its identifier.
func (c *Client) CreateCustomer(ctx context.Context, cu *Customer) (int64, error) {
	resp, err := c.api.Post(ctx, "/customers.json", map[string]*Customer{"customer": cu})
	if err != nil {
		return 0, err
	}
	var body struct {
		Customer struct {
			ID int64 `json:"id"`
		} `json:"customer"`
	}
	if err := resp.Decode(&body); err != nil {
		return 0, err
	}
	return body.Customer.ID, nil
}

// SearchCustomerByEmail looks up an existing customer by exact email.
// Returns (0, false, nil) when no customer matches.
func (c *Client) SearchCustomerByEmail(ctx context.Context, email string) (int64, bool, error) {
	q := url.Values{}
	q.Set("query", "email:"+email)
	resp, err := c.api.Get(ctx, "/customers/search.json?"+q.Encode())
	if err != nil {
		return 0, false, fmt.Errorf("searching customer by email: %w", err)
	}
	var body struct {
		Customers []struct {
			ID int64 `json:"id"`
		} `json:"customers"`
	}
	if err := resp.Decode(&body); err != nil {
		return 0, false, err
	}
	if len(body.Customers) == 0 {
		return 0, false, nil
	}
	return body.Customers[0].ID, true, nil
}

// PrimaryLocationID returns the first active location's identifier, used for
// inventory level writes. Fetched once per run and cached in the ID map.
func (c *Client) PrimaryLocationID(ctx context.Context) (int64, error) {
	resp, err := c.api.Get(ctx, "/locations.json")
	if err != nil {
		return 0, fmt.Errorf("listing locations: %w", err)
	}
	var body struct {
		Locations []Location `json:"locations"`
	}
	if err := resp.Decode(&body); err != nil {
		return 0, err
	}
	for _, loc := range body.Locations {
		if loc.Active {
			return loc.ID, nil
		}
	}
	if len(body.Locations) > 0 {
		return body.Locations[0].ID, nil
	}
	return 0, fmt.Errorf("destination has no locations")
}

// CreateOrder creates an order and returns its identifier.
func (c *Client) CreateOrder(ctx context.Context, o *Order) (int64, error) {
	resp, err := c.api.Post(ctx, "/orders.json", map[string]*Order{"order": o})
	if err != nil {
		return 0, err
	}
	var body struct {
		Order struct {
			ID int64 `json:"id"`
		} `json:"order"`
	}
	if err := resp.Decode(&body); err != nil {
		return 0, err
	}
	return body.Order.ID, nil
}
