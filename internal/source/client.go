package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/snakada/ecbridge/internal/apiclient"
	"github.com/snakada/ecbridge/internal/config"
	"github.com/snakada/ecbridge/internal/logging"
)

// Client reads from the source platform's REST API.
type Client struct {
	api      *apiclient.Client
	pageSize int
}

// NewClient creates a source API client from configuration.
func NewClient(cfg *config.Config) *Client {
	token := cfg.Source.AccessToken
	api := apiclient.New("source", cfg.Source.BaseURL, apiclient.Options{
		Interval:    cfg.SourceInterval(),
		MaxRetries:  cfg.Migration.MaxRetries,
		BackoffBase: cfg.RetryBackoff(),
		DryRun:      cfg.Migration.DryRun,
		SetAuth: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		},
	})
	return &Client{api: api, pageSize: cfg.Source.PageSize}
}

// salesPage is the source API's paginated sales response.
type salesPage struct {
	Sales []Sale `json:"sales"`
	Meta  struct {
		Total int `json:"total"`
	} `json:"meta"`
}

// FetchAllSales pages through the sales listing until the accumulated count
// reaches the advertised total. Pages are fetched strictly in sequence; page
// N+1 is not requested until page N's records are appended.
func (c *Client) FetchAllSales(ctx context.Context, startDate, endDate string) ([]Sale, error) {
	var all []Sale
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))
		if startDate != "" {
			q.Set("make_date_min", startDate)
		}
		if endDate != "" {
			q.Set("make_date_max", endDate)
		}

		resp, err := c.api.Get(ctx, "/sales?"+q.Encode())
		if err != nil {
			return nil, fmt.Errorf("listing sales at offset %d: %w", offset, err)
		}

		var page salesPage
		if err := resp.Decode(&page); err != nil {
			return nil, fmt.Errorf("listing sales at offset %d: %w", offset, err)
		}
		if len(page.Sales) == 0 {
			break
		}

		all = append(all, page.Sales...)
		offset = len(all)
		logging.Debug("fetched %d/%d sales", len(all), page.Meta.Total)

		if len(all) >= page.Meta.Total {
			break
		}
	}
	return all, nil
}
