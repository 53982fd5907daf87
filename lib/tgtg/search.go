package tgtg

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// SearchOptions mirrors the item search endpoint's request body. Nil
// category lists are sent as empty arrays, the API rejects missing keys.
type SearchOptions struct {
	Latitude       float64
	Longitude      float64
	RadiusKm       int
	PageSize       int
	Page           int
	Discover       bool
	FavoritesOnly  bool
	ItemCategories []string
	DietCategories []string
	PickupEarliest string
	PickupLatest   string
	SearchPhrase   string
	WithStockOnly  bool
	HiddenOnly     bool
	WeCareOnly     bool
}

type searchOrigin struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchRequest struct {
	UserID         string       `json:"user_id"`
	Origin         searchOrigin `json:"origin"`
	Radius         int          `json:"radius"`
	PageSize       int          `json:"page_size"`
	Page           int          `json:"page"`
	Discover       bool         `json:"discover"`
	FavoritesOnly  bool         `json:"favorites_only"`
	ItemCategories []string     `json:"item_categories"`
	DietCategories []string     `json:"diet_categories"`
	PickupEarliest string       `json:"pickup_earliest"`
	PickupLatest   string       `json:"pickup_latest"`
	SearchPhrase   string       `json:"search_phrase"`
	WithStockOnly  bool         `json:"with_stock_only"`
	HiddenOnly     bool         `json:"hidden_only"`
	WeCareOnly     bool         `json:"we_care_only"`
}

type searchResponse struct {
	Items []json.RawMessage `json:"items"`
}

// Search runs an authenticated item search and returns the normalized
// listings in the order the API returned them.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]Item, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("latitude", opts.Latitude),
		attribute.Float64("longitude", opts.Longitude),
		attribute.Int("radius_km", opts.RadiusKm),
	)

	err := c.EnsureLogin(ctx)
	if err != nil {
		return nil, err
	}

	body := searchRequest{
		UserID:         c.Credentials().UserID,
		Origin:         searchOrigin{Latitude: opts.Latitude, Longitude: opts.Longitude},
		Radius:         opts.RadiusKm,
		PageSize:       opts.PageSize,
		Page:           opts.Page,
		Discover:       opts.Discover,
		FavoritesOnly:  opts.FavoritesOnly,
		ItemCategories: opts.ItemCategories,
		DietCategories: opts.DietCategories,
		PickupEarliest: opts.PickupEarliest,
		PickupLatest:   opts.PickupLatest,
		SearchPhrase:   opts.SearchPhrase,
		WithStockOnly:  opts.WithStockOnly,
		HiddenOnly:     opts.HiddenOnly,
		WeCareOnly:     opts.WeCareOnly,
	}
	if body.ItemCategories == nil {
		body.ItemCategories = []string{}
	}
	if body.DietCategories == nil {
		body.DietCategories = []string{}
	}

	c.mu.Lock()
	req := c.request(ctx)
	c.mu.Unlock()

	res, err := req.SetBody(body).Post(itemEndpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search request failed")
		return nil, err
	}
	if res.StatusCode() != http.StatusOK {
		return nil, statusError(ctx, "search", res.StatusCode())
	}

	var payload searchResponse
	err = json.Unmarshal(res.Body(), &payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to unmarshal search response")
		return nil, err
	}

	return normalizeItems(ctx, payload.Items), nil
}

// GetItem fetches a single listing by id. The payload goes through the
// same normalization as search results.
func (c *Client) GetItem(ctx context.Context, itemID string) (Item, error) {
	ctx, span := tracer.Start(ctx, "GetItem")
	defer span.End()
	span.SetAttributes(attribute.String("item_id", itemID))

	err := c.EnsureLogin(ctx)
	if err != nil {
		return Item{}, err
	}

	c.mu.Lock()
	req := c.request(ctx)
	c.mu.Unlock()

	res, err := req.
		SetBody(map[string]any{
			"user_id": c.Credentials().UserID,
			"origin":  nil,
		}).
		Post(itemEndpoint + itemID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "item request failed")
		return Item{}, err
	}
	if res.StatusCode() != http.StatusOK {
		return Item{}, statusError(ctx, "item", res.StatusCode())
	}

	return normalizeItem(ctx, res.Body())
}
