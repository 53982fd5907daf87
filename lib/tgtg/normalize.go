package tgtg

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"
)

// Item is the flattened output record for one listing. The optional
// fields (Rating, prices, pickup times) collapse to an empty string when
// absent from the payload, when the listing is sold out, or when they
// fail to parse.
type Item struct {
	ItemID         string `json:"item_id"`
	StoreName      string `json:"store_name"`
	CoverPicture   string `json:"cover_picture"`
	LogoPicture    string `json:"logo_picture"`
	Category       string `json:"category"`
	Address        string `json:"address"`
	Description    string `json:"description"`
	ItemsAvailable int    `json:"items_available"`
	Rating         string `json:"rating"`
	PriceAfter     string `json:"price_after"`
	PriceBefore    string `json:"price_before"`
	PickupStart    string `json:"pickup_start"`
	PickupEnd      string `json:"pickup_end"`
}

// Price is the API's money shape, an integer amount in minor units plus
// a decimal shift and a currency code.
type Price struct {
	Code       string `json:"code"`
	MinorUnits int64  `json:"minor_units"`
	Decimals   int    `json:"decimals"`
}

type picture struct {
	CurrentURL string `json:"current_url"`
}

type rawRating struct {
	AverageOverallRating *float64 `json:"average_overall_rating"`
}

type rawInterval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// required fields are pointer-typed so a listing that omits one is
// distinguishable from one that carries a zero value. In particular a
// missing items_available must not pass for a sold out listing.
type rawItem struct {
	ItemID               string     `json:"item_id"`
	CoverPicture         *picture   `json:"cover_picture"`
	LogoPicture          *picture   `json:"logo_picture"`
	ItemCategory         *string    `json:"item_category"`
	Description          *string    `json:"description"`
	AverageOverallRating *rawRating `json:"average_overall_rating"`
	ItemPrice            *Price     `json:"item_price"`
	ItemValue            *Price     `json:"item_value"`
}

type rawStore struct {
	StoreName     string `json:"store_name"`
	StoreLocation struct {
		Address struct {
			AddressLine *string `json:"address_line"`
		} `json:"address"`
	} `json:"store_location"`
}

type rawListing struct {
	Item           rawItem      `json:"item"`
	Store          rawStore     `json:"store"`
	ItemsAvailable *int         `json:"items_available"`
	PickupInterval *rawInterval `json:"pickup_interval"`
}

// optional field states. absent and failed both render as the empty
// string at the boundary (the shape downstream consumers expect), the
// distinction only survives internally for logs and tests.
type fieldState int

const (
	fieldAbsent fieldState = iota
	fieldPresent
	fieldFailed
)

type optional struct {
	state fieldState
	value string
}

func present(value string) optional { return optional{state: fieldPresent, value: value} }

func (o optional) render() string {
	if o.state == fieldPresent {
		return o.value
	}
	return ""
}

// normalizeItems flattens the raw search payload element by element. A
// listing whose required fields are broken is dropped with a warning, a
// broken optional field only blanks itself.
func normalizeItems(ctx context.Context, raw []json.RawMessage) []Item {
	items := make([]Item, 0, len(raw))
	for i, element := range raw {
		item, err := normalizeItem(ctx, element)
		if err != nil {
			slog.WarnContext(ctx, "dropping unparseable listing", "index", i, "err", err)
			continue
		}
		items = append(items, item)
	}
	return items
}

func normalizeItem(ctx context.Context, element []byte) (Item, error) {
	var listing rawListing
	err := json.Unmarshal(element, &listing)
	if err != nil {
		return Item{}, err
	}
	return normalizeListing(ctx, listing)
}

func normalizeListing(ctx context.Context, listing rawListing) (Item, error) {
	if listing.Item.ItemID == "" {
		return Item{}, fmt.Errorf("listing has no item_id")
	}
	if listing.Store.StoreName == "" {
		return Item{}, fmt.Errorf("listing %s has no store_name", listing.Item.ItemID)
	}
	if listing.Item.CoverPicture == nil || listing.Item.LogoPicture == nil {
		return Item{}, fmt.Errorf("listing %s has no pictures", listing.Item.ItemID)
	}
	if listing.Item.ItemCategory == nil {
		return Item{}, fmt.Errorf("listing %s has no item_category", listing.Item.ItemID)
	}
	if listing.Item.Description == nil {
		return Item{}, fmt.Errorf("listing %s has no description", listing.Item.ItemID)
	}
	if listing.Store.StoreLocation.Address.AddressLine == nil {
		return Item{}, fmt.Errorf("listing %s has no address", listing.Item.ItemID)
	}
	if listing.ItemsAvailable == nil {
		return Item{}, fmt.Errorf("listing %s has no items_available", listing.Item.ItemID)
	}

	item := Item{
		ItemID:         listing.Item.ItemID,
		StoreName:      listing.Store.StoreName,
		CoverPicture:   listing.Item.CoverPicture.CurrentURL,
		LogoPicture:    listing.Item.LogoPicture.CurrentURL,
		Category:       *listing.Item.ItemCategory,
		Address:        *listing.Store.StoreLocation.Address.AddressLine,
		Description:    *listing.Item.Description,
		ItemsAvailable: *listing.ItemsAvailable,
		Rating:         normalizeRating(listing.Item.AverageOverallRating).render(),
	}

	// sold out listings never carry price or pickup info
	if item.ItemsAvailable == 0 {
		return item, nil
	}

	item.PriceAfter = normalizePrice(ctx, item.ItemID, "price_after", listing.Item.ItemPrice).render()
	item.PriceBefore = normalizePrice(ctx, item.ItemID, "price_before", listing.Item.ItemValue).render()

	start, end := normalizePickup(ctx, item.ItemID, listing.PickupInterval)
	item.PickupStart = start.render()
	item.PickupEnd = end.render()

	return item, nil
}

func normalizeRating(rating *rawRating) optional {
	if rating == nil || rating.AverageOverallRating == nil {
		return optional{state: fieldAbsent}
	}
	return present(FormatRating(*rating.AverageOverallRating))
}

// FormatRating rounds half-up to two decimal places.
func FormatRating(rating float64) string {
	rounded := math.Floor(rating*100+0.5) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func normalizePrice(ctx context.Context, itemID, field string, price *Price) optional {
	if price == nil {
		slog.WarnContext(ctx, "listing lacks a price", "item_id", itemID, "field", field)
		return optional{state: fieldAbsent}
	}
	rendered, err := FormatPrice(*price)
	if err != nil {
		slog.WarnContext(ctx, "error during formatting price", "item_id", itemID, "field", field, "err", err)
		return optional{state: fieldFailed}
	}
	return present(rendered)
}

// FormatPrice renders a price as "<amount><currency code>" with two
// decimal places and a locale-invariant decimal point, e.g. "10.50EUR".
func FormatPrice(price Price) (string, error) {
	if price.Decimals < 0 || price.Decimals > 10 {
		return "", fmt.Errorf("implausible decimal shift %d", price.Decimals)
	}
	if price.Code == "" {
		return "", fmt.Errorf("price has no currency code")
	}
	amount := float64(price.MinorUnits) / math.Pow10(price.Decimals)
	return fmt.Sprintf("%.2f%s", amount, price.Code), nil
}

// layout for pickup window bounds, rendered in UTC
const pickupLayout = "Mon 02 Jan 15:04"

func normalizePickup(ctx context.Context, itemID string, interval *rawInterval) (start, end optional) {
	if interval == nil {
		slog.WarnContext(ctx, "listing lacks a pickup interval", "item_id", itemID)
		return optional{state: fieldAbsent}, optional{state: fieldAbsent}
	}

	startTime, err := time.Parse(time.RFC3339, interval.Start)
	if err != nil {
		slog.WarnContext(ctx, "error during formatting pickup interval", "item_id", itemID, "err", err)
		return optional{state: fieldFailed}, optional{state: fieldFailed}
	}
	endTime, err := time.Parse(time.RFC3339, interval.End)
	if err != nil {
		slog.WarnContext(ctx, "error during formatting pickup interval", "item_id", itemID, "err", err)
		return optional{state: fieldFailed}, optional{state: fieldFailed}
	}

	return present(startTime.UTC().Format(pickupLayout)),
		present(endTime.UTC().Format(pickupLayout))
}
