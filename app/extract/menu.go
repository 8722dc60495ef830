package extract

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/platevue/venue-comb/app/provider"
)

type menuPayload struct {
	Currency string            `json:"currency"`
	Items    []menuItemPayload `json:"items"`
	Photos   []photoPayload    `json:"photos"`
}

// menuItemPayload covers both price schema variants: PriceMinor carries
// integer minor units, Price carries a decimal (number or string). Exactly
// one is expected per item.
type menuItemPayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	PriceMinor  *int64          `json:"price_minor"`
	Price       json.RawMessage `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"image_url"`
}

type photoPayload struct {
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Enhanced bool   `json:"enhanced"`
}

func parseMenuJSON(blob []byte) ([]Item, error) {
	var payload menuPayload
	if err := json.Unmarshal(blob, &payload); err != nil {
		return nil, provider.NewError(provider.KindMalformed, "extract.menu",
			fmt.Errorf("failed to decode menu payload: %w", err))
	}

	currency := payload.Currency
	if currency == "" {
		currency = "EUR"
	}

	items := make([]Item, 0, len(payload.Items)+len(payload.Photos))
	for i, entry := range payload.Items {
		if entry.Name == "" {
			return nil, provider.NewError(provider.KindMalformed, "extract.menu",
				fmt.Errorf("menu item %d has no name", i))
		}

		priceMinor, err := normalizePrice(entry)
		if err != nil {
			return nil, provider.NewError(provider.KindMalformed, "extract.menu",
				fmt.Errorf("menu item %q: %w", entry.Name, err))
		}

		items = append(items, Item{
			Kind:        KindMenu,
			Name:        entry.Name,
			Description: entry.Description,
			PriceMinor:  priceMinor,
			Currency:    currency,
			Category:    entry.Category,
			ImageURL:    entry.ImageURL,
		})
	}

	for _, photo := range payload.Photos {
		if photo.URL == "" {
			continue
		}
		items = append(items, Item{
			Kind:       KindPhoto,
			SourceURL:  photo.URL,
			Width:      photo.Width,
			Height:     photo.Height,
			IsEnhanced: photo.Enhanced,
		})
	}

	return items, nil
}

// normalizePrice converts either schema variant to minor units. Decimal
// inputs are rounded half away from zero to the nearest minor unit.
func normalizePrice(entry menuItemPayload) (int64, error) {
	if entry.PriceMinor != nil {
		if *entry.PriceMinor < 0 {
			return 0, fmt.Errorf("negative price %d", *entry.PriceMinor)
		}
		return *entry.PriceMinor, nil
	}

	if len(entry.Price) == 0 {
		return 0, fmt.Errorf("no price field")
	}

	raw := strings.Trim(strings.TrimSpace(string(entry.Price)), `"`)
	if raw == "" {
		return 0, fmt.Errorf("empty price value")
	}

	decimal, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q", raw)
	}
	if decimal < 0 {
		return 0, fmt.Errorf("negative price %s", raw)
	}

	return int64(math.Round(decimal * 100)), nil
}
