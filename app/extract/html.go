package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/platevue/venue-comb/app/provider"
)

var priceTextRegex = regexp.MustCompile(`(\d+)(?:[.,](\d{1,2}))?`)

// parseMenuHTML handles the provider variant that returns a rendered menu
// page instead of JSON. Expected markup: repeated ".menu-item" nodes with
// ".name", ".price" and optional ".description" children.
func parseMenuHTML(blob []byte) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(blob))
	if err != nil {
		return nil, provider.NewError(provider.KindMalformed, "extract.html",
			fmt.Errorf("failed to parse menu page: %w", err))
	}

	var items []Item
	var parseErr error

	doc.Find(".menu-item").EachWithBreak(func(i int, s *goquery.Selection) bool {
		name := strings.TrimSpace(s.Find(".name").First().Text())
		if name == "" {
			parseErr = provider.NewError(provider.KindMalformed, "extract.html",
				fmt.Errorf("menu item %d has no name", i))
			return false
		}

		priceMinor, err := parsePriceText(s.Find(".price").First().Text())
		if err != nil {
			parseErr = provider.NewError(provider.KindMalformed, "extract.html",
				fmt.Errorf("menu item %q: %w", name, err))
			return false
		}

		item := Item{
			Kind:        KindMenu,
			Name:        name,
			Description: strings.TrimSpace(s.Find(".description").First().Text()),
			PriceMinor:  priceMinor,
			Currency:    "EUR",
			Category:    strings.TrimSpace(s.Find(".category").First().Text()),
		}

		if src, ok := s.Find("img").First().Attr("src"); ok {
			item.ImageURL = src
		}

		items = append(items, item)
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}

	return items, nil
}

// parsePriceText extracts a decimal price from display text like "€9.50" or
// "12,00" and converts it to minor units.
func parsePriceText(text string) (int64, error) {
	match := priceTextRegex.FindStringSubmatch(text)
	if match == nil {
		return 0, fmt.Errorf("no price in %q", strings.TrimSpace(text))
	}

	whole, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q", text)
	}

	minor := whole * 100
	if match[2] != "" {
		frac := match[2]
		if len(frac) == 1 {
			frac += "0"
		}
		fracValue, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable price %q", text)
		}
		minor += fracValue
	}

	return minor, nil
}
