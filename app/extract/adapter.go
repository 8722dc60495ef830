package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/platevue/venue-comb/app/provider"
)

// Adapter turns a matched candidate into a sequence of extracted items. It
// fetches the raw detail blob through the menu source provider and
// normalizes schema variants at this boundary; nothing downstream sees the
// provider's wire format.
type Adapter struct {
	menus     provider.MenuSourceProvider
	maxPhotos int
}

func NewAdapter(menus provider.MenuSourceProvider, maxPhotos int) *Adapter {
	if maxPhotos <= 0 {
		maxPhotos = 5
	}
	return &Adapter{menus: menus, maxPhotos: maxPhotos}
}

// Extract fetches menu lines for the matched record and appends its photo
// set. The maxPhotos cap applies to the combined photo count, whether a
// photo arrives inside the detail blob or as a candidate photo ref. A
// provider with no data for the venue yields an empty slice and no error;
// only fetch and decode failures are errors.
func (a *Adapter) Extract(ctx context.Context, matched provider.Candidate) ([]Item, error) {
	items := []Item{}
	photoCount := 0

	blob, err := a.menus.FetchDetail(ctx, matched.ExternalID)
	if err != nil {
		if provider.IsNotFound(err) {
			slog.Debug("No menu detail for venue", "external_id", matched.ExternalID)
		} else {
			return nil, fmt.Errorf("failed to fetch menu detail: %w", err)
		}
	} else {
		menuItems, err := a.parseBlob(blob)
		if err != nil {
			return nil, err
		}
		for _, item := range menuItems {
			if item.Kind == KindPhoto {
				if photoCount >= a.maxPhotos {
					continue
				}
				photoCount++
			}
			items = append(items, item)
		}
	}

	for _, ref := range matched.PhotoRefs {
		if photoCount >= a.maxPhotos {
			break
		}
		items = append(items, Item{Kind: KindPhoto, SourceURL: ref})
		photoCount++
	}

	for i := range items {
		items[i].Position = i
	}

	return items, nil
}

// parseBlob dispatches on the blob shape: JSON payloads and HTML menu pages
// are both seen in the wild.
func (a *Adapter) parseBlob(blob []byte) ([]Item, error) {
	trimmed := strings.TrimSpace(string(blob))
	if trimmed == "" {
		return nil, nil
	}

	switch {
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return parseMenuJSON([]byte(trimmed))
	case strings.HasPrefix(trimmed, "<"):
		return parseMenuHTML([]byte(trimmed))
	default:
		return nil, provider.NewError(provider.KindMalformed, "extract.parse",
			fmt.Errorf("unrecognized detail blob format"))
	}
}
