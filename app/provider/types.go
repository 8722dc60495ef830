package provider

import (
	"context"
)

// Candidate is a provider-returned venue record. Instances are created per
// API response and treated as immutable.
type Candidate struct {
	ExternalID  string
	DisplayName string
	Address     string
	Phone       string
	Rating      float64
	ReviewCount int
	PhotoRefs   []string
	Geo         *Geo
}

type Geo struct {
	Lat float64
	Lng float64
}

// PlaceSearchProvider resolves free-text queries to candidate venue records.
type PlaceSearchProvider interface {
	Search(ctx context.Context, query string) ([]Candidate, error)
	Details(ctx context.Context, externalID string) (*Candidate, error)
}

// MenuSourceProvider fetches the raw detail blob (menu or photo metadata)
// for a resolved venue. The blob schema is normalized by the extract package.
type MenuSourceProvider interface {
	FetchDetail(ctx context.Context, externalID string) ([]byte, error)
}
