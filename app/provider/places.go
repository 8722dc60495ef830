package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var _ PlaceSearchProvider = (*PlacesClient)(nil)

// PlacesClient is an HTTP implementation of PlaceSearchProvider. Every call
// goes through the shared rate-limited Client.
type PlacesClient struct {
	client     *Client
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
}

func NewPlacesClient(client *Client, baseURL, apiKey, userAgent string) *PlacesClient {
	return &PlacesClient{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		userAgent:  userAgent,
	}
}

type candidatePayload struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Rating      float64  `json:"rating"`
	ReviewCount int      `json:"review_count"`
	PhotoRefs   []string `json:"photo_refs"`
	Location    *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type searchPayload struct {
	Results []candidatePayload `json:"results"`
}

func (p *PlacesClient) Search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("query", query)

	var payload searchPayload
	err := p.client.Do(ctx, "places.search", func(ctx context.Context) error {
		return p.get(ctx, "/v1/places/search?"+params.Encode(), &payload)
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(payload.Results))
	for _, result := range payload.Results {
		candidates = append(candidates, result.toCandidate())
	}

	return candidates, nil
}

func (p *PlacesClient) Details(ctx context.Context, externalID string) (*Candidate, error) {
	var payload candidatePayload
	err := p.client.Do(ctx, "places.details", func(ctx context.Context) error {
		return p.get(ctx, "/v1/places/"+url.PathEscape(externalID), &payload)
	})
	if err != nil {
		return nil, err
	}

	candidate := payload.toCandidate()
	return &candidate, nil
}

func (p *PlacesClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path, nil)
	if err != nil {
		return NewError(KindMalformed, "places.request", err)
	}

	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return NewError(KindTransient, "places.request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		return NewError(kind, "places.request", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewError(KindTransient, "places.request", fmt.Errorf("failed to read response body: %w", err))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return NewError(KindMalformed, "places.request", fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

func (c candidatePayload) toCandidate() Candidate {
	candidate := Candidate{
		ExternalID:  c.ID,
		DisplayName: c.Name,
		Address:     c.Address,
		Phone:       c.Phone,
		Rating:      c.Rating,
		ReviewCount: c.ReviewCount,
		PhotoRefs:   c.PhotoRefs,
	}

	if c.Location != nil {
		candidate.Geo = &Geo{Lat: c.Location.Lat, Lng: c.Location.Lng}
	}

	return candidate
}
