package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var _ MenuSourceProvider = (*MenuClient)(nil)

// MenuClient is an HTTP implementation of MenuSourceProvider. It returns the
// raw detail blob unparsed; schema normalization happens in the extract
// package so provider variations never leak downstream.
type MenuClient struct {
	client     *Client
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
}

func NewMenuClient(client *Client, baseURL, apiKey, userAgent string) *MenuClient {
	return &MenuClient{
		client:     client,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		userAgent:  userAgent,
	}
}

func (m *MenuClient) FetchDetail(ctx context.Context, externalID string) ([]byte, error) {
	var blob []byte
	err := m.client.Do(ctx, "menus.detail", func(ctx context.Context) error {
		data, err := m.get(ctx, "/v1/venues/"+url.PathEscape(externalID)+"/detail")
		if err != nil {
			return err
		}
		blob = data
		return nil
	})
	if err != nil {
		return nil, err
	}

	return blob, nil
}

func (m *MenuClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", m.baseURL+path, nil)
	if err != nil {
		return nil, NewError(KindMalformed, "menus.request", err)
	}

	req.Header.Set("User-Agent", m.userAgent)
	req.Header.Set("X-Api-Key", m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, NewError(KindTransient, "menus.request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		return nil, NewError(kind, "menus.request", fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindTransient, "menus.request", fmt.Errorf("failed to read response body: %w", err))
	}

	return body, nil
}
