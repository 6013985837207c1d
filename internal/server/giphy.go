// Package server talks to the Giphy random-GIF endpoint on behalf of the
// /gif command. The relay owns no lookup state; the collaborator either
// yields a URL or it does not.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const giphyRandomURL = "https://api.giphy.com/v1/gifs/random"

// GifLookup resolves a keyword to an image URL. An empty URL with a nil
// error means no result; callers treat errors identically to no result.
type GifLookup interface {
	Lookup(ctx context.Context, keyword string) (string, error)
}

// GiphyClient implements GifLookup against the Giphy API.
type GiphyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGiphyClient creates a GiphyClient with the given API key.
func NewGiphyClient(apiKey string) *GiphyClient {
	return &GiphyClient{
		apiKey:  apiKey,
		baseURL: giphyRandomURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type giphyResponse struct {
	Data struct {
		Images struct {
			DownsizedMedium struct {
				URL string `json:"url"`
			} `json:"downsized_medium"`
		} `json:"images"`
	} `json:"data"`
}

// Lookup fetches a random GIF tagged with keyword and returns its
// medium-sized rendition URL, or "" when Giphy has nothing for the tag.
func (g *GiphyClient) Lookup(ctx context.Context, keyword string) (string, error) {
	query := url.Values{}
	query.Set("api_key", g.apiKey)
	query.Set("tag", keyword)
	query.Set("rating", "g")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build giphy request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("giphy request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("giphy responded with status %d", resp.StatusCode)
	}

	var parsed giphyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode giphy response: %w", err)
	}

	return parsed.Data.Images.DownsizedMedium.URL, nil
}
