package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

type SerpAPIProvider struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// Ensure SerpAPIProvider implements Provider
var _ Provider = &SerpAPIProvider{}

func NewSerpAPIProvider(apiKey string) *SerpAPIProvider {
	return &SerpAPIProvider{
		APIKey:  apiKey,
		BaseURL: "https://serpapi.com",
		Client: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

func (s *SerpAPIProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(maxResults))
	params.Set("api_key", s.APIKey)

	reqURL := s.BaseURL + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var serpResp serpAPIResponse
	if err := json.Unmarshal(bodyBytes, &serpResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]Result, 0, len(serpResp.OrganicResults))
	for _, r := range serpResp.OrganicResults {
		results = append(results, Result{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return Deduplicate(results), nil
}
