package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type TavilyProvider struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// Ensure TavilyProvider implements Provider
var _ Provider = &TavilyProvider{}

func NewTavilyProvider(apiKey string) *TavilyProvider {
	return &TavilyProvider{
		APIKey:  apiKey,
		BaseURL: "https://api.tavily.com",
		Client: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

type tavilySearchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type tavilySearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *TavilyProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	reqPayload := tavilySearchRequest{
		APIKey:      t.APIKey,
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	}
	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := t.BaseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var tavilyResp tavilySearchResponse
	if err := json.Unmarshal(bodyBytes, &tavilyResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]Result, 0, len(tavilyResp.Results))
	for _, r := range tavilyResp.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return Deduplicate(results), nil
}
