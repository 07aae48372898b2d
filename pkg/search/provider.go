package search

import "context"

// Result is a single web search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Provider is a pluggable web search backend.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Deduplicate drops results whose URL was already seen, preserving order.
func Deduplicate(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := results[:0:0]
	for _, r := range results {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		out = append(out, r)
	}
	return out
}
