package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// maxPageContent caps the text extracted from a fetched page so prompts
// stay bounded.
const maxPageContent = 5000

// TextFetcher turns a page URL into plain text suitable for prompt
// context.
type TextFetcher interface {
	FetchText(ctx context.Context, pageURL string) (string, error)
}

// Fetcher retrieves a web page and reduces it to plain text for prompt
// context.
type Fetcher struct {
	Client *http.Client
}

var _ TextFetcher = &Fetcher{}

func NewFetcher() *Fetcher {
	return &Fetcher{
		Client: &http.Client{
			Timeout: 12 * time.Second,
		},
	}
}

var (
	scriptRe = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// FetchText downloads the page and strips scripts, styles and markup,
// returning at most maxPageContent characters of whitespace-collapsed text.
func (f *Fetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; trip-planner/1.0)")

	resp, err := f.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	// Read a bounded amount of HTML; text extraction truncates further.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return ExtractText(string(body)), nil
}

// ExtractText strips HTML down to readable text, truncated to the page
// content cap.
func ExtractText(html string) string {
	text := scriptRe.ReplaceAllString(html, " ")
	text = styleRe.ReplaceAllString(text, " ")
	text = tagRe.ReplaceAllString(text, " ")
	text = strings.NewReplacer("&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'").Replace(text)
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	if len(text) > maxPageContent {
		text = text[:maxPageContent]
	}
	return text
}
