package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"PCHAT/relay/internal/db"
)

const DefaultSelector = "p"

// WebLoader fetches a page and keeps the text of every element matching a
// CSS selector, one element per line.
type WebLoader struct {
	client  *http.Client
	matcher cascadia.Selector
}

func NewWebLoader(client *http.Client, selector string) (*WebLoader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if selector == "" {
		selector = DefaultSelector
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return &WebLoader{client: client, matcher: matcher}, nil
}

func (l *WebLoader) Load(ctx context.Context, url string) (db.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return db.Document{}, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := l.client.Do(req)
	if err != nil {
		return db.Document{}, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return db.Document{}, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return db.Document{}, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	doc.Find("script, style").Remove()

	var parts []string
	doc.FindMatcher(l.matcher).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	return db.Document{
		PageContent: strings.Join(parts, "\n"),
		Metadata:    map[string]any{"source": url},
	}, nil
}
