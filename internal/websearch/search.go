// Package websearch turns a conversational question into cleaned web page
// text: query rewriting, a public search provider, an LLM relevance filter,
// and a same-domain page scraper.
//
// Every stage degrades instead of failing. Search errors yield an empty
// result set, filter errors keep the candidate, and per-page scrape errors
// are logged and skipped. The orchestrator decides what an empty stage
// means; this package never propagates a network failure as a hard error.
package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kratt-ai/kratt/internal/log"
)

const (
	searchEndpoint = "https://html.duckduckgo.com/html/"
	searchTimeout  = 10 * time.Second

	// userAgent is sent on search and scrape requests. Some providers
	// refuse requests with an empty or default Go agent string.
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Result is one web search hit. Results live only long enough to decide
// which URLs to fetch; they are never stored in the transcript.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Searcher queries the DuckDuckGo HTML endpoint. It is safe for concurrent
// use.
type Searcher struct {
	client *http.Client
	logger log.Logger
}

// NewSearcher creates a searcher with a bounded request timeout.
func NewSearcher(logger log.Logger) *Searcher {
	return &Searcher{
		client: &http.Client{Timeout: searchTimeout},
		logger: logger,
	}
}

// Search returns up to maxResults hits for query. Any failure, from the
// request to the response parse, is logged and yields an empty slice.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) []Result {
	if strings.TrimSpace(query) == "" || maxResults <= 0 {
		return nil
	}

	reqURL := searchEndpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		s.logger.Warn("building search request failed", "error", err)
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("web search failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("web search returned non-OK status", "query", query, "status", resp.StatusCode)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.logger.Warn("parsing search response failed", "error", err)
		return nil
	}

	results := parseResults(doc, maxResults)
	s.logger.Debug("web search completed", "query", query, "results", len(results))
	return results
}

// parseResults extracts hits from the HTML results page. Entries without a
// resolvable target URL are dropped.
func parseResults(doc *goquery.Document, maxResults int) []Result {
	var results []Result
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		if target == "" {
			return true
		}
		results = append(results, Result{
			Title:   strings.TrimSpace(link.Text()),
			URL:     target,
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
		})
		return len(results) < maxResults
	})
	return results
}

// resolveRedirect unwraps the provider's click-tracking indirection. Hits
// arrive as //duckduckgo.com/l/?uddg=<encoded-target>; the real URL is in
// the uddg parameter. Plain URLs pass through unchanged.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u.String()
	}
	return ""
}

// formatResult renders a hit for relevance prompts.
func formatResult(r Result) string {
	return fmt.Sprintf("%s - %s", r.Title, r.Snippet)
}
