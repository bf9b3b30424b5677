package websearch

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/kratt-ai/kratt/internal/config"
	"github.com/kratt-ai/kratt/internal/log"
	"github.com/kratt-ai/kratt/internal/security"
)

// minContentLength drops pages whose extracted text is too short to be
// worth grounding an answer on.
const minContentLength = 100

var collapseBlankLines = regexp.MustCompile(`\n{3,}`)

// urlValidator screens URLs before any request is made.
// *security.URL satisfies it.
type urlValidator interface {
	Validate(rawURL string) error
}

// Scraper fetches seed URLs and, when a seed's page budget allows, follows
// same-domain body links discovered on the way. It is safe for concurrent
// use; each fetch session builds its own collector.
type Scraper struct {
	maxPagesPerSite int
	parallelism     int
	delay           time.Duration
	timeout         time.Duration
	validator       urlValidator
	logger          log.Logger
}

// NewScraper creates a scraper from the configured fetch limits.
func NewScraper(cfg config.ScraperConfig, logger log.Logger) *Scraper {
	maxPages := cfg.MaxPagesPerSite
	if maxPages <= 0 {
		maxPages = 1
	}
	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Scraper{
		maxPagesPerSite: maxPages,
		parallelism:     parallelism,
		delay:           cfg.Delay(),
		timeout:         cfg.Timeout(),
		validator:       security.NewURL(),
		logger:          logger,
	}
}

// Fetch scrapes each seed URL and returns extracted readable text keyed by
// page URL. Per-seed traversal visits the landing page first, then
// discovered same-domain links, until the per-site page budget is met.
// Per-page failures are logged and skipped. Fetch stops early when ctx is
// cancelled, returning what it has so far.
func (s *Scraper) Fetch(ctx context.Context, seeds []string) map[string]string {
	results := make(map[string]string)
	for _, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		for u, text := range s.fetchSite(ctx, seed) {
			results[u] = text
		}
	}
	return results
}

// fetchSite traverses one seed's domain. Discovered links are queued at a
// lower priority than the seed itself, so the landing page is always
// extracted before any followed link.
func (s *Scraper) fetchSite(ctx context.Context, seed string) map[string]string {
	if err := s.validator.Validate(seed); err != nil {
		s.logger.Warn("skipping unsafe seed URL", "url", seed, "error", err)
		return nil
	}
	parsed, err := url.Parse(seed)
	if err != nil || parsed.Host == "" {
		s.logger.Warn("skipping unparseable seed URL", "url", seed)
		return nil
	}
	// colly matches AllowedDomains against Hostname(), never host:port.
	domain := parsed.Hostname()

	site := make(map[string]string)
	visited := map[string]bool{seed: true}
	var discovered []string

	c := colly.NewCollector(
		colly.AllowedDomains(domain),
		colly.UserAgent(userAgent),
	)
	c.SetRequestTimeout(s.timeout)
	if err := c.Limit(&colly.LimitRule{DomainGlob: "*", Delay: s.delay, Parallelism: s.parallelism}); err != nil {
		s.logger.Warn("applying fetch rate limit failed", "error", err)
	}

	c.OnResponse(func(r *colly.Response) {
		text := extractReadable(r.Body, r.Request.URL)
		if len(text) > minContentLength {
			site[r.Request.URL.String()] = text
		}
	})
	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		normalized, ok := security.NormalizeURL(link, domain)
		if !ok || visited[normalized] {
			return
		}
		if err := s.validator.Validate(normalized); err != nil {
			return
		}
		visited[normalized] = true
		discovered = append(discovered, normalized)
	})
	c.OnError(func(r *colly.Response, err error) {
		s.logger.Warn("page fetch failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := c.Visit(seed); err != nil {
		s.logger.Warn("page fetch failed", "url", seed, "error", err)
	}

	for i := 0; len(site) < s.maxPagesPerSite && i < len(discovered); i++ {
		if ctx.Err() != nil {
			break
		}
		if err := c.Visit(discovered[i]); err != nil {
			s.logger.Warn("page fetch failed", "url", discovered[i], "error", err)
		}
	}

	s.logger.Debug("site fetch completed", "seed", seed, "pages", len(site))
	return site
}

// extractReadable pulls article text out of an HTML page. Readability mode
// handles article-shaped pages; anything it cannot parse falls back to a
// flat text walk over the content elements.
func extractReadable(body []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		if text := tidyText(article.TextContent); len(text) > minContentLength {
			return text
		}
	}
	return fallbackExtract(body)
}

// fallbackExtract walks the common content elements of a page after
// stripping scripts and boilerplate containers.
func fallbackExtract(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, iframe, nav, header, footer").Remove()

	var blocks []string
	seen := make(map[string]bool)
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, td, th, blockquote, pre").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) < 10 || seen[text] {
			return
		}
		seen[text] = true
		blocks = append(blocks, text)
	})
	return tidyText(strings.Join(blocks, "\n"))
}

func tidyText(text string) string {
	text = collapseBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
