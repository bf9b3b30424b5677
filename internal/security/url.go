// Package security provides URL validation for the web retrieval pipeline.
//
// The validator blocks requests to private networks, cloud metadata
// endpoints, and other dangerous targets (SSRF). NormalizeURL additionally
// constrains crawl traversal to same-domain HTML pages.
package security

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// skipExtensions lists path suffixes that identify binary or asset URLs
// which never yield readable text.
var skipExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".pdf", ".zip",
	".css", ".js", ".svg", ".webp", ".ico", ".mp4", ".mp3",
}

// URL validates URLs before fetching.
type URL struct {
	allowedSchemes map[string]struct{}
	blockedHosts   map[string]struct{}
}

// NewURL creates a URL validator with default security settings.
func NewURL() *URL {
	return &URL{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
	}
}

// Validate checks if a URL is safe to fetch. Returns an error if the URL
// targets a private network or a blocked host.
func (v *URL) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty hostname")
	}

	return v.validateHost(host)
}

func (v *URL) validateHost(host string) error {
	if _, blocked := v.blockedHosts[strings.ToLower(host)]; blocked {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		return checkIP(ip)
	}

	return nil
}

// checkIP validates that an IP address is not in a blocked range.
func checkIP(ip net.IP) error {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	switch {
	case ip.IsLoopback():
		return fmt.Errorf("loopback address not allowed: %s", ip)
	case ip.IsPrivate():
		return fmt.Errorf("private IP not allowed: %s", ip)
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		// Covers the cloud metadata endpoint 169.254.169.254.
		return fmt.Errorf("link-local address not allowed: %s", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("unspecified address not allowed: %s", ip)
	}

	return nil
}

// NormalizeURL validates a discovered link against the crawl domain and
// returns it stripped of query string and fragment. The domain is a bare
// hostname without port, matching what colly's AllowedDomains compares
// against. It returns ("", false) when the link must not be followed:
// non-HTTP scheme, different host, or a path ending in a known
// binary/asset extension.
func NormalizeURL(rawURL, domain string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if u.Hostname() != domain {
		return "", false
	}

	path := strings.ToLower(u.Path)
	for _, ext := range skipExtensions {
		if strings.HasSuffix(path, ext) {
			return "", false
		}
	}

	return scheme + "://" + u.Host + u.Path, true
}
