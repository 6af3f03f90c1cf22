package scan

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ErrInvalidURL marks input the pipeline refuses to process at all.
var ErrInvalidURL = errors.New("invalid URL format")

// ScanTarget is the parsed per-request view of the URL under inspection.
type ScanTarget struct {
	Raw      string
	URL      *url.URL
	Hostname string
	Scheme   string
	Deep     bool
}

// ParseTarget validates and normalizes the raw URL. Hostnames are lowercased
// and converted to their ASCII (punycode) form so that lookalike IDN hosts
// compare consistently everywhere downstream.
func ParseTarget(rawURL string, deep bool) (*ScanTarget, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrInvalidURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" || parsed.Scheme == "" {
		return nil, ErrInvalidURL
	}

	host := strings.ToLower(parsed.Hostname())
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		host = ascii
	}

	return &ScanTarget{
		Raw:      rawURL,
		URL:      parsed,
		Hostname: host,
		Scheme:   strings.ToLower(parsed.Scheme),
		Deep:     deep,
	}, nil
}

// NormalizedHost strips a leading www. label, the form used for whitelist
// membership.
func (t *ScanTarget) NormalizedHost() string {
	return strings.TrimPrefix(t.Hostname, "www.")
}

// resolveRef resolves a possibly-relative reference against the page URL and
// returns it only when it has a usable host.
func resolveRef(page *url.URL, ref string) (*url.URL, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, false
	}
	resolved := page.ResolveReference(parsed)
	if resolved.Hostname() == "" {
		return nil, false
	}
	return resolved, true
}
