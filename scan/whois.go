package scan

import (
	"context"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	parser "github.com/likexian/whois-parser"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// WhoisFact is the best-effort registration fact for a domain. A zero Created
// time means the date is unknown and must never contribute a penalty.
type WhoisFact struct {
	Created time.Time
}

// Known reports whether a parsable creation date was found.
func (f WhoisFact) Known() bool {
	return !f.Created.IsZero()
}

// WhoisLookup resolves a hostname to its registration creation date.
type WhoisLookup interface {
	Lookup(ctx context.Context, hostname string) (WhoisFact, error)
}

// Registries publish creation dates in a handful of layouts; try them all.
var whoisDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// WhoisClient queries WHOIS for the registrable domain of a hostname.
type WhoisClient struct {
	Timeout time.Duration
	Log     logrus.FieldLogger
}

// NewWhoisClient returns a client with the standard per-call timeout.
func NewWhoisClient(log logrus.FieldLogger) *WhoisClient {
	return &WhoisClient{Timeout: 7 * time.Second, Log: log}
}

// Lookup runs the WHOIS query off-thread so the per-call timeout holds even
// when the upstream registry hangs. Subdomains are collapsed to their
// registrable domain first, since registries only answer for those.
func (c *WhoisClient) Lookup(ctx context.Context, hostname string) (WhoisFact, error) {
	domain := hostname
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(hostname); err == nil {
		domain = etld1
	}

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	type lookupResult struct {
		fact WhoisFact
		err  error
	}
	ch := make(chan lookupResult, 1)
	go func() {
		fact, err := c.query(domain)
		ch <- lookupResult{fact, err}
	}()

	select {
	case <-ctx.Done():
		c.Log.WithField("domain", domain).Warn("WHOIS lookup timed out")
		return WhoisFact{}, ctx.Err()
	case res := <-ch:
		return res.fact, res.err
	}
}

func (c *WhoisClient) query(domain string) (WhoisFact, error) {
	raw, err := whois.Whois(domain)
	if err != nil {
		return WhoisFact{}, err
	}

	info, err := parser.Parse(raw)
	if err != nil || info.Domain == nil {
		return WhoisFact{}, err
	}

	created := parseWhoisDate(info.Domain.CreatedDate)
	return WhoisFact{Created: created}, nil
}

func parseWhoisDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range whoisDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
