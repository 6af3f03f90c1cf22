package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Analyzer runs the heuristic scoring pipeline for one URL at a time. All
// fields are read-only after construction, so a single Analyzer serves
// concurrent scans; every scan gets a fresh Result.
type Analyzer struct {
	Config  *RuleConfig
	Fetcher Fetcher
	Whois   WhoisLookup
	Threats ThreatListClient
	Cache   *ResultCache
	Log     logrus.FieldLogger

	// Now is the clock used by the domain-age check; overridable in tests.
	Now func() time.Time
}

// NewAnalyzer wires the default collaborators: HTTP page fetcher, WHOIS
// client, Safe Browsing client and the optional Redis result cache.
func NewAnalyzer(cfg *RuleConfig, safeBrowsingKey string, log logrus.FieldLogger) *Analyzer {
	return &Analyzer{
		Config:  cfg,
		Fetcher: NewPageFetcher(log),
		Whois:   NewWhoisClient(log),
		Threats: NewSafeBrowsingClient(safeBrowsingKey, log),
		Cache:   NewResultCacheFromEnv(log),
		Log:     log,
		Now:     time.Now,
	}
}

// Pipeline stage markers, surfaced to callers as the progress field.
const (
	progressWhitelisted = 5
	progressThreatGate  = 10
	progressFetched     = 15
	progressTLD         = 20
	progressKeywords    = 40
	progressPatterns    = 60
	progressTransport   = 70
	progressDomainAge   = 85
	progressLinks       = 90
	progressMarkup      = 95
	progressAnchors     = 98
)

// Analyze runs the full pipeline: whitelist short-circuit, optional
// threat-list gate, page fetch, heuristic checks, aggregation. The returned
// error is ErrInvalidURL for unusable input or ErrFetchFailed for an
// unrecovered transport failure; every other collaborator failure degrades to
// "no finding".
func (a *Analyzer) Analyze(ctx context.Context, rawURL string, deep bool) (*Result, error) {
	target, err := ParseTarget(rawURL, deep)
	if err != nil {
		return nil, err
	}

	log := a.Log.WithFields(logrus.Fields{"url": rawURL, "deep": deep})
	res := newResult()

	// Whitelist short-circuit runs before any network access.
	if a.Config.Whitelisted(target.Hostname) {
		res.advance(progressWhitelisted)
		res.Reasons = append(res.Reasons, "domain is on the trusted whitelist")
		res.finalize(a.Config.Weights.VerdictThreshold)
		log.Info("whitelisted domain, scan skipped")
		return res, nil
	}

	if cached := a.Cache.Get(ctx, target.Raw, deep); cached != nil {
		log.Debug("result served from cache")
		return cached, nil
	}

	// Threat-list gate: deep mode only, before the fetch. A positive match
	// is a hard override; an unreachable collaborator fails open.
	if deep {
		verdict, err := a.Threats.Query(ctx, target.Raw)
		if err != nil {
			log.WithError(err).Warn("threat list unavailable, continuing without it")
		}
		res.advance(progressThreatGate)
		if verdict.Flagged {
			reason := "URL is flagged by Google Safe Browsing"
			if verdict.ThreatType != "" {
				reason = fmt.Sprintf("URL is flagged by Google Safe Browsing (%s)", verdict.ThreatType)
			}
			res.Reasons = append(res.Reasons, reason)
			res.Score = 0
			res.Breakdown.ThreatList = startingScore
			res.finalize(a.Config.Weights.VerdictThreshold)
			a.Cache.Put(ctx, target.Raw, deep, res)
			return res, nil
		}
	}

	// Page fetch and WHOIS overlap; each keeps its own timeout. The
	// domain-age check only runs once both are done.
	var (
		htmlText string
		fact     WhoisFact
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := a.Fetcher.Fetch(gctx, target.Raw)
		if err != nil {
			return err
		}
		htmlText = text
		return nil
	})
	g.Go(func() error {
		f, err := a.Whois.Lookup(gctx, target.Hostname)
		if err != nil {
			// Unknown date, not a finding.
			log.WithError(err).Debug("WHOIS lookup failed")
			return nil
		}
		fact = f
		return nil
	})
	if err := g.Wait(); err != nil {
		// Findings accumulated before the fetch (deep mode) are reported
		// rather than discarded.
		if len(res.Reasons) > 0 {
			log.WithError(err).Warn("fetch failed, reporting pre-fetch findings")
			res.finalize(a.Config.Weights.VerdictThreshold)
			return res, nil
		}
		log.WithError(err).Warn("page fetch failed")
		return nil, err
	}
	res.advance(progressFetched)

	doc := ParseDocument(htmlText)

	res.apply(CheckTLD(target, a.Config), &res.Breakdown.SuspiciousTLD)
	res.advance(progressTLD)

	res.apply(CheckKeywords(htmlText, a.Config), &res.Breakdown.Keywords)
	res.advance(progressKeywords)

	res.apply(CheckPatterns(target, a.Config), &res.Breakdown.Patterns)
	res.advance(progressPatterns)

	res.apply(CheckTransport(target, a.Config), &res.Breakdown.InsecureTransport)
	res.advance(progressTransport)

	res.apply(CheckDomainAge(fact, a.Config, a.Now()), &res.Breakdown.DomainAge)
	res.advance(progressDomainAge)

	res.apply(CheckExternalLinks(doc, target, a.Config), &res.Breakdown.ExternalLinks)
	res.advance(progressLinks)

	res.apply(AnalyzeMarkup(doc, target, a.Config.Weights), &res.Breakdown.Markup)
	res.advance(progressMarkup)

	res.apply(DetectBaitAnchors(doc, a.Config.Weights), &res.Breakdown.BaitAnchors)
	res.advance(progressAnchors)

	res.finalize(a.Config.Weights.VerdictThreshold)
	log.WithFields(logrus.Fields{
		"score":   res.Score,
		"verdict": res.Verdict,
		"reasons": len(res.Reasons),
	}).Info("scan completed")

	a.Cache.Put(ctx, target.Raw, deep, res)
	return res, nil
}
