package scan

import (
	"fmt"
	"strings"
	"time"
)

// daysPerMonth is the 30-day month used for domain age arithmetic.
const daysPerMonth = 30

// CheckTLD flags hostnames that do not end in any configured valid TLD.
func CheckTLD(target *ScanTarget, cfg *RuleConfig) []Finding {
	for _, tld := range cfg.ValidTLDs {
		if strings.HasSuffix(target.Hostname, strings.ToLower(tld)) {
			return nil
		}
	}
	return []Finding{{
		Reason:  fmt.Sprintf("Suspicious TLD found in domain: %s", target.Hostname),
		Penalty: cfg.Weights.SuspiciousTLD,
	}}
}

// CheckKeywords reports every configured keyword present in the page,
// case-insensitively. Penalty scales with match count.
func CheckKeywords(htmlText string, cfg *RuleConfig) []Finding {
	lowered := strings.ToLower(htmlText)
	var findings []Finding
	for _, keyword := range cfg.SuspiciousKeywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			findings = append(findings, Finding{
				Reason:  fmt.Sprintf("Keyword found: '%s'", keyword),
				Penalty: cfg.Weights.KeywordPerMatch,
			})
		}
	}
	return findings
}

// CheckPatterns matches the raw URL against every configured pattern.
// Penalty scales with match count.
func CheckPatterns(target *ScanTarget, cfg *RuleConfig) []Finding {
	var findings []Finding
	for i, re := range cfg.Patterns() {
		if re.MatchString(target.Raw) {
			findings = append(findings, Finding{
				Reason:  fmt.Sprintf("Suspicious pattern matched: %s", cfg.SuspiciousPatterns[i]),
				Penalty: cfg.Weights.PatternPerMatch,
			})
		}
	}
	return findings
}

// CheckTransport flags URLs served over anything other than HTTPS.
func CheckTransport(target *ScanTarget, cfg *RuleConfig) []Finding {
	if target.Scheme == "https" {
		return nil
	}
	return []Finding{{
		Reason:  "SSL not present: connection is not secure (HTTP)",
		Penalty: cfg.Weights.InsecureTransport,
	}}
}

// CheckDomainAge flags freshly registered domains. An unknown or unparsable
// creation date never produces a finding: absence of evidence is not evidence
// of risk.
func CheckDomainAge(fact WhoisFact, cfg *RuleConfig, now time.Time) []Finding {
	if !fact.Known() {
		return nil
	}
	ageMonths := now.Sub(fact.Created).Hours() / (24 * daysPerMonth)
	if ageMonths >= float64(cfg.DomainAgeThresholdMonths) {
		return nil
	}
	return []Finding{{
		Reason: fmt.Sprintf("Domain age is less than %d months (registered on %s)",
			cfg.DomainAgeThresholdMonths, fact.Created.Format("2006-01-02")),
		Penalty: cfg.Weights.DomainTooNew,
	}}
}

// CheckExternalLinks counts anchors resolving to foreign hosts and fires once
// the configured threshold is exceeded. The per-link policy switch makes the
// penalty scale with the count instead.
func CheckExternalLinks(doc Document, target *ScanTarget, cfg *RuleConfig) []Finding {
	external := 0
	for _, anchor := range doc.Elements("a") {
		href := anchor.Attr("href")
		if href == "" {
			continue
		}
		resolved, ok := resolveRef(target.URL, href)
		if !ok {
			continue
		}
		if !strings.Contains(strings.ToLower(resolved.Hostname()), target.Hostname) {
			external++
		}
	}
	if external <= cfg.ExternalLinkThreshold {
		return nil
	}
	penalty := cfg.Weights.ExternalLinks
	if cfg.Weights.ExternalLinksPerLink {
		penalty = cfg.Weights.ExternalLinks * external
	}
	return []Finding{{
		Reason: fmt.Sprintf("Page contains %d external links, which may indicate suspicious redirection behavior.",
			external),
		Penalty: penalty,
	}}
}
