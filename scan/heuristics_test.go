package scan

import (
	"strings"
	"testing"
	"time"
)

func testConfig(t *testing.T) *RuleConfig {
	t.Helper()
	cfg := &RuleConfig{
		ValidTLDs:                []string{".com", ".org"},
		SuspiciousKeywords:       []string{"verify your account"},
		SuspiciousPatterns:       []string{`\.tk(/|$)`},
		DomainAgeThresholdMonths: 6,
		ExternalLinkThreshold:    2,
		WhitelistDomains:         []string{"example.com", "wikipedia.org"},
		Weights:                  DefaultScoringWeights(),
	}
	if err := cfg.compile(); err != nil {
		t.Fatalf("compile config: %v", err)
	}
	return cfg
}

func mustTarget(t *testing.T, rawURL string) *ScanTarget {
	t.Helper()
	target, err := ParseTarget(rawURL, false)
	if err != nil {
		t.Fatalf("ParseTarget(%q): %v", rawURL, err)
	}
	return target
}

func TestCheckTLD(t *testing.T) {
	cfg := testConfig(t)

	findings := CheckTLD(mustTarget(t, "http://phishy-bank.tk/login"), cfg)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Penalty != cfg.Weights.SuspiciousTLD {
		t.Errorf("penalty = %d, want %d", findings[0].Penalty, cfg.Weights.SuspiciousTLD)
	}
	if !strings.Contains(findings[0].Reason, "phishy-bank.tk") {
		t.Errorf("reason should name the domain, got %q", findings[0].Reason)
	}

	if findings := CheckTLD(mustTarget(t, "https://shop.example.com"), cfg); len(findings) != 0 {
		t.Errorf("valid TLD should not fire, got %v", findings)
	}
}

func TestCheckKeywords(t *testing.T) {
	cfg := testConfig(t)

	findings := CheckKeywords("<p>Please VERIFY YOUR ACCOUNT now</p>", cfg)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if !strings.Contains(findings[0].Reason, "verify your account") {
		t.Errorf("reason should name the keyword, got %q", findings[0].Reason)
	}

	if findings := CheckKeywords("<p>nothing to see</p>", cfg); len(findings) != 0 {
		t.Errorf("no keyword present, got %v", findings)
	}
}

func TestCheckKeywordsEmptyConfigNeverFires(t *testing.T) {
	cfg := testConfig(t)
	cfg.SuspiciousKeywords = nil

	if findings := CheckKeywords("verify your account verify your account", cfg); len(findings) != 0 {
		t.Errorf("empty keyword list must never fire, got %v", findings)
	}
}

func TestCheckPatterns(t *testing.T) {
	cfg := testConfig(t)

	findings := CheckPatterns(mustTarget(t, "http://phishy-bank.tk/login"), cfg)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}

	if findings := CheckPatterns(mustTarget(t, "https://example.com"), cfg); len(findings) != 0 {
		t.Errorf("no pattern should match, got %v", findings)
	}
}

func TestCheckPatternsEmptyConfigNeverFires(t *testing.T) {
	cfg := testConfig(t)
	cfg.SuspiciousPatterns = nil
	if err := cfg.compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}

	if findings := CheckPatterns(mustTarget(t, "http://phishy-bank.tk/login"), cfg); len(findings) != 0 {
		t.Errorf("empty pattern list must never fire, got %v", findings)
	}
}

func TestCheckTransport(t *testing.T) {
	cfg := testConfig(t)

	if findings := CheckTransport(mustTarget(t, "http://example.com"), cfg); len(findings) != 1 {
		t.Errorf("http should fire, got %v", findings)
	}
	if findings := CheckTransport(mustTarget(t, "https://example.com"), cfg); len(findings) != 0 {
		t.Errorf("https should not fire, got %v", findings)
	}
}

func TestCheckDomainAge(t *testing.T) {
	cfg := testConfig(t)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	young := WhoisFact{Created: now.AddDate(0, -2, 0)}
	findings := CheckDomainAge(young, cfg, now)
	if len(findings) != 1 {
		t.Fatalf("young domain should fire, got %d findings", len(findings))
	}
	if !strings.Contains(findings[0].Reason, "6 months") {
		t.Errorf("reason should name the threshold, got %q", findings[0].Reason)
	}
	if !strings.Contains(findings[0].Reason, young.Created.Format("2006-01-02")) {
		t.Errorf("reason should name the registration date, got %q", findings[0].Reason)
	}

	old := WhoisFact{Created: now.AddDate(-3, 0, 0)}
	if findings := CheckDomainAge(old, cfg, now); len(findings) != 0 {
		t.Errorf("old domain should not fire, got %v", findings)
	}
}

func TestCheckDomainAgeUnknownDateNeverFires(t *testing.T) {
	cfg := testConfig(t)
	if findings := CheckDomainAge(WhoisFact{}, cfg, time.Now()); len(findings) != 0 {
		t.Errorf("unknown creation date must never fire, got %v", findings)
	}
}

func TestCheckExternalLinks(t *testing.T) {
	cfg := testConfig(t) // threshold 2
	target := mustTarget(t, "https://good.com/page")

	htmlText := `<html><body>
		<a href="https://evil1.net/a">x</a>
		<a href="https://evil2.net/b">x</a>
		<a href="https://evil3.net/c">x</a>
		<a href="/local">x</a>
	</body></html>`
	doc := ParseDocument(htmlText)

	findings := CheckExternalLinks(doc, target, cfg)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if !strings.Contains(findings[0].Reason, "3 external links") {
		t.Errorf("reason should carry the count, got %q", findings[0].Reason)
	}
	if findings[0].Penalty != cfg.Weights.ExternalLinks {
		t.Errorf("penalty = %d, want fixed %d", findings[0].Penalty, cfg.Weights.ExternalLinks)
	}
}

func TestCheckExternalLinksAtThresholdDoesNotFire(t *testing.T) {
	cfg := testConfig(t) // threshold 2
	target := mustTarget(t, "https://good.com/page")

	doc := ParseDocument(`<html><body>
		<a href="https://evil1.net/a">x</a>
		<a href="https://evil2.net/b">x</a>
	</body></html>`)

	if findings := CheckExternalLinks(doc, target, cfg); len(findings) != 0 {
		t.Errorf("count equal to threshold must not fire, got %v", findings)
	}
}

func TestCheckExternalLinksPerLinkPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Weights.ExternalLinksPerLink = true
	target := mustTarget(t, "https://good.com/page")

	doc := ParseDocument(`<html><body>
		<a href="https://evil1.net/a">x</a>
		<a href="https://evil2.net/b">x</a>
		<a href="https://evil3.net/c">x</a>
	</body></html>`)

	findings := CheckExternalLinks(doc, target, cfg)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	want := cfg.Weights.ExternalLinks * 3
	if findings[0].Penalty != want {
		t.Errorf("penalty = %d, want scaled %d", findings[0].Penalty, want)
	}
}
