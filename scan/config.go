package scan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// RuleConfig is the static rule set driving every heuristic check. It is
// loaded once at startup and never mutated afterwards, so it is safe to share
// across concurrent scans.
type RuleConfig struct {
	ValidTLDs                []string `mapstructure:"validTLDs" json:"validTLDs"`
	SuspiciousKeywords       []string `mapstructure:"suspiciousKeywords" json:"suspiciousKeywords"`
	SuspiciousPatterns       []string `mapstructure:"suspiciousPatterns" json:"suspiciousPatterns"`
	DomainAgeThresholdMonths int      `mapstructure:"domainAgeThresholdMonths" json:"domainAgeThresholdMonths"`
	ExternalLinkThreshold    int      `mapstructure:"externalLinkThreshold" json:"externalLinkThreshold"`
	WhitelistDomains         []string `mapstructure:"whitelistDomains" json:"whitelistDomains"`

	Weights ScoringWeights `mapstructure:"weights" json:"weights"`

	patterns  []*regexp.Regexp
	whitelist map[string]struct{}
}

// LoadRuleConfig reads the rule file at path (rules.json next to the binary
// when path is empty), applies defaults and validates the result.
func LoadRuleConfig(path string) (*RuleConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rules")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	defaults := DefaultScoringWeights()
	v.SetDefault("domainAgeThresholdMonths", 6)
	v.SetDefault("externalLinkThreshold", 10)
	v.SetDefault("weights.suspicious_tld", defaults.SuspiciousTLD)
	v.SetDefault("weights.keyword_per_match", defaults.KeywordPerMatch)
	v.SetDefault("weights.pattern_per_match", defaults.PatternPerMatch)
	v.SetDefault("weights.insecure_transport", defaults.InsecureTransport)
	v.SetDefault("weights.domain_too_new", defaults.DomainTooNew)
	v.SetDefault("weights.external_links", defaults.ExternalLinks)
	v.SetDefault("weights.form_cross_domain", defaults.FormCrossDomain)
	v.SetDefault("weights.form_insecure", defaults.FormInsecure)
	v.SetDefault("weights.hidden_inputs", defaults.HiddenInputs)
	v.SetDefault("weights.meta_refresh", defaults.MetaRefresh)
	v.SetDefault("weights.external_iframe", defaults.ExternalIframe)
	v.SetDefault("weights.full_page_iframe", defaults.FullPageIframe)
	v.SetDefault("weights.invisible_elements", defaults.InvisibleElements)
	v.SetDefault("weights.obfuscated_script", defaults.ObfuscatedScript)
	v.SetDefault("weights.bait_anchor", defaults.BaitAnchor)
	v.SetDefault("weights.verdict_threshold", defaults.VerdictThreshold)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading rule config: %w", err)
	}

	var cfg RuleConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding rule config: %w", err)
	}

	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// compile validates the rule set and precompiles derived state. An empty TLD
// list would flag every domain, so it is rejected outright.
func (c *RuleConfig) compile() error {
	if len(c.ValidTLDs) == 0 {
		return fmt.Errorf("rule config: validTLDs must not be empty")
	}
	if c.DomainAgeThresholdMonths <= 0 {
		return fmt.Errorf("rule config: domainAgeThresholdMonths must be positive")
	}
	if c.ExternalLinkThreshold < 0 {
		return fmt.Errorf("rule config: externalLinkThreshold must not be negative")
	}
	if c.Weights.VerdictThreshold <= 0 || c.Weights.VerdictThreshold > 100 {
		return fmt.Errorf("rule config: weights.verdict_threshold must be in (0,100]")
	}

	c.patterns = make([]*regexp.Regexp, 0, len(c.SuspiciousPatterns))
	for _, p := range c.SuspiciousPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return fmt.Errorf("rule config: bad pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}

	c.whitelist = make(map[string]struct{}, len(c.WhitelistDomains))
	for _, d := range c.WhitelistDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		d = strings.TrimPrefix(d, "www.")
		if d != "" {
			c.whitelist[d] = struct{}{}
		}
	}
	return nil
}

// Whitelisted reports whether the normalized hostname is on the trusted list.
func (c *RuleConfig) Whitelisted(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	_, ok := c.whitelist[host]
	return ok
}

// Patterns returns the compiled case-insensitive suspicious URL patterns.
func (c *RuleConfig) Patterns() []*regexp.Regexp {
	return c.patterns
}
