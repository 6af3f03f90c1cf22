package scan

// ScoringWeights defines configurable penalty weights for every check.
// Defaults mirror the canonical rule set; operators can override any of them
// in rules.json under "weights".
type ScoringWeights struct {
	SuspiciousTLD     int `mapstructure:"suspicious_tld" json:"suspicious_tld"`
	KeywordPerMatch   int `mapstructure:"keyword_per_match" json:"keyword_per_match"`
	PatternPerMatch   int `mapstructure:"pattern_per_match" json:"pattern_per_match"`
	InsecureTransport int `mapstructure:"insecure_transport" json:"insecure_transport"`
	DomainTooNew      int `mapstructure:"domain_too_new" json:"domain_too_new"`
	ExternalLinks     int `mapstructure:"external_links" json:"external_links"`

	FormCrossDomain   int `mapstructure:"form_cross_domain" json:"form_cross_domain"`
	FormInsecure      int `mapstructure:"form_insecure" json:"form_insecure"`
	HiddenInputs      int `mapstructure:"hidden_inputs" json:"hidden_inputs"`
	MetaRefresh       int `mapstructure:"meta_refresh" json:"meta_refresh"`
	ExternalIframe    int `mapstructure:"external_iframe" json:"external_iframe"`
	FullPageIframe    int `mapstructure:"full_page_iframe" json:"full_page_iframe"`
	InvisibleElements int `mapstructure:"invisible_elements" json:"invisible_elements"`
	ObfuscatedScript  int `mapstructure:"obfuscated_script" json:"obfuscated_script"`
	BaitAnchor        int `mapstructure:"bait_anchor" json:"bait_anchor"`

	// Policy switches: when true the external-link and bait-anchor checks
	// scale with match count instead of firing once.
	ExternalLinksPerLink bool `mapstructure:"external_links_per_link" json:"external_links_per_link"`
	BaitAnchorPerMatch   bool `mapstructure:"bait_anchor_per_match" json:"bait_anchor_per_match"`

	// VerdictThreshold is the single cut-off below which a score is
	// classified suspicious.
	VerdictThreshold int `mapstructure:"verdict_threshold" json:"verdict_threshold"`
}

// DefaultScoringWeights returns the canonical weight set.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		SuspiciousTLD:     30,
		KeywordPerMatch:   10,
		PatternPerMatch:   10,
		InsecureTransport: 10,
		DomainTooNew:      10,
		ExternalLinks:     10,

		FormCrossDomain:   20,
		FormInsecure:      10,
		HiddenInputs:      10,
		MetaRefresh:       10,
		ExternalIframe:    10,
		FullPageIframe:    20,
		InvisibleElements: 10,
		ObfuscatedScript:  15,
		BaitAnchor:        10,

		VerdictThreshold: 70,
	}
}
