package scan

// Verdict is the final binary classification of a scanned URL.
type Verdict string

const (
	VerdictSafe       Verdict = "safe"
	VerdictSuspicious Verdict = "suspicious"
)

// Finding is a single (reason, penalty) pair produced by one check.
type Finding struct {
	Reason  string `json:"reason"`
	Penalty int    `json:"penalty"`
}

// PenaltyBreakdown shows which check groups were penalized and by how much.
type PenaltyBreakdown struct {
	SuspiciousTLD     int `json:"suspicious_tld,omitempty"`
	Keywords          int `json:"keywords,omitempty"`
	Patterns          int `json:"patterns,omitempty"`
	InsecureTransport int `json:"insecure_transport,omitempty"`
	DomainAge         int `json:"domain_age,omitempty"`
	ExternalLinks     int `json:"external_links,omitempty"`
	Markup            int `json:"markup,omitempty"`
	BaitAnchors       int `json:"bait_anchors,omitempty"`
	ThreatList        int `json:"threat_list,omitempty"`

	StartingScore  int `json:"starting_score"`
	TotalPenalties int `json:"total_penalties"`
	FinalScore     int `json:"final_score"`
}

// Result is the outcome of one scan. It is constructed fresh per request and
// never shared between scans.
type Result struct {
	Verdict   Verdict          `json:"verdict"`
	Progress  int              `json:"progress"`
	Score     int              `json:"score"`
	Reasons   []string         `json:"reasons"`
	Breakdown PenaltyBreakdown `json:"breakdown"`
}

func newResult() *Result {
	return &Result{
		Score:   startingScore,
		Reasons: []string{},
		Breakdown: PenaltyBreakdown{
			StartingScore: startingScore,
		},
	}
}

const startingScore = 100

// apply subtracts each finding's penalty from the running score and records
// the reason. Scores are clamped once at finalize, not here.
func (r *Result) apply(findings []Finding, bucket *int) {
	for _, f := range findings {
		r.Reasons = append(r.Reasons, f.Reason)
		r.Score -= f.Penalty
		if bucket != nil {
			*bucket += f.Penalty
		}
	}
}

// advance moves the progress marker forward. Progress never goes backwards.
func (r *Result) advance(progress int) {
	if progress > r.Progress {
		r.Progress = progress
	}
}

// finalize clamps the score, derives the verdict and completes the progress
// marker. verdictThreshold is the single configured cut-off.
func (r *Result) finalize(verdictThreshold int) {
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > 100 {
		r.Score = 100
	}
	r.Breakdown.TotalPenalties = startingScore - r.Score
	r.Breakdown.FinalScore = r.Score

	if r.Score < verdictThreshold {
		r.Verdict = VerdictSuspicious
	} else {
		r.Verdict = VerdictSafe
	}
	r.advance(100)
}
