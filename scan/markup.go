package scan

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	metaRefreshRe    = regexp.MustCompile(`(?i)\d+\s*;\s*url\s*=\s*(.*)`)
	invisibleStyleRe = regexp.MustCompile(`(?i)opacity\s*:\s*0|display\s*:\s*none|visibility\s*:\s*hidden`)

	obfuscationMarkers = []string{"eval(", "atob(", "Function(", "setTimeout("}

	baitPhrases = []string{
		"download malware",
		"get free antivirus",
		"security patch",
		"system update",
	}
)

// AnalyzeMarkup runs the structural sub-checks over the parsed page. Each
// sub-check only appends findings; ordering between them never changes the
// total penalty.
func AnalyzeMarkup(doc Document, target *ScanTarget, w ScoringWeights) []Finding {
	var findings []Finding
	findings = append(findings, checkForms(doc, target, w)...)
	findings = append(findings, checkHiddenInputs(doc, w)...)
	findings = append(findings, checkMetaRefresh(doc, target, w)...)
	findings = append(findings, checkIframes(doc, target, w)...)
	findings = append(findings, checkInvisibleElements(doc, w)...)
	findings = append(findings, checkObfuscatedScripts(doc, w)...)
	return findings
}

// checkForms flags forms whose action resolves to a foreign host or posts
// over plain HTTP. Malformed action URLs are skipped.
func checkForms(doc Document, target *ScanTarget, w ScoringWeights) []Finding {
	var findings []Finding
	for _, form := range doc.Elements("form") {
		action := form.Attr("action")
		if action == "" {
			continue
		}
		resolved, ok := resolveRef(target.URL, action)
		if !ok {
			continue
		}
		if !strings.Contains(strings.ToLower(resolved.Hostname()), target.Hostname) {
			findings = append(findings, Finding{
				Reason:  fmt.Sprintf("Form posts to a different domain: %s", resolved.Hostname()),
				Penalty: w.FormCrossDomain,
			})
		}
		if resolved.Scheme != "https" {
			findings = append(findings, Finding{
				Reason:  fmt.Sprintf("Form posts over insecure connection: %s", resolved.String()),
				Penalty: w.FormInsecure,
			})
		}
	}
	return findings
}

func checkHiddenInputs(doc Document, w ScoringWeights) []Finding {
	count := 0
	for _, input := range doc.Elements("input") {
		if strings.EqualFold(input.Attr("type"), "hidden") {
			count++
		}
	}
	if count <= 5 {
		return nil
	}
	return []Finding{{
		Reason:  fmt.Sprintf("Page has %d hidden inputs, possibly suspicious.", count),
		Penalty: w.HiddenInputs,
	}}
}

// checkMetaRefresh inspects the first meta refresh directive. An unparsable
// content attribute has no effect.
func checkMetaRefresh(doc Document, target *ScanTarget, w ScoringWeights) []Finding {
	for _, meta := range doc.Elements("meta") {
		if !strings.EqualFold(meta.Attr("http-equiv"), "refresh") {
			continue
		}
		m := metaRefreshRe.FindStringSubmatch(meta.Attr("content"))
		if m == nil {
			return nil
		}
		resolved, ok := resolveRef(target.URL, m[1])
		if !ok {
			return nil
		}
		if !strings.Contains(strings.ToLower(resolved.Hostname()), target.Hostname) {
			return []Finding{{
				Reason:  fmt.Sprintf("Meta refresh redirects to another domain: %s", resolved.String()),
				Penalty: w.MetaRefresh,
			}}
		}
		return nil
	}
	return nil
}

func checkIframes(doc Document, target *ScanTarget, w ScoringWeights) []Finding {
	var findings []Finding
	iframes := doc.Elements("iframe")
	for _, iframe := range iframes {
		src := iframe.Attr("src")
		if src == "" {
			continue
		}
		resolved, ok := resolveRef(target.URL, src)
		if !ok {
			continue
		}
		if !strings.Contains(strings.ToLower(resolved.Hostname()), target.Hostname) {
			findings = append(findings, Finding{
				Reason:  fmt.Sprintf("Iframe embeds content from external domain: %s", resolved.Hostname()),
				Penalty: w.ExternalIframe,
			})
		}
	}

	// A body whose only child is an iframe is the classic full-page overlay.
	if len(iframes) > 0 {
		if body := doc.Body(); body != nil {
			children := body.ElementChildren()
			if len(children) == 1 && children[0].Tag() == "iframe" {
				findings = append(findings, Finding{
					Reason:  "Page is a full-screen iframe, which is often used in phishing.",
					Penalty: w.FullPageIframe,
				})
			}
		}
	}
	return findings
}

// checkInvisibleElements fires at most once no matter how many elements are
// hidden inline.
func checkInvisibleElements(doc Document, w ScoringWeights) []Finding {
	for _, el := range doc.Elements("*") {
		if invisibleStyleRe.MatchString(el.Attr("style")) {
			return []Finding{{
				Reason:  "Page contains hidden or invisible elements which may be used for clickjacking.",
				Penalty: w.InvisibleElements,
			}}
		}
	}
	return nil
}

func checkObfuscatedScripts(doc Document, w ScoringWeights) []Finding {
	var findings []Finding
	for _, script := range doc.Elements("script") {
		content := script.Text()
		for _, marker := range obfuscationMarkers {
			if strings.Contains(content, marker) {
				findings = append(findings, Finding{
					Reason:  "Page uses obfuscated or dynamic script functions like eval or atob.",
					Penalty: w.ObfuscatedScript,
				})
				break
			}
		}
	}
	return findings
}

// DetectBaitAnchors scans anchor text for phishing-bait phrases. The check is
// binary by default; the per-match policy switch makes it scale instead.
func DetectBaitAnchors(doc Document, w ScoringWeights) []Finding {
	matches := 0
	for _, anchor := range doc.Elements("a") {
		text := strings.ToLower(anchor.Text())
		for _, phrase := range baitPhrases {
			if strings.Contains(text, phrase) {
				matches++
				break
			}
		}
	}
	if matches == 0 {
		return nil
	}
	penalty := w.BaitAnchor
	if w.BaitAnchorPerMatch {
		penalty = w.BaitAnchor * matches
	}
	return []Finding{{
		Reason:  "Page contains anchor text with suspicious download or bait phrases.",
		Penalty: penalty,
	}}
}
