package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ThreatVerdict is the reply from the external reputation collaborator. An
// unreachable or unconfigured collaborator collapses to "not flagged".
type ThreatVerdict struct {
	Flagged    bool
	ThreatType string
}

// ThreatListClient checks a URL against an external threat list.
type ThreatListClient interface {
	Query(ctx context.Context, rawURL string) (ThreatVerdict, error)
}

const safeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

// SafeBrowsingClient queries the Google Safe Browsing v4 threatMatches API.
type SafeBrowsingClient struct {
	APIKey     string
	HTTPClient *http.Client
	Log        logrus.FieldLogger
}

// NewSafeBrowsingClient returns a client with the standard per-call timeout.
// An empty API key is allowed; every query then errors and the pipeline
// fails open.
func NewSafeBrowsingClient(apiKey string, log logrus.FieldLogger) *SafeBrowsingClient {
	return &SafeBrowsingClient{
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 7 * time.Second},
		Log:        log,
	}
}

type threatMatchRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string          `json:"threatTypes"`
		PlatformTypes    []string          `json:"platformTypes"`
		ThreatEntryTypes []string          `json:"threatEntryTypes"`
		ThreatEntries    []map[string]string `json:"threatEntries"`
	} `json:"threatInfo"`
}

type threatMatchResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

// Query reports whether the URL is on the threat list.
func (c *SafeBrowsingClient) Query(ctx context.Context, rawURL string) (ThreatVerdict, error) {
	if c.APIKey == "" {
		return ThreatVerdict{}, fmt.Errorf("safe browsing: missing API key")
	}

	var reqBody threatMatchRequest
	reqBody.Client.ClientID = "suspicious-url-analyzer"
	reqBody.Client.ClientVersion = "1.0"
	reqBody.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE"}
	reqBody.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	reqBody.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	reqBody.ThreatInfo.ThreatEntries = []map[string]string{{"url": rawURL}}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return ThreatVerdict{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, safeBrowsingEndpoint+"?key="+c.APIKey, bytes.NewReader(payload))
	if err != nil {
		return ThreatVerdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ThreatVerdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ThreatVerdict{}, fmt.Errorf("safe browsing: %s", resp.Status)
	}

	var result threatMatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ThreatVerdict{}, err
	}

	if len(result.Matches) == 0 {
		return ThreatVerdict{}, nil
	}

	c.Log.WithFields(logrus.Fields{
		"url":         rawURL,
		"threat_type": result.Matches[0].ThreatType,
	}).Warn("URL flagged by Safe Browsing")

	return ThreatVerdict{Flagged: true, ThreatType: result.Matches[0].ThreatType}, nil
}
