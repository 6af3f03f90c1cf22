package scan

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func testRouter(t *testing.T, fetcher *fakeFetcher, threats *fakeThreats) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a := testAnalyzer(t, fetcher, &fakeWhois{}, threats)
	handler := NewAnalyzeHandler(a, testLogger())

	router := gin.New()
	router.POST("/analyze", handler.Analyze)
	router.GET("/healthz", handler.Health)
	return router
}

func postAnalyze(router *gin.Engine, query, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/analyze"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpointSuccess(t *testing.T) {
	router := testRouter(t, &fakeFetcher{html: "<html><body>ok</body></html>"}, &fakeThreats{})

	rec := postAnalyze(router, "", `{"url":"https://fine.com/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if res.Verdict != VerdictSafe || res.Progress != 100 || res.Score != 100 {
		t.Errorf("got %+v, want safe/100/100", res)
	}
	if res.Reasons == nil {
		t.Errorf("reasons must serialize as an array, not null")
	}
}

func TestAnalyzeEndpointInvalidURL(t *testing.T) {
	router := testRouter(t, &fakeFetcher{}, &fakeThreats{})

	for _, body := range []string{`{"url":"notaurl"}`, `{"url":""}`, `{`, `{}`} {
		rec := postAnalyze(router, "", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
			continue
		}
		var errBody map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
			t.Fatalf("bad error body: %v", err)
		}
		if errBody["error"] != "Invalid URL format" {
			t.Errorf("error = %q, want %q", errBody["error"], "Invalid URL format")
		}
	}
}

func TestAnalyzeEndpointFetchFailure(t *testing.T) {
	router := testRouter(t, &fakeFetcher{err: ErrFetchFailed}, &fakeThreats{})

	rec := postAnalyze(router, "", `{"url":"https://down.com/"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var errBody map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("bad error body: %v", err)
	}
	if errBody["error"] != "Failed to fetch URL content" {
		t.Errorf("error = %q, want %q", errBody["error"], "Failed to fetch URL content")
	}
}

func TestAnalyzeEndpointDeepQueryParam(t *testing.T) {
	threats := &fakeThreats{verdict: ThreatVerdict{Flagged: true, ThreatType: "MALWARE"}}
	router := testRouter(t, &fakeFetcher{html: "<html></html>"}, threats)

	rec := postAnalyze(router, "?deep=true", `{"url":"https://bad.com/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if res.Verdict != VerdictSuspicious || res.Score != 0 {
		t.Errorf("deep scan with a match should return suspicious/0, got %+v", res)
	}

	// Without the query flag the threat list is never consulted.
	threats.calls = 0
	rec = postAnalyze(router, "", `{"url":"https://bad.com/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if threats.calls != 0 {
		t.Errorf("shallow scan consulted the threat list %d times", threats.calls)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, &fakeFetcher{}, &fakeThreats{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
