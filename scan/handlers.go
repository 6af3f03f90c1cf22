package scan

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AnalyzeRequest is the POST /analyze body.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeHandler exposes the scoring pipeline over HTTP.
type AnalyzeHandler struct {
	Analyzer *Analyzer
	Log      logrus.FieldLogger
}

func NewAnalyzeHandler(analyzer *Analyzer, log logrus.FieldLogger) *AnalyzeHandler {
	return &AnalyzeHandler{Analyzer: analyzer, Log: log}
}

// Analyze handles POST /analyze?deep={true|false}.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL format"})
		return
	}
	deep := c.Query("deep") == "true"

	res, err := h.Analyzer.Analyze(c.Request.Context(), req.URL, deep)
	if err != nil {
		if errors.Is(err, ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL format"})
			return
		}
		h.Log.WithError(err).WithField("url", req.URL).Error("scan failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch URL content"})
		return
	}

	c.JSON(http.StatusOK, res)
}

// Health handles GET /healthz.
func (h *AnalyzeHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
