package main

import (
	"os"

	"suspicious-url-analyzer/scan"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}

	cfg, err := scan.LoadRuleConfig(os.Getenv("RULES_CONFIG"))
	if err != nil {
		log.WithError(err).Fatal("failed to load rule config")
	}

	analyzer := scan.NewAnalyzer(cfg, os.Getenv("GOOGLE_SAFE_BROWSING_KEY"), log)
	handler := scan.NewAnalyzeHandler(analyzer, log)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	router.POST("/analyze", handler.Analyze)
	router.GET("/healthz", handler.Health)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.WithField("port", port).Info("suspicious-url-analyzer listening")
	if err := router.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
