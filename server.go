package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/craftline/shopfloor_backend/config"
	"github.com/craftline/shopfloor_backend/models"
	"github.com/craftline/shopfloor_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("shopfloor-backend")

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so the platform considers the revision
	// healthy. Until the DB is ready we return 503 for app endpoints.
	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// In production require an explicit allowlist; in development allow all.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PATCH", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/materials", listMaterialsHandler())
		api.POST("/materials", createMaterialHandler())
		api.POST("/materials/add", addStockHandler())
		api.POST("/materials/transfer", transferHandler())

		api.GET("/orders/jobs", searchJobsHandler())
		api.GET("/orders/:id", getOrderHandler())
		api.PATCH("/orders/:id", patchOrderHandler())
		api.GET("/orders/:id/materials", listOrderMaterialsHandler())
		api.POST("/orders/:id/materials/return", returnMaterialHandler())

		api.GET("/quotes", listQuotesHandler())
		api.POST("/quotes", createQuoteHandler())
		api.GET("/quotes/:id", getQuoteHandler())
		api.PATCH("/quotes/:id", patchQuoteHandler())
		api.GET("/quotes/:id/items", listQuoteItemsHandler())
		api.POST("/quotes/:id/items", addQuoteItemHandler())
		api.POST("/quotes/:id/submit", submitQuoteHandler())
		api.POST("/quotes/:id/approve", approveQuoteHandler())
		api.POST("/quotes/:id/accept", acceptQuoteHandler())
		api.PATCH("/quotes/:id/status", patchQuoteStatusHandler())
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedis()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	// AutoMigrate can run DDL that blocks tables; allow disabling on startup
	// and running cmd/migrate as a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	logger.WithFields(logrus.Fields{
		"port": port,
	}).Info("shopfloor backend listening")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("x-request-id")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Header("x-request-id", rid)
		c.Set("request_id", rid)
		c.Next()
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// errStatus maps an error kind to its HTTP status. Message text passes
// through untouched; front-ends match on it.
func errStatus(err error) int {
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, utils.ErrorInsufficientStock),
		errors.Is(err, utils.ErrorReturnExceedsAllocated),
		errors.Is(err, utils.ErrorDuplicateSku):
		return http.StatusConflict
	case errors.Is(err, utils.ErrorInvalidInput),
		errors.Is(err, utils.ErrorUnsupportedStatus):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func jsonError(c *gin.Context, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "server.go", "jsonError",
			c.Request.Method+" "+c.FullPath(), c.GetString("request_id"), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
