package transport

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/config"
	apperrors "github.com/team-nup/2025-edd-gcloud-backend-resource/internal/errors"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/gemini"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/logger"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/service"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/validation"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/pkg/models"
)

const (
	ServiceName        = "EDD Cloud Run Backend Resource"
	ServiceVersion     = "1.0.0"
	serviceDescription = "Employment Development Department backend resource for hackathon 2025"
)

var startTime = time.Now()

// UpstreamHealthChecker probes the Gemini client handle.
type UpstreamHealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// NewHandler wires all routes onto a gin engine.
func NewHandler(analysisSvc service.AnalysisService, visionSvc service.VisionService, upstream UpstreamHealthChecker, cfg *config.Config) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		}),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	r.GET("/", root)
	r.GET("/api/v1/info", apiInfo)

	health := r.Group("/health")
	{
		health.GET("", healthCheck)
		health.GET("/liveness", livenessProbe)
		health.GET("/readiness", readinessProbe)
		health.GET("/detailed", detailedHealth)
	}

	geminiGroup := r.Group("/api/v1/gemini")
	{
		geminiGroup.POST("/analyze", analyzeImage(analysisSvc, cfg))
		geminiGroup.GET("/health", geminiHealth(upstream))
	}

	visionGroup := r.Group("/api/v1/vision")
	{
		visionGroup.POST("/web-detection", webDetection(visionSvc))
		visionGroup.GET("/health", visionHealth(visionSvc))
	}

	return r
}

func analyzeImage(svc service.AnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestStart := time.Now()
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Info("Processing image analysis request")

		file, err := c.FormFile("file")
		if err != nil {
			respondError(c, http.StatusUnprocessableEntity, "file field is required", err)
			return
		}

		promptValues := c.Request.MultipartForm.Value["prompt"]
		if len(promptValues) == 0 {
			respondError(c, http.StatusUnprocessableEntity, "prompt field is required", nil)
			return
		}
		prompt := promptValues[0]

		if err := validation.ValidateAnalysisUpload(file, prompt); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid analysis request", err)
			return
		}

		src, err := file.Open()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to open uploaded file",
				apperrors.NewInternalError("failed to open uploaded file", err))
			return
		}
		defer src.Close()

		imageBytes, err := io.ReadAll(src)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to read uploaded file",
				apperrors.NewInternalError("failed to read uploaded file", err))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		result, err := svc.AnalyzeImage(ctx, imageBytes, file.Header.Get("Content-Type"), prompt)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "image analysis failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"filename":           file.Filename,
			"processing_time_ms": time.Since(requestStart).Milliseconds(),
		}).Info("Image analysis request completed")

		c.JSON(http.StatusOK, result)
	}
}

func geminiHealth(upstream UpstreamHealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !upstream.HealthCheck(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error:   http.StatusText(http.StatusServiceUnavailable),
				Message: "Gemini API connection error",
			})
			return
		}
		c.JSON(http.StatusOK, models.GeminiHealthResponse{
			Status:  "healthy",
			Service: gemini.ServiceName,
		})
	}
}

func webDetection(svc service.VisionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.VisionBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		result, err := svc.WebDetection(c.Request.Context(), req)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "web detection failed", err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func visionHealth(svc service.VisionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !svc.HealthCheck(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error:   http.StatusText(http.StatusServiceUnavailable),
				Message: "Vision API connection error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": service.VisionServiceName,
		})
	}
}

func root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": ServiceName + " API",
		"version": ServiceVersion,
		"status":  "running",
	})
}

func apiInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"api_name":    ServiceName + " API",
		"version":     ServiceVersion,
		"description": serviceDescription,
		"endpoints": gin.H{
			"root":                 "/",
			"health":               "/health",
			"info":                 "/api/v1/info",
			"vision_web_detection": "/api/v1/vision/web-detection",
			"vision_health":        "/api/v1/vision/health",
			"gemini_analyze":       "/api/v1/gemini/analyze",
			"gemini_health":        "/api/v1/gemini/health",
		},
	})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   ServiceName,
		"version":   ServiceVersion,
	})
}

func livenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func readinessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ready",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": time.Since(startTime).Seconds(),
	})
}

func detailedHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service": gin.H{
			"name":        ServiceName,
			"version":     ServiceVersion,
			"description": serviceDescription,
		},
		"environment": gin.H{
			"port":       getEnvOrDefault("PORT", "8080"),
			"go_version": getEnvOrDefault("GO_VERSION", "1.24"),
		},
		"system": gin.H{
			"uptime_seconds": time.Since(startTime).Seconds(),
		},
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{Error: http.StatusText(code), Message: message}
	if err != nil {
		resp.Message = message + ": " + err.Error()
	}
	c.AbortWithStatusJSON(code, resp)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
