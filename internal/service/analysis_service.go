package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/team-nup/2025-edd-gcloud-backend-resource/internal/errors"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/logger"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/pkg/models"
)

const (
	// maxAttempts bounds the generation call to 1 initial try plus 2 retries
	maxAttempts = 3

	// initialRetryDelay doubles per attempt: 2s, 4s, 8s
	initialRetryDelay = 2 * time.Second

	// emptyResultPlaceholder substitutes for an empty model response
	emptyResultPlaceholder = "no result obtained"

	statusSuccess = "success"
)

// Generator issues a single synchronous generation call against the
// upstream model.
type Generator interface {
	GenerateAnalysis(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// AnalysisService runs prompt-plus-image analysis with bounded retries
// around the rate-limited upstream.
type AnalysisService interface {
	AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (*models.GeminiAnalyzeResponse, error)
}

type analysisService struct {
	generator   Generator
	maxAttempts int
	baseDelay   time.Duration
	wait        func(ctx context.Context, d time.Duration) error
}

// NewAnalysisService creates an analysis service with the default retry
// policy.
func NewAnalysisService(generator Generator) AnalysisService {
	return &analysisService{
		generator:   generator,
		maxAttempts: maxAttempts,
		baseDelay:   initialRetryDelay,
		wait:        waitWithContext,
	}
}

// AnalyzeImage calls the generator up to maxAttempts times. Only
// rate-limit failures are retried, with exponential backoff between
// attempts; any other failure abandons the loop immediately. Client
// construction failures propagate unchanged, everything else terminal is
// wrapped as an upstream error carrying the original description.
func (s *analysisService) AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (*models.GeminiAnalyzeResponse, error) {
	var lastErr error

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		start := time.Now()
		logger.WithFields(logrus.Fields{
			"attempt":      attempt + 1,
			"max_attempts": s.maxAttempts,
			"image_bytes":  len(image),
			"prompt_len":   len(prompt),
		}).Info("Calling Gemini API")

		text, err := s.generator.GenerateAnalysis(ctx, prompt, image, mimeType)
		if err == nil {
			if text == "" {
				text = emptyResultPlaceholder
			}
			logger.WithFields(logrus.Fields{
				"attempt":            attempt + 1,
				"processing_time_ms": time.Since(start).Milliseconds(),
				"result_len":         len(text),
			}).Info("Gemini analysis completed successfully")
			return &models.GeminiAnalyzeResponse{Result: text, Status: statusSuccess}, nil
		}

		lastErr = err

		if apperrors.IsType(err, apperrors.ErrorTypeClientInit) {
			logger.WithError(err).Error("Gemini client initialization failed")
			return nil, err
		}

		if !apperrors.IsType(err, apperrors.ErrorTypeRateLimit) {
			logger.WithError(err).WithField("attempt", attempt+1).Error("Gemini API call failed")
			break
		}

		if attempt < s.maxAttempts-1 {
			delay := s.baseDelay * (1 << attempt)
			logger.WithError(err).WithFields(logrus.Fields{
				"attempt":     attempt + 1,
				"retry_delay": delay.String(),
			}).Warn("Gemini API quota exceeded, retrying after backoff")
			if waitErr := s.wait(ctx, delay); waitErr != nil {
				logger.WithError(waitErr).Warn("Retry backoff aborted")
				break
			}
			continue
		}

		logger.WithError(err).WithField("max_attempts", s.maxAttempts).Error("Gemini API quota exceeded, retries exhausted")
	}

	return nil, apperrors.NewUpstreamError("Gemini analysis failed", lastErr)
}

// waitWithContext blocks only the calling goroutine and returns early if
// the request context goes away.
func waitWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
