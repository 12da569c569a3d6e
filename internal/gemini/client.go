// Package gemini wraps the Vertex AI Gemini client behind a small adapter
// that owns the process-wide client handle and classifies upstream failures.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/config"
	apperrors "github.com/team-nup/2025-edd-gcloud-backend-resource/internal/errors"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/logger"
)

// ServiceName identifies the upstream provider in health responses.
const ServiceName = "Google Gemini via Vertex AI"

const defaultMIMEType = "image/jpeg"

// Client owns the shared Gemini client handle. The handle is constructed
// lazily on first use and reused for the process lifetime; construction
// failures are never cached, so the next call re-attempts construction.
type Client struct {
	cfg     *config.Config
	limiter *rate.Limiter

	mu     sync.Mutex
	handle *genai.Client

	// newClient is swapped out in tests
	newClient func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error)
}

// New creates the adapter. No remote call is made until first use.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.GeminiRPS), cfg.GeminiRPS),
		newClient: genai.NewClient,
	}
}

// getHandle returns the memoized client, constructing it on first use.
// First successful construction wins; concurrent first callers serialize
// on the mutex.
func (c *Client) getHandle(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handle != nil {
		return c.handle, nil
	}

	if c.cfg.GoogleCloudProject == "" {
		return nil, apperrors.NewClientInitError("GOOGLE_CLOUD_PROJECT environment variable is not set", nil)
	}
	if c.cfg.VertexAILocation == "" {
		return nil, apperrors.NewClientInitError("VERTEX_AI_LOCATION environment variable is not set", nil)
	}

	handle, err := c.newClient(ctx, &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  c.cfg.GoogleCloudProject,
		Location: c.cfg.VertexAILocation,
	})
	if err != nil {
		return nil, apperrors.NewClientInitError("failed to create Gemini client", err)
	}

	logger.WithFields(logrus.Fields{
		"project":  c.cfg.GoogleCloudProject,
		"location": c.cfg.VertexAILocation,
	}).Info("Gemini client initialized")

	c.handle = handle
	return c.handle, nil
}

// GenerateAnalysis sends one prompt-plus-image generation request and
// returns the generated text. Rate-limit failures come back as
// ErrorTypeRateLimit so the caller can retry them; client construction
// failures come back as ErrorTypeClientInit.
func (c *Client) GenerateAnalysis(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	handle, err := c.getHandle(ctx)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	resp, err := handle.Models.GenerateContent(ctx, c.cfg.GeminiModel, contents, nil)
	if err != nil {
		if isRateLimited(err) {
			return "", apperrors.NewRateLimitError("Gemini API quota exceeded", err)
		}
		return "", err
	}

	return resp.Text(), nil
}

// HealthCheck reports whether the upstream client can be constructed.
// It never propagates a failure, only converts it to false.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if _, err := c.getHandle(ctx); err != nil {
		logger.WithError(err).Error("Gemini health check failed")
		return false
	}
	return true
}

// isRateLimited reports whether err is a quota-exhaustion failure.
// The structured API error is checked first; the substring match is a
// fallback for transports that only surface text.
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
