package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/team-nup/2025-edd-gcloud-backend-resource/internal/errors"
)

// fakeGenerator returns scripted outcomes, one per call
type fakeGenerator struct {
	outcomes []fakeOutcome
	calls    int
}

type fakeOutcome struct {
	text string
	err  error
}

func (f *fakeGenerator) GenerateAnalysis(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if f.calls >= len(f.outcomes) {
		return "", errors.New("unexpected extra call")
	}
	out := f.outcomes[f.calls]
	f.calls++
	return out.text, out.err
}

func newTestService(gen *fakeGenerator) (*analysisService, *[]time.Duration) {
	waits := &[]time.Duration{}
	svc := &analysisService{
		generator:   gen,
		maxAttempts: maxAttempts,
		baseDelay:   initialRetryDelay,
		wait: func(ctx context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	}
	return svc, waits
}

func rateLimitErr() error {
	return apperrors.NewRateLimitError("Gemini API quota exceeded", errors.New("429 RESOURCE_EXHAUSTED"))
}

func TestAnalyzeImage_SuccessFirstAttempt(t *testing.T) {
	gen := &fakeGenerator{outcomes: []fakeOutcome{{text: "a cat on a mat"}}}
	svc, waits := newTestService(gen)

	result, err := svc.AnalyzeImage(context.Background(), []byte{0x1}, "image/png", "describe")

	require.NoError(t, err)
	assert.Equal(t, "a cat on a mat", result.Result)
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, *waits)
}

func TestAnalyzeImage_RetriesRateLimitThenSucceeds(t *testing.T) {
	gen := &fakeGenerator{outcomes: []fakeOutcome{
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{text: "third time lucky"},
	}}
	svc, waits := newTestService(gen)

	result, err := svc.AnalyzeImage(context.Background(), []byte{0x1}, "image/jpeg", "describe")

	require.NoError(t, err)
	assert.Equal(t, "third time lucky", result.Result)
	assert.Equal(t, 3, gen.calls)
	// Exponential backoff: 2s before the second attempt, 4s before the third
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
}

func TestAnalyzeImage_RateLimitExhaustsRetries(t *testing.T) {
	gen := &fakeGenerator{outcomes: []fakeOutcome{
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{err: rateLimitErr()},
	}}
	svc, waits := newTestService(gen)

	result, err := svc.AnalyzeImage(context.Background(), []byte{0x1}, "image/jpeg", "describe")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
	// Exactly 3 attempts and exactly 2 backoff waits, never a 4th attempt
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
}

func TestAnalyzeImage_NonRateLimitErrorFailsImmediately(t *testing.T) {
	gen := &fakeGenerator{outcomes: []fakeOutcome{
		{err: errors.New("400 INVALID_ARGUMENT: bad image payload")},
	}}
	svc, waits := newTestService(gen)

	result, err := svc.AnalyzeImage(context.Background(), []byte{0x1}, "image/jpeg", "describe")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
	assert.Contains(t, err.Error(), "INVALID_ARGUMENT")
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, *waits)
}

func TestAnalyzeImage_ClientInitErrorPropagatesUnchanged(t *testing.T) {
	initErr := apperrors.NewClientInitError("GOOGLE_CLOUD_PROJECT environment variable is not set", nil)
	gen := &fakeGenerator{outcomes: []fakeOutcome{{err: initErr}}}
	svc, waits := newTestService(gen)

	result, err := svc.AnalyzeImage(context.Background(), []byte{0x1}, "image/jpeg", "describe")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeClientInit))
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, *waits)
}

func TestAnalyzeImage_EmptyTextGetsPlaceholder(t *testing.T) {
	gen := &fakeGenerator{outcomes: []fakeOutcome{{text: ""}}}
	svc, _ := newTestService(gen)

	result, err := svc.AnalyzeImage(context.Background(), []byte{0x1}, "image/jpeg", "describe")

	require.NoError(t, err)
	assert.Equal(t, emptyResultPlaceholder, result.Result)
	assert.Equal(t, "success", result.Status)
}

func TestAnalyzeImage_CanceledDuringBackoffStopsRetrying(t *testing.T) {
	gen := &fakeGenerator{outcomes: []fakeOutcome{
		{err: rateLimitErr()},
		{err: rateLimitErr()},
		{text: "never reached"},
	}}
	svc := &analysisService{
		generator:   gen,
		maxAttempts: maxAttempts,
		baseDelay:   initialRetryDelay,
		wait: func(ctx context.Context, d time.Duration) error {
			return context.Canceled
		},
	}

	result, err := svc.AnalyzeImage(context.Background(), []byte{0x1}, "image/jpeg", "describe")

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
	assert.Equal(t, 1, gen.calls)
}

func TestWaitWithContext_ReturnsEarlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := waitWithContext(ctx, 10*time.Second)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitWithContext_ElapsesNormally(t *testing.T) {
	err := waitWithContext(context.Background(), 5*time.Millisecond)
	assert.NoError(t, err)
}
