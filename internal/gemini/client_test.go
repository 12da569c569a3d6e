package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/config"
	apperrors "github.com/team-nup/2025-edd-gcloud-backend-resource/internal/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		GoogleCloudProject: "test-project",
		VertexAILocation:   "us-central1",
		GeminiModel:        config.DefaultGeminiModel,
		GeminiRPS:          5,
	}
}

func TestGetHandle_MissingProjectIsClientInitError(t *testing.T) {
	cfg := testConfig()
	cfg.GoogleCloudProject = ""
	c := New(cfg)

	_, err := c.getHandle(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeClientInit))
	assert.Contains(t, err.Error(), "GOOGLE_CLOUD_PROJECT")
}

func TestGetHandle_MissingLocationIsClientInitError(t *testing.T) {
	cfg := testConfig()
	cfg.VertexAILocation = ""
	c := New(cfg)

	_, err := c.getHandle(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeClientInit))
	assert.Contains(t, err.Error(), "VERTEX_AI_LOCATION")
}

func TestGetHandle_FailureIsNotCached(t *testing.T) {
	c := New(testConfig())

	calls := 0
	c.newClient = func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient construction failure")
		}
		return &genai.Client{}, nil
	}

	_, err := c.getHandle(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeClientInit))

	// Next call re-attempts construction and succeeds
	handle, err := c.getHandle(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, handle)
	assert.Equal(t, 2, calls)

	// Successful construction is memoized
	again, err := c.getHandle(context.Background())
	require.NoError(t, err)
	assert.Same(t, handle, again)
	assert.Equal(t, 2, calls)
}

func TestGetHandle_PassesVertexConfig(t *testing.T) {
	c := New(testConfig())

	var got *genai.ClientConfig
	c.newClient = func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error) {
		got = cc
		return &genai.Client{}, nil
	}

	_, err := c.getHandle(context.Background())

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, genai.BackendVertexAI, got.Backend)
	assert.Equal(t, "test-project", got.Project)
	assert.Equal(t, "us-central1", got.Location)
}

func TestHealthCheck_NeverPropagatesFailure(t *testing.T) {
	missing := testConfig()
	missing.GoogleCloudProject = ""
	assert.False(t, New(missing).HealthCheck(context.Background()))

	working := New(testConfig())
	working.newClient = func(ctx context.Context, cc *genai.ClientConfig) (*genai.Client, error) {
		return &genai.Client{}, nil
	}
	assert.True(t, working.HealthCheck(context.Background()))
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "structured 429 code",
			err:  genai.APIError{Code: 429, Message: "quota exceeded"},
			want: true,
		},
		{
			name: "structured resource exhausted status",
			err:  genai.APIError{Code: 0, Status: "RESOURCE_EXHAUSTED"},
			want: true,
		},
		{
			name: "structured non-rate-limit error",
			err:  genai.APIError{Code: 400, Status: "INVALID_ARGUMENT"},
			want: false,
		},
		{
			name: "textual 429 fallback",
			err:  errors.New("rpc failed with code 429"),
			want: true,
		},
		{
			name: "textual resource exhausted fallback",
			err:  errors.New("RESOURCE_EXHAUSTED: quota hit"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRateLimited(tt.err))
		})
	}
}
