package validation

import (
	"fmt"
	"mime/multipart"
	"strings"

	apperrors "github.com/team-nup/2025-edd-gcloud-backend-resource/internal/errors"
)

const (
	// MaxFileSize is the upload ceiling for analysis images
	MaxFileSize = 20 * 1024 * 1024

	// MaxPromptLength caps the analysis prompt
	MaxPromptLength = 5000
)

// ValidateAnalysisUpload enforces the input contract for the analyze
// endpoint. Checks run in order and short-circuit on first failure; the
// function has no side effects.
func ValidateAnalysisUpload(file *multipart.FileHeader, prompt string) error {
	contentType := file.Header.Get("Content-Type")
	if contentType == "" || !strings.HasPrefix(contentType, "image/") {
		return apperrors.NewUnsupportedMediaError("only image files are supported")
	}

	// Size is best-effort: a zero size means unknown and is not rejected
	// here. The request body limiter still bounds what gets read.
	if file.Size > MaxFileSize {
		return apperrors.NewPayloadTooLargeError(fmt.Sprintf("file size must not exceed %d bytes", int64(MaxFileSize)))
	}

	if len(strings.TrimSpace(prompt)) == 0 {
		return apperrors.NewValidationError("prompt must not be empty", nil)
	}

	if len(prompt) > MaxPromptLength {
		return apperrors.NewValidationError(fmt.Sprintf("prompt must not exceed %d characters", MaxPromptLength), nil)
	}

	return nil
}
