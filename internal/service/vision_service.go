package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"

	apperrors "github.com/team-nup/2025-edd-gcloud-backend-resource/internal/errors"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/logger"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/pkg/models"
)

// VisionServiceName identifies the annotation provider in health responses.
const VisionServiceName = "Google Cloud Vision API"

// Annotator is the slice of the Cloud Vision client used by this service.
type Annotator interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
}

// VisionService runs web-detection annotation over batches of inline
// base64 images.
type VisionService interface {
	WebDetection(ctx context.Context, req models.VisionBatchRequest) (*models.VisionBatchResponse, error)
	HealthCheck(ctx context.Context) bool
}

type visionService struct {
	mu     sync.Mutex
	client Annotator

	// newAnnotator is swapped out in tests
	newAnnotator func(ctx context.Context) (Annotator, error)
}

// NewVisionService creates a vision service. The annotator client is
// constructed lazily on first use; construction failures are not cached.
func NewVisionService() VisionService {
	return &visionService{
		newAnnotator: func(ctx context.Context) (Annotator, error) {
			return vision.NewImageAnnotatorClient(ctx)
		},
	}
}

func (s *visionService) getClient(ctx context.Context) (Annotator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}

	client, err := s.newAnnotator(ctx)
	if err != nil {
		return nil, apperrors.NewClientInitError("failed to create Vision client", err)
	}

	logger.Info("Vision client initialized")
	s.client = client
	return s.client, nil
}

// WebDetection converts the batch request to Vision API form, runs the
// annotation, and maps the result back. Malformed base64 or an unknown
// feature type fails the whole batch with a validation error.
func (s *visionService) WebDetection(ctx context.Context, req models.VisionBatchRequest) (*models.VisionBatchResponse, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	visionReqs, err := convertToVisionRequests(req)
	if err != nil {
		return nil, err
	}

	resp, err := client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{Requests: visionReqs})
	if err != nil {
		return nil, apperrors.NewUpstreamError("Vision API call failed", err)
	}

	return convertToBatchResponse(resp), nil
}

// HealthCheck reports whether the annotator client can be constructed.
func (s *visionService) HealthCheck(ctx context.Context) bool {
	if _, err := s.getClient(ctx); err != nil {
		logger.WithError(err).Error("Vision health check failed")
		return false
	}
	return true
}

func convertToVisionRequests(req models.VisionBatchRequest) ([]*visionpb.AnnotateImageRequest, error) {
	visionReqs := make([]*visionpb.AnnotateImageRequest, 0, len(req.Requests))

	for i, r := range req.Requests {
		content, err := base64.StdEncoding.DecodeString(r.Image.Content)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("request %d: invalid base64 image content", i), err)
		}

		features := make([]*visionpb.Feature, 0, len(r.Features))
		for _, f := range r.Features {
			typeValue, ok := visionpb.Feature_Type_value[f.Type]
			if !ok || typeValue == 0 {
				return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported feature type: %s", f.Type), nil)
			}
			features = append(features, &visionpb.Feature{
				Type:       visionpb.Feature_Type(typeValue),
				MaxResults: f.MaxResults,
			})
		}

		visionReqs = append(visionReqs, &visionpb.AnnotateImageRequest{
			Image:    &visionpb.Image{Content: content},
			Features: features,
		})
	}

	return visionReqs, nil
}

func convertToBatchResponse(resp *visionpb.BatchAnnotateImagesResponse) *models.VisionBatchResponse {
	responses := make([]models.VisionResponse, 0, len(resp.GetResponses()))

	for _, r := range resp.GetResponses() {
		var vr models.VisionResponse
		switch {
		case r.GetError().GetMessage() != "":
			vr.Error = &models.ErrorInfo{
				Code:    r.GetError().GetCode(),
				Message: r.GetError().GetMessage(),
			}
		case r.GetWebDetection() != nil:
			vr.WebDetection = convertWebDetection(r.GetWebDetection())
		}
		responses = append(responses, vr)
	}

	return &models.VisionBatchResponse{Responses: responses}
}

func convertWebDetection(wd *visionpb.WebDetection) *models.WebDetection {
	out := &models.WebDetection{}

	for _, e := range wd.GetWebEntities() {
		out.WebEntities = append(out.WebEntities, models.WebEntity{
			EntityID:    e.GetEntityId(),
			Score:       e.GetScore(),
			Description: e.GetDescription(),
		})
	}
	out.FullMatchingImages = convertWebImages(wd.GetFullMatchingImages())
	out.PartialMatchingImages = convertWebImages(wd.GetPartialMatchingImages())
	for _, p := range wd.GetPagesWithMatchingImages() {
		out.PagesWithMatchingImages = append(out.PagesWithMatchingImages, models.WebPage{
			URL:                   p.GetUrl(),
			PageTitle:             p.GetPageTitle(),
			FullMatchingImages:    convertWebImages(p.GetFullMatchingImages()),
			PartialMatchingImages: convertWebImages(p.GetPartialMatchingImages()),
		})
	}
	out.VisuallySimilarImages = convertWebImages(wd.GetVisuallySimilarImages())
	for _, l := range wd.GetBestGuessLabels() {
		out.BestGuessLabels = append(out.BestGuessLabels, models.BestGuessLabel{
			Label:        l.GetLabel(),
			LanguageCode: l.GetLanguageCode(),
		})
	}

	return out
}

func convertWebImages(images []*visionpb.WebDetection_WebImage) []models.WebImage {
	if len(images) == 0 {
		return nil
	}
	out := make([]models.WebImage, 0, len(images))
	for _, img := range images {
		out = append(out, models.WebImage{URL: img.GetUrl()})
	}
	return out
}
