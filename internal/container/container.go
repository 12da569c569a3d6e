package container

import (
	"net/http"

	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/config"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/gemini"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/service"
	"github.com/team-nup/2025-edd-gcloud-backend-resource/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	geminiClient    *gemini.Client
	analysisService service.AnalysisService
	visionService   service.VisionService
	handler         http.Handler
}

// NewContainer builds the dependency graph
func NewContainer(cfg *config.Config) (*Container, error) {
	geminiClient := gemini.New(cfg)
	analysisService := service.NewAnalysisService(geminiClient)
	visionService := service.NewVisionService()
	handler := transport.NewHandler(analysisService, visionService, geminiClient, cfg)

	return &Container{
		config:          cfg,
		geminiClient:    geminiClient,
		analysisService: analysisService,
		visionService:   visionService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
