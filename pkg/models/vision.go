package models

// Feature selects a Vision API detection type for one image
type Feature struct {
	Type       string `json:"type" binding:"required"`
	MaxResults int32  `json:"maxResults,omitempty"`
}

// Image carries base64-encoded image data. Only inline content is
// supported; there is no fetch-by-URL path.
type Image struct {
	Content string `json:"content" binding:"required"`
}

// VisionRequest is a single image annotation request
type VisionRequest struct {
	Image    Image     `json:"image" binding:"required"`
	Features []Feature `json:"features" binding:"required,min=1"`
}

// VisionBatchRequest is a batch of annotation requests
type VisionBatchRequest struct {
	Requests []VisionRequest `json:"requests" binding:"required,min=1"`
}

// WebEntity is an entity inferred from similar images on the web
type WebEntity struct {
	EntityID    string  `json:"entityId,omitempty"`
	Score       float32 `json:"score,omitempty"`
	Description string  `json:"description,omitempty"`
}

// WebImage is an image found on the web
type WebImage struct {
	URL string `json:"url,omitempty"`
}

// WebPage is a page containing a matching image
type WebPage struct {
	URL                   string     `json:"url,omitempty"`
	PageTitle             string     `json:"pageTitle,omitempty"`
	FullMatchingImages    []WebImage `json:"fullMatchingImages,omitempty"`
	PartialMatchingImages []WebImage `json:"partialMatchingImages,omitempty"`
}

// BestGuessLabel is the best guess for the image's topic
type BestGuessLabel struct {
	Label        string `json:"label,omitempty"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// WebDetection aggregates web detection results for one image
type WebDetection struct {
	WebEntities             []WebEntity      `json:"webEntities,omitempty"`
	FullMatchingImages      []WebImage       `json:"fullMatchingImages,omitempty"`
	PartialMatchingImages   []WebImage       `json:"partialMatchingImages,omitempty"`
	PagesWithMatchingImages []WebPage        `json:"pagesWithMatchingImages,omitempty"`
	VisuallySimilarImages   []WebImage       `json:"visuallySimilarImages,omitempty"`
	BestGuessLabels         []BestGuessLabel `json:"bestGuessLabels,omitempty"`
}

// ErrorInfo is a per-image annotation failure
type ErrorInfo struct {
	Code    int32  `json:"code"`
	Message string `json:"message"`
}

// VisionResponse is the annotation outcome for one image
type VisionResponse struct {
	WebDetection *WebDetection `json:"webDetection,omitempty"`
	Error        *ErrorInfo    `json:"error,omitempty"`
}

// VisionBatchResponse mirrors the batch request ordering
type VisionBatchResponse struct {
	Responses []VisionResponse `json:"responses"`
}
