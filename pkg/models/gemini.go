package models

// GeminiAnalyzeResponse is the result of an image analysis call
type GeminiAnalyzeResponse struct {
	Result string `json:"result"`
	Status string `json:"status"`
}

// GeminiHealthResponse reports upstream connectivity
type GeminiHealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
