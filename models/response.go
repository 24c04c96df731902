package models

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Busy    bool   `json:"busy"`
	Version string `json:"version"`
}

// ErrorResponse wraps an error for endpoints without a richer envelope.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
