package main

// ParamOffset selects the submission offset on the single-recording route.
const ParamOffset = "n"

// User-facing messages produced by the HTTP layer itself.
const (
	MsgRouteNotFound  = "The requested URL was not found on the server. If you entered the URL manually please check your spelling and try again."
	MsgInternalError  = "Internal server error"
	MsgRequestTimeout = "The request took too long to complete"
)

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// MetricsListResponse is the response for GET /api/v1/similarity/
type MetricsListResponse struct {
	Metrics       []string `json:"metrics"`
	DistanceTypes []string `json:"distance_types"`
	// Loaded lists the identities of indices currently held in memory.
	Loaded []string `json:"loaded"`
}
