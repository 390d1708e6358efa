package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

// BlockStatusResponse answers GET /block?addr=
type BlockStatusResponse struct {
	Address string `json:"address"`
	Blocked bool   `json:"blocked"`
}
