package dto

// ErrorResponse is the envelope for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

// NewError builds the failure envelope with a machine-readable code and a
// human-readable message.
func NewError(code string, message string) ErrorResponse {
	return ErrorResponse{Success: false, Error: code, Message: message}
}
