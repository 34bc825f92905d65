package types

// SuccessEnvelope is embedded by every successful response body.
type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// OK is the envelope for a successful response.
func OK() SuccessEnvelope {
	return SuccessEnvelope{Success: true}
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}
