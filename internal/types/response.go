package types

// Response is the body of every error reply.
type Response struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}
