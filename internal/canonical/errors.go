package canonical

// APIError is the inner error object of the canonical error envelope.
type APIError struct {
	Message string  `json:"message"`
	Type    string  `json:"type,omitempty"`
	Param   string  `json:"param,omitempty"`
	Code    string  `json:"code,omitempty"`
}

// ErrorBody is the canonical error body shape: {"error": {...}, "provider": "..."}
// (§6). Tagged with the provider that produced (or was about to be called
// for) the error, even for gateway-originated errors (empty provider).
type ErrorBody struct {
	Error    APIError `json:"error"`
	Provider string   `json:"provider,omitempty"`
}

// NewErrorBody builds an ErrorBody.
func NewErrorBody(provider, message, errType, param, code string) ErrorBody {
	return ErrorBody{
		Error: APIError{
			Message: message,
			Type:    errType,
			Param:   param,
			Code:    code,
		},
		Provider: provider,
	}
}
