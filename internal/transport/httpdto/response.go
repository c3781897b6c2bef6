package httpdto

// MessageResponse is the body of every non-validation error and of simple
// acknowledgements.
type MessageResponse struct {
	Msg string `json:"msg"`
}

// ValidationErrorResponse lists per-field messages for a rejected request.
type ValidationErrorResponse struct {
	Errors map[string][]string `json:"errors"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func NewMessageResponse(msg string) MessageResponse {
	return MessageResponse{Msg: msg}
}

func NewValidationErrorResponse(fields map[string][]string) ValidationErrorResponse {
	return ValidationErrorResponse{Errors: fields}
}

func NewSuccessResponse() SuccessResponse {
	return SuccessResponse{Success: true}
}
