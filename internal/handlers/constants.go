package handlers

const (
	ErrInvalidFormData     = "Invalid form data"
	ErrForbidden           = "Forbidden"
	ErrNotFound            = "Not found"
	ErrInternalServerError = "Internal server error"
	ErrTooManyRequests     = "Too many requests"
	ErrRequestTooLarge     = "Request too large"

	// maxSpeakTextLength bounds the text sent to the speech service
	maxSpeakTextLength = 500
	// maxFormBytes bounds a form request body
	maxFormBytes = 64 << 10
)
