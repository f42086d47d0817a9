package httpx

// ServiceName is reported by the health endpoint.
const ServiceName = "auth-svc"

// Client-facing error details. These never reveal which check failed.
const (
	DetailInvalidCredentials = "Incorrect username or password"
	DetailUnauthenticated    = "Could not validate credentials"
	DetailInsufficientRole   = "Insufficient role"
	DetailInternal           = "Internal Server Error"
)

// Machine-readable error codes carried alongside the detail.
const (
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeUnauthenticated    = "authentication_required"
	ErrCodeForbidden          = "insufficient_permissions"
	ErrCodeInternal           = "internal_error"
)

// maxFormBytes bounds the login request body.
const maxFormBytes = 1 << 20
