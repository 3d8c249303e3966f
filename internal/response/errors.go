package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionRequired    ErrCode = "SESSION_REQUIRED"
	ErrSessionExpired     ErrCode = "SESSION_EXPIRED"
	ErrForbiddenOrigin    ErrCode = "FORBIDDEN_ORIGIN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrUnknownField ErrCode = "UNKNOWN_FIELD"

	// ─── Profile ───────────────────────────────────────────────────────
	ErrProfileLocked  ErrCode = "PROFILE_LOCKED"
	ErrNotEditing     ErrCode = "NOT_EDITING"
	ErrRequestFailed  ErrCode = "REQUEST_FAILED"
	ErrProfileMissing ErrCode = "PROFILE_MISSING"

	// ─── Assessment attempts ───────────────────────────────────────────
	ErrAttemptNotFound   ErrCode = "ATTEMPT_NOT_FOUND"
	ErrSubmitInFlight    ErrCode = "SUBMIT_IN_FLIGHT"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrSubmitFailed      ErrCode = "SUBMIT_FAILED"

	// ─── Backend ───────────────────────────────────────────────────────
	ErrBackend            ErrCode = "BACKEND_ERROR"
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionRequired:
		return "Please log in to continue."
	case ErrSessionExpired:
		return "Your session has expired. Please log in again."
	case ErrForbiddenOrigin:
		return "Requests from this origin are not allowed."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrUnknownField:
		return "This profile field cannot be edited."

	// ─── Profile ───────────────────────────────────────────────────────
	case ErrProfileLocked:
		return "Profile updates are locked. Request edit permission to make changes."
	case ErrNotEditing:
		return "This field is not being edited."
	case ErrRequestFailed:
		return "Failed to submit request. Please try again later."
	case ErrProfileMissing:
		return "Please complete your profile first."

	// ─── Assessment attempts ───────────────────────────────────────────
	case ErrAttemptNotFound:
		return "Assessment attempt not found."
	case ErrSubmitInFlight:
		return "Submission already in progress."
	case ErrAlreadySubmitted:
		return "This assessment has already been submitted."
	case ErrInvalidTransition:
		return "That action is not available right now."
	case ErrSubmitFailed:
		return "Failed to submit assessment. Please try again."

	// ─── Backend ───────────────────────────────────────────────────────
	case ErrBackend:
		return "The learning service rejected the request."
	case ErrBackendUnavailable:
		return "The learning service is unreachable. Please try again later."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
