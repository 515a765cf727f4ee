package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure and carry no infrastructure dependency.
// Callers match with errors.Is; storage layers wrap driver errors with ErrStorage.

var (
	// Not found
	ErrUserNotFound   = errors.New("user not found")
	ErrLessonNotFound = errors.New("lesson not found")

	// Invalid input
	ErrInvalidLanguage = errors.New("invalid language")
	ErrInvalidInput    = errors.New("invalid input")

	// Insufficient resource
	ErrInsufficientGems = errors.New("not enough gems")
	ErrNoHearts         = errors.New("out of hearts: wait for regeneration or refill in the shop")
	ErrHeartsFull       = errors.New("hearts are already full")

	// Conflict
	ErrEmailTaken = errors.New("email already registered")

	// Access
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrLessonLocked      = errors.New("previous lesson must be completed first")

	// Storage (transaction aborted and rolled back)
	ErrStorage = errors.New("storage failure")
)

// ErrorKind classifies an error into the taxonomy exposed to API callers.
// Unknown errors are reported as "internal".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrLessonNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidLanguage), errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInsufficientGems), errors.Is(err, ErrNoHearts), errors.Is(err, ErrHeartsFull):
		return "insufficient_resource"
	case errors.Is(err, ErrEmailTaken):
		return "conflict"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredential):
		return "unauthorized"
	case errors.Is(err, ErrLessonLocked):
		return "forbidden"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
