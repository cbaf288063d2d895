package server

const (
	// Validation (1xxx)
	ErrCodeInvalidArgument = 1000
	ErrCodeInvalidPath     = 1001

	// Domain state (2xxx)
	ErrCodeFileNotFound = 2001

	// Internal/system (4xxx)
	ErrCodeInternal      = 4001
	ErrCodeStoreFailure  = 4002
	ErrCodeObjectStorage = 4003
)

func defaultErrorCodeByStatus(status int) int {
	switch status {
	case 400:
		return ErrCodeInvalidArgument
	case 404:
		return ErrCodeFileNotFound
	case 500:
		return ErrCodeInternal
	case 502:
		return ErrCodeObjectStorage
	default:
		return 0
	}
}
