package loomerr

// StatusCode is the total function from canonical Kind to HTTP status,
// per the mapping table in the HTTP router's error-handling design.
func StatusCode(kind Kind) int {
	switch kind {
	case InvalidArgument:
		return 400
	case FailedPrecondition:
		return 400
	case NotFound:
		return 404
	case AlreadyExists:
		return 409
	case PermissionDenied:
		return 403
	case Unauthenticated:
		return 401
	case OutOfRange:
		return 416
	case ResourceExhausted:
		return 429
	case Aborted:
		return 503
	case Cancelled:
		return 499
	case DeadlineExceeded:
		return 504
	case Unavailable:
		return 503
	case Unimplemented:
		return 501
	default:
		return 500
	}
}

// KindFromStatus is StatusCode's approximate inverse, for callers that
// act as an HTTP *client* against another canonical-error-mapped service
// (e.g. connect/httpx) and need to recover a Kind from a response status
// to pass up through the rest of this repo's own error handling. Several
// Kinds share a status under StatusCode (400, 503); KindFromStatus picks
// the single most common cause for those, so round-tripping through both
// functions does not always reproduce the original Kind.
func KindFromStatus(status int) Kind {
	switch status {
	case 400:
		return InvalidArgument
	case 401:
		return Unauthenticated
	case 403:
		return PermissionDenied
	case 404:
		return NotFound
	case 409:
		return AlreadyExists
	case 416:
		return OutOfRange
	case 429:
		return ResourceExhausted
	case 499:
		return Cancelled
	case 501:
		return Unimplemented
	case 503:
		return Unavailable
	case 504:
		return DeadlineExceeded
	default:
		return Internal
	}
}
