// Package classify maps arbitrary call failures onto a closed set of error
// kinds so callers never branch on raw transport or response shapes.
//
// Every failure produced by an operation is funnelled through Classify:
//
//	res, err := op(ctx)
//	if err != nil {
//	    cerr := classify.Classify(err)
//	    if cerr.Retryable() {
//	        // back off and try again
//	    }
//	    slog.Warn("call failed", "kind", cerr.Kind(), "error", cerr)
//	}
//
// The kind vocabulary and its retryability are fixed; see Kind.
package classify

// Kind is the closed vocabulary of failure categories.
type Kind string

const (
	KindNetwork      Kind = "NETWORK"
	KindTimeout      Kind = "TIMEOUT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindServer       Kind = "SERVER"
	KindUnknown      Kind = "UNKNOWN"
)

// Kinds lists every kind in a stable order.
var Kinds = []Kind{
	KindNetwork,
	KindTimeout,
	KindUnauthorized,
	KindForbidden,
	KindNotFound,
	KindValidation,
	KindConflict,
	KindRateLimited,
	KindServer,
	KindUnknown,
}

var defaultMessages = map[Kind]string{
	KindNetwork:      "Unable to reach the server. Check your connection and try again.",
	KindTimeout:      "The request timed out. Please try again.",
	KindUnauthorized: "Your session has expired. Please sign in again.",
	KindForbidden:    "You do not have permission to perform this action.",
	KindNotFound:     "The requested resource was not found.",
	KindValidation:   "Some of the submitted data is invalid.",
	KindConflict:     "This resource was changed by someone else. Refresh and try again.",
	KindRateLimited:  "Too many requests. Please wait a moment and try again.",
	KindServer:       "The server encountered an error. Please try again later.",
	KindUnknown:      "An unexpected error occurred.",
}

// DefaultMessage returns the fixed user-facing text for the kind.
func (k Kind) DefaultMessage() string {
	if msg, ok := defaultMessages[k]; ok {
		return msg
	}
	return defaultMessages[KindUnknown]
}

// Retryable reports whether an automatic re-attempt is safe for the kind.
func (k Kind) Retryable() bool {
	switch k {
	case KindNetwork, KindTimeout, KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}

// Valid reports whether k belongs to the closed set.
func (k Kind) Valid() bool {
	_, ok := defaultMessages[k]
	return ok
}

func (k Kind) String() string {
	return string(k)
}

// KindForStatus maps an HTTP status code onto a kind.
func KindForStatus(status int) Kind {
	switch {
	case status == 400 || status == 422:
		return KindValidation
	case status == 401:
		return KindUnauthorized
	case status == 403:
		return KindForbidden
	case status == 404:
		return KindNotFound
	case status == 409:
		return KindConflict
	case status == 429:
		return KindRateLimited
	case status >= 500 && status <= 504:
		return KindServer
	default:
		return KindUnknown
	}
}
