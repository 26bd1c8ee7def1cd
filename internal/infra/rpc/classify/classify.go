package classify

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"
)

// Classify maps any failure onto a classified Error. It never panics and
// always returns a non-nil value.
//
// Decision order: already classified, transport connectivity (no response),
// structured response status, deadline exceeded, unknown.
func Classify(err error) *Error {
	if err == nil {
		return New(KindUnknown, "unknown error", nil)
	}

	var ce *Error
	if errors.As(err, &ce) {
		if ce == nil {
			return New(KindUnknown, messageOf(err), err)
		}
		return ce
	}

	timeout := isDeadline(err)
	if !timeout && isConnectivity(err) {
		return New(KindNetwork, err.Error(), err)
	}

	var re *ResponseError
	if errors.As(err, &re) && re != nil {
		return fromResponse(re, err)
	}

	if ge, ok := fromGRPC(err); ok {
		return ge
	}

	if timeout {
		return New(KindTimeout, err.Error(), err)
	}

	return New(KindUnknown, messageOf(err), err)
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return Classify(err).Kind() == kind
}

func fromResponse(re *ResponseError, cause error) *Error {
	kind := KindForStatus(re.StatusCode)
	ce := New(kind, re.Error(), cause).WithStatus(re.StatusCode)

	msg := re.Message
	if msg == "" {
		msg = bodyMessage(re.Body)
	}
	ce = ce.WithUserMessage(msg)

	if kind == KindValidation {
		fields := re.FieldErrors
		if len(fields) == 0 {
			fields = bodyFieldErrors(re.Body)
		}
		ce = ce.WithFieldErrors(fields)
	}
	return ce
}

func isConnectivity(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrNoResponse) {
		return true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	// http.Client.Do reports every transport failure as *url.Error.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func isDeadline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func messageOf(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "unknown error"
}
