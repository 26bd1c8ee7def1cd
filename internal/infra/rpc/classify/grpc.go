package classify

import (
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcStatus holds the HTTP-equivalent status for gRPC codes that carry a
// server response. Codes missing here are handled in fromGRPC directly.
var grpcStatus = map[codes.Code]int{
	codes.InvalidArgument:    400,
	codes.FailedPrecondition: 400,
	codes.OutOfRange:         400,
	codes.Unauthenticated:    401,
	codes.PermissionDenied:   403,
	codes.NotFound:           404,
	codes.AlreadyExists:      409,
	codes.Aborted:            409,
	codes.ResourceExhausted:  429,
	codes.Internal:           500,
	codes.Unknown:            500,
	codes.DataLoss:           500,
	codes.Unimplemented:      501,
}

func fromGRPC(err error) (*Error, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() == codes.OK {
		return nil, false
	}

	msg := fmt.Sprintf("grpc %s: %s", st.Code(), st.Message())
	switch st.Code() {
	case codes.DeadlineExceeded:
		return New(KindTimeout, msg, err), true
	case codes.Unavailable:
		return New(KindNetwork, msg, err), true
	case codes.Canceled:
		return New(KindUnknown, msg, err), true
	}

	httpStatus, ok := grpcStatus[st.Code()]
	if !ok {
		return New(KindUnknown, msg, err), true
	}

	ce := New(KindForStatus(httpStatus), msg, err).WithStatus(httpStatus)
	// Client-facing codes carry a message meant for the caller.
	if httpStatus < 500 {
		ce = ce.WithUserMessage(st.Message())
	}

	var fields map[string][]string
	for _, d := range st.Details() {
		switch detail := d.(type) {
		case *errdetails.LocalizedMessage:
			ce = ce.WithUserMessage(detail.GetMessage())
		case *errdetails.BadRequest:
			for _, v := range detail.GetFieldViolations() {
				if fields == nil {
					fields = make(map[string][]string)
				}
				fields = appendField(fields, v.GetField(), v.GetDescription())
			}
		}
	}
	return ce.WithFieldErrors(fields), true
}
