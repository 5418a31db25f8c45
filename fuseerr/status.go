package fuseerr

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code maps err to the gRPC status code a host service should report when a
// transaction is rejected. nil maps to codes.OK.
func Code(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrConfiguration):
		return codes.FailedPrecondition
	case errors.Is(err, ErrUnknownType):
		return codes.NotFound
	case errors.Is(err, ErrMalformedStream):
		return codes.DataLoss
	case errors.Is(err, ErrDimensionMismatch), errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrInvalidDisambiguator):
		return codes.InvalidArgument
	default:
		return codes.Unknown
	}
}

// Status converts err into a *status.Status carrying Code(err) and the error
// text. It returns nil for a nil error.
func Status(err error) *status.Status {
	if err == nil {
		return nil
	}
	return status.New(Code(err), err.Error())
}
