package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jecoplus/lending/internal/domain/apperr"
)

// toStatus maps use-case errors to gRPC status errors. Unknown errors become
// Internal and their text is not sent to the client.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(codeFor(appErr.Code), appErr.Message)
}

func codeFor(code apperr.Code) codes.Code {
	switch code {
	case apperr.CodeValidation:
		return codes.InvalidArgument
	case apperr.CodeNotFound:
		return codes.NotFound
	case apperr.CodeInvalidState:
		return codes.FailedPrecondition
	case apperr.CodeConflict:
		return codes.Aborted
	case apperr.CodeUnavailable:
		return codes.Unavailable
	case apperr.CodeUpstreamParse:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}
