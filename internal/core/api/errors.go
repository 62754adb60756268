package api

import (
	"context"
	"errors"

	"github.com/solatis/switchboard/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// statusFromError maps core errors onto gRPC codes.
// Auth failures are mapped by the auth interceptor before handlers run.
func statusFromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, types.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrMalformedInput):
		code = codes.InvalidArgument
	case errors.Is(err, types.ErrAuthorizationRequired):
		code = codes.PermissionDenied
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
