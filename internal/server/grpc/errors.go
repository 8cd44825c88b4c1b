package grpc

import (
	"context"
	"errors"

	"github.com/SakshiM22/secure-vault/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC statuses. Anything unrecognised is
// logged and reported as a bare internal error.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrSessionInvalidated),
		errors.Is(err, common.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())

	case errors.Is(err, common.ErrAccountLockedAdmin):
		return status.Error(codes.FailedPrecondition, common.ErrAccountLockedAdmin.Error())
	case errors.Is(err, common.ErrAccountLockedBruteForce):
		return status.Error(codes.FailedPrecondition, common.ErrAccountLockedBruteForce.Error())

	case errors.Is(err, common.ErrAccessDenied),
		errors.Is(err, common.ErrBlocked):
		return status.Error(codes.PermissionDenied, err.Error())

	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrSelfAction):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, common.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, common.ErrAlreadyExists.Error())
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, common.ErrNotFound.Error())
	case errors.Is(err, common.ErrTimeout):
		return status.Error(codes.Unavailable, common.ErrTimeout.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	if !errors.Is(err, common.ErrInternal) {
		s.logger.Error(ctx, "unmapped error", "error", err)
	}
	return status.Error(codes.Internal, common.ErrInternal.Error())
}
