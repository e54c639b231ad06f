package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/usazehan/healthcare-admin-dashboard/classifier"
	"github.com/usazehan/healthcare-admin-dashboard/features"
	"github.com/usazehan/healthcare-admin-dashboard/registry"
	"github.com/usazehan/healthcare-admin-dashboard/services"
)

// toStatus classifies a service error. Anything unrecognised becomes
// Internal carrying the error text.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, features.ErrInvalidValue),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidEvent):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, classifier.ErrNotLoaded):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, registry.ErrVersionExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
