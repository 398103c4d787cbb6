package handler

import (
	"errors"

	"candlestand-api/internal/service"
	"candlestand-api/pkg/apierror"
)

// toAPIError maps service errors onto HTTP errors.
func toAPIError(err error) *apierror.Error {
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, service.ErrValidation):
		return apierror.ValidationError(err.Error())
	case errors.Is(err, service.ErrStandNotFound):
		return apierror.NotFound("stand not found")
	case errors.Is(err, service.ErrConfirmCommitFailed):
		return apierror.InternalError("failed to confirm transactions")
	case errors.Is(err, service.ErrStoreUnavailable):
		return apierror.ServiceUnavailable("store unavailable")
	default:
		return apierror.InternalError("")
	}
}
