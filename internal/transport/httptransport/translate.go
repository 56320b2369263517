package httptransport

import (
	"errors"

	derrors "github.com/postplanner/post-planner-bot/internal/errors"
	"github.com/postplanner/post-planner-bot/internal/ports/errcode"
)

func FromServiceError(err error) errcode.Code {
	switch {
	case errors.Is(err, derrors.ErrValidation):
		return errcode.BadRequest
	case errors.Is(err, derrors.ErrQuotaExceeded),
		errors.Is(err, derrors.ErrChannelQuotaExceeded):
		return errcode.QuotaExceeded
	case errors.Is(err, derrors.ErrNotFound):
		return errcode.NotFound
	case errors.Is(err, derrors.ErrChannelNotOwned):
		return errcode.NotOwned
	case errors.Is(err, derrors.ErrNoActiveSubscription):
		return errcode.NoSubscription
	case errors.Is(err, derrors.ErrGateway):
		return errcode.Gateway
	default:
		return errcode.Internal
	}
}
