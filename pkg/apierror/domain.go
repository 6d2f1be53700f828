package apierror

import (
	"errors"
	"net/http"

	"github.com/openctemio/teams/pkg/domain/shared"
)

// FromDomain maps a domain error to an API error. Invalid-input and
// invalid-user errors surface as 400s with their message intact; access
// denials surface as 403s with a generic message so the reason for the
// denial is not leaked.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case shared.IsNotFound(err):
		return NotFound("").WithError(err)

	case errors.Is(err, shared.ErrAlreadyExists):
		return SafeConflict(err)

	case shared.IsInvalidInput(err):
		return Wrap(err, http.StatusBadRequest, CodeBadRequest, err.Error())

	case errors.Is(err, shared.ErrInvalidUser):
		return Wrap(err, http.StatusBadRequest, CodeBadRequest, err.Error())

	case shared.IsBadRequest(err):
		return Wrap(err, http.StatusBadRequest, CodeBadRequest, err.Error())

	case shared.IsForbidden(err):
		return SafeForbidden(err)

	default:
		return InternalError(err)
	}
}
