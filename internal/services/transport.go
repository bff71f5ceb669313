package services

import (
	"errors"

	"worldbuilder/internal/apiclient"
)

// MarkerFor maps a transport error category onto a service marker.
func MarkerFor(category apiclient.Category) error {
	switch category {
	case apiclient.CategoryValidation, apiclient.CategoryConflict:
		return ErrValidation
	case apiclient.CategoryAuthentication, apiclient.CategoryAuthorization:
		return ErrUnauthorized
	case apiclient.CategoryNotFound:
		return ErrNotFound
	case apiclient.CategoryRateLimit:
		return ErrRateLimited
	case apiclient.CategoryServer:
		return ErrUpstream
	default:
		return ErrTransient
	}
}

// FromTransport tags a transport failure with the marker matching its
// category. Errors that already carry a marker are returned unchanged.
func FromTransport(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	for _, marker := range []error{ErrUpstream, ErrValidation, ErrConfiguration, ErrNotFound, ErrUnauthorized, ErrRateLimited, ErrTransient} {
		if errors.Is(err, marker) {
			return err
		}
	}
	return Wrap(MarkerFor(apiclient.Classify(err)), service, operation, "", err)
}
