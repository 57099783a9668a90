// Package services implements the Viaplay API client: request gateway,
// authentication, catalog navigation, product classification, stream
// resolution and the export helpers built on top of them.
package services

import (
	"errors"
	"fmt"

	"github.com/amaumene/goviaplay/internal/constants"
)

// APIError is a structured error response from the vendor API
// (success:false with a "name" code).
type APIError struct {
	Code string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s", e.Code)
}

// UserMessage returns the dialog text for the error, falling back to
// the raw code.
func (e *APIError) UserMessage() string {
	if msg, ok := constants.ErrorMessages[e.Code]; ok {
		return msg
	}
	return e.Code
}

// IsAPICode reports whether err is an APIError with the given code.
func IsAPICode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// ClassificationError reports a product type the classifier does not
// recognize. Listings abort on it so schema drift is visible instead
// of silently dropping entries.
type ClassificationError struct {
	ProductType string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("unrecognized product type %q", e.ProductType)
}

// ResolutionError reports a playback document that yielded no usable
// manifest.
type ResolutionError struct {
	Ident  string
	Reason string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s: %s", e.Ident, e.Reason)
}

// AuthError reports a definitive authentication failure that the
// transparent re-auth policy must not retry.
type AuthError struct {
	Reason string
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Cause }
