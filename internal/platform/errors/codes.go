// Package errors provides structured domain errors with HTTP status mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request errors
	CodeValidation       Code = "VALIDATION_FAILED"
	CodeMalformedRequest Code = "MALFORMED_REQUEST"

	// Authentication errors
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodeForbidden          Code = "FORBIDDEN"

	// Catalog errors
	CodeCountryNotFound Code = "COUNTRY_NOT_FOUND"
	CodeCountryExists   Code = "COUNTRY_EXISTS"
	CodeCountryInUse    Code = "COUNTRY_IN_USE"
	CodeProductNotFound Code = "PRODUCT_NOT_FOUND"
	CodeProductExists   Code = "PRODUCT_EXISTS"

	// Tariff errors
	CodeTariffNotFound       Code = "TARIFF_NOT_FOUND"
	CodeNoTariffFound        Code = "NO_TARIFF_FOUND"
	CodeTariffOverlap        Code = "TARIFF_OVERLAP"
	CodeUnknownCountry       Code = "UNKNOWN_COUNTRY"
	CodeProductAlreadyLinked Code = "PRODUCT_ALREADY_LINKED"
	CodeProductNotLinked     Code = "PRODUCT_NOT_LINKED"
	CodeInvalidFilter        Code = "INVALID_FILTER"

	// User errors
	CodeUserNotFound          Code = "USER_NOT_FOUND"
	CodeUserExists            Code = "USER_EXISTS"
	CodeInvalidRoleTransition Code = "INVALID_ROLE_TRANSITION"

	// Prediction errors
	CodeFileMissing           Code = "FILE_MISSING"
	CodeFileTooLarge          Code = "FILE_TOO_LARGE"
	CodeUnsupportedMediaType  Code = "UNSUPPORTED_MEDIA_TYPE"
	CodePredictionUnavailable Code = "PREDICTION_UNAVAILABLE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	// BadRequest - validation failures, bad input, rule violations
	case CodeValidation,
		CodeMalformedRequest,
		CodeTariffOverlap,
		CodeUnknownCountry,
		CodeProductAlreadyLinked,
		CodeProductNotLinked,
		CodeInvalidFilter,
		CodeFileMissing:
		return http.StatusBadRequest

	case CodeUnauthenticated,
		CodeInvalidCredentials:
		return http.StatusUnauthorized

	case CodeTokenExpired,
		CodeTokenInvalid,
		CodeForbidden:
		return http.StatusForbidden

	case CodeNotFound,
		CodeCountryNotFound,
		CodeProductNotFound,
		CodeTariffNotFound,
		CodeNoTariffFound,
		CodeUserNotFound:
		return http.StatusNotFound

	// Conflict - unique constraints and state transitions
	case CodeCountryExists,
		CodeCountryInUse,
		CodeProductExists,
		CodeUserExists,
		CodeInvalidRoleTransition:
		return http.StatusConflict

	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case CodePredictionUnavailable:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
