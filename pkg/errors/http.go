package errors

import "net/http"

// HTTPStatus maps an error to the status code an HTTP front end should answer
// with. Malformed input and missing resources are client errors; persistence
// and anything uncoded are server errors.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidPackage, ErrCodeManifestParse:
		return http.StatusBadRequest
	case ErrCodeManifestNotFound, ErrCodeLogFileNotFound:
		return http.StatusNotFound
	case ErrCodeProjectLocked:
		return http.StatusConflict
	case ErrCodeRegistryQuery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
