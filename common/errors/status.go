package errors

import "net/http"

var httpStatusByCode = map[string]int{
	CodeNotFound:            http.StatusNotFound,
	CodeAlreadyExists:       http.StatusConflict,
	CodeInvalidInput:        http.StatusBadRequest,
	CodeValidationFailed:    http.StatusBadRequest,
	CodeUnauthorized:        http.StatusUnauthorized,
	CodeForbidden:           http.StatusForbidden,
	CodeConflict:            http.StatusConflict,
	CodeServiceUnavailable:  http.StatusServiceUnavailable,
	CodeUnimplemented:       http.StatusNotImplemented,
	CodeInvalidState:        http.StatusBadRequest,
	CodeTournamentFull:      http.StatusConflict,
	CodeAlreadyJoined:       http.StatusConflict,
	CodeNotParticipant:      http.StatusBadRequest,
	CodeInsufficientFunds:   http.StatusBadRequest,
	CodeTeamFull:            http.StatusConflict,
	CodeCaptainMustTransfer: http.StatusConflict,
	CodeExternalUnavailable: http.StatusBadGateway,
	CodeRateLimited:         http.StatusTooManyRequests,
}

// HTTPStatus maps an error code onto a response status. Unknown and
// infrastructure codes are reported as 500.
func HTTPStatus(code string) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func IsClientError(code string) bool {
	return HTTPStatus(code) < http.StatusInternalServerError
}
