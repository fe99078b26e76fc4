package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := Wrap(cause, CodeDatabaseError, "failed to load tournament")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDatabaseError, CodeOf(err))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIsMatchesOnCode(t *testing.T) {
	err := fmt.Errorf("join: %w", New(CodeTournamentFull, "tournament is full"))

	assert.True(t, errors.Is(err, New(CodeTournamentFull, "")))
	assert.False(t, errors.Is(err, New(CodeInsufficientFunds, "")))
	assert.True(t, HasCode(err, CodeTournamentFull))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternalServer, CodeOf(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeValidationFailed, http.StatusBadRequest},
		{CodeInvalidState, http.StatusBadRequest},
		{CodeInsufficientFunds, http.StatusBadRequest},
		{CodeAlreadyJoined, http.StatusConflict},
		{CodeTournamentFull, http.StatusConflict},
		{CodeUnauthorized, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeUnimplemented, http.StatusNotImplemented},
		{CodeExternalUnavailable, http.StatusBadGateway},
		{CodeDatabaseError, http.StatusInternalServerError},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestValidationDetails(t *testing.T) {
	err := Validation(map[string]string{"title": "is required"})

	assert.Equal(t, CodeValidationFailed, err.Code)
	assert.Equal(t, "is required", err.Details["title"])
	assert.True(t, IsClientError(err.Code))
}
