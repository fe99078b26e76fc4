package errors

import (
	"fmt"

	apperrors "github.com/bracket-esports/bracket/common/errors"
)

func UserNotFoundError(userId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("user %s not found", userId))
}

func UsernameTakenError(username string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeAlreadyExists, fmt.Sprintf("username %s is already taken", username))
}

func InvalidCredentialsError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeUnauthorized, "invalid username or password")
}

func AccountAlreadyLinkedError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeConflict, "this gaming account is already linked to a user")
}

func AccountNotLinkedError(platform string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("no %s account linked", platform))
}

func CreatorApplicationError(status string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("creator application not possible in status %s", status))
}

func CreatorRoleRequiredError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeForbidden, "creator role required")
}
