package errors

import (
	"fmt"

	apperrors "github.com/bracket-esports/bracket/common/errors"
)

func TeamNotFoundError(teamId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("team %s not found", teamId))
}

func AlreadyTeamMemberError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeConflict, "user is already a member of this team")
}

func TeamFullError(max int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeTeamFull, fmt.Sprintf("team is full (%d members)", max))
}

func NotTeamMemberError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, "user is not a member of this team")
}

func CaptainMustTransferError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeCaptainMustTransfer,
		"captain must transfer captaincy before leaving a team with other members")
}

func NotCaptainError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeForbidden, "only the team captain can do this")
}

func TeamTagTakenError(tag string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeAlreadyExists, fmt.Sprintf("team tag %s is already taken", tag))
}

func NotMemberOfTeamError(teamId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeForbidden, fmt.Sprintf("user is not a member of team %s", teamId))
}
