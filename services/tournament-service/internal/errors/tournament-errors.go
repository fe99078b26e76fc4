package errors

import (
	"fmt"
	"time"

	apperrors "github.com/bracket-esports/bracket/common/errors"
)

func TournamentNotFoundError(tournamentId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("tournament %s not found", tournamentId))
}

func TournamentNotOpenError(status string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("tournament is not open for registration (status: %s)", status))
}

func RegistrationClosedError(deadline time.Time) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("registration deadline has passed: %s", deadline.Format(time.RFC3339)))
}

func AlreadyJoinedError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeAlreadyJoined, "user has already joined this tournament")
}

func TournamentFullError(max int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeTournamentFull,
		fmt.Sprintf("tournament is full (%d participants)", max))
}

func InsufficientFundsError(balance, fee int64) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInsufficientFunds,
		fmt.Sprintf("insufficient coins: balance %d, entry fee %d", balance, fee))
}

func NotParticipantError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotParticipant, "user is not a participant of this tournament")
}

func LeaveNotAllowedError(status string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("cannot leave a tournament that is %s", status))
}

func InvalidTransitionError(from, to string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidState,
		fmt.Sprintf("tournament cannot move from %s to %s", from, to))
}

func InviteRequiredError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeForbidden, "a valid invite code is required for this tournament")
}

func TournamentDetailsHiddenError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeForbidden, "tournament details are visible to its participants only")
}

func NotTournamentOwnerError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeForbidden, "only the tournament creator can do this")
}

func WinnerNotParticipantError(userId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidInput,
		fmt.Sprintf("winner %s is not a participant", userId))
}
