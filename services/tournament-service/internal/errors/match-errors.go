package errors

import (
	"fmt"

	apperrors "github.com/bracket-esports/bracket/common/errors"
)

func LobbyNotFoundError(lobbyId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("lobby %s not found", lobbyId))
}

func MatchNotFoundError(matchId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("match %s not found", matchId))
}

func MatchTrackedElsewhereError(externalMatchId string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeConflict,
		fmt.Sprintf("match %s is already tracked by another lobby", externalMatchId))
}

func StatsNotImplementedError(game string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeUnimplemented,
		fmt.Sprintf("detailed match processing is not implemented for %s", game))
}

func NoStatsSourceError(game string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("no statistics source for %s", game))
}

// External API failures, keyed by the upstream HTTP status.
func GameAPIForbiddenError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeExternalUnavailable, "game API rejected the credentials")
}

func GameAPIRateLimitedError() *apperrors.AppError {
	return apperrors.New(apperrors.CodeExternalUnavailable, "game API rate limit exceeded")
}

func GameAPIUnavailableError(status int) *apperrors.AppError {
	return apperrors.New(apperrors.CodeExternalUnavailable,
		fmt.Sprintf("game API is unavailable (status %d)", status))
}

func GameAPINotFoundError(what string) *apperrors.AppError {
	return apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("%s not found on game API", what))
}
