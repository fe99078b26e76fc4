package errors

const (
	// Generic codes
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeConflict           = "CONFLICT"
	CodeInternalServer     = "INTERNAL_SERVER"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeUnimplemented      = "UNIMPLEMENTED"

	// Domain codes
	CodeInvalidState        = "INVALID_STATE"
	CodeTournamentFull      = "TOURNAMENT_FULL"
	CodeAlreadyJoined       = "ALREADY_JOINED"
	CodeNotParticipant      = "NOT_PARTICIPANT"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeTeamFull            = "TEAM_FULL"
	CodeCaptainMustTransfer = "CAPTAIN_MUST_TRANSFER"
	CodeExternalUnavailable = "EXTERNAL_UNAVAILABLE"
	CodeRateLimited         = "RATE_LIMITED"

	// Infrastructure codes
	CodeEventPublishError      = "EVENT_PUBLISH_ERROR"
	CodeEventSubscribtionError = "EVENT_SUBSCRIPTION_ERROR"
	CodeObjectMarshalError     = "OBJECT_MARSHALL_ERROR"
	CodeObjectUnmarshalError   = "OBJECT_UNMARSHALL_ERROR"
	CodeDatabaseError          = "DATABASE_ERROR"
	CodeTransactionError       = "TRANSACTION_ERROR"
	CodeRedisOperationError    = "REDIS_ERROR"
	CodeStorageError           = "STORAGE_ERROR"
)
