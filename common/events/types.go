package events

const (
	// Streams
	BracketEventsStream = "BRACKET_EVENTS"

	// Tournament events
	TournamentCreated       = "events.tournament.created"
	TournamentJoined        = "events.tournament.joined"
	TournamentLeft          = "events.tournament.left"
	TournamentStatusChanged = "events.tournament.statusChanged"
	TournamentCompleted     = "events.tournament.completed"

	// Team events
	TeamCreated      = "events.team.created"
	TeamMemberJoined = "events.team.memberJoined"
	TeamMemberLeft   = "events.team.memberLeft"
	TeamDisbanded    = "events.team.disbanded"

	// Match events
	MatchCompleted = "events.match.completed"

	// User events
	UserRegistered = "events.user.registered"

	// Event Wildcards
	AllEventsWildcard        = "events.>"
	TournamentEventsWildcard = "events.tournament.*"
	MatchEventsWildcard      = "events.match.*"
	UserEventsWildcard       = "events.user.*"
)
