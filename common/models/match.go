package models

import (
	"fmt"
	"time"
)

type MatchStatus string

const (
	MatchTracking  MatchStatus = "tracking"
	MatchCompleted MatchStatus = "completed"
)

type Lobby struct {
	LobbyId      string    `dynamodbav:"lobby_id" json:"id"`
	TournamentId string    `dynamodbav:"tournament_id" json:"tournamentId"`
	Game         Game      `dynamodbav:"game" json:"game"`
	Region       string    `dynamodbav:"region" json:"region"`
	Code         string    `dynamodbav:"code" json:"code"`
	CreatedBy    string    `dynamodbav:"created_by" json:"createdBy"`
	CreatedAt    time.Time `dynamodbav:"created_at" json:"createdAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

type Match struct {
	MatchId         string      `dynamodbav:"match_id" json:"id"`
	TournamentId    string      `dynamodbav:"tournament_id" json:"tournamentId"`
	LobbyId         string      `dynamodbav:"lobby_id" json:"lobbyId"`
	Game            Game        `dynamodbav:"game" json:"game"`
	Region          string      `dynamodbav:"region" json:"region"`
	ExternalMatchId string      `dynamodbav:"external_match_id" json:"externalMatchId"`
	Status          MatchStatus `dynamodbav:"status" json:"status"`
	Map             string      `dynamodbav:"map,omitempty" json:"map,omitempty"`
	StartedAt       *time.Time  `dynamodbav:"started_at,omitempty" json:"startedAt,omitempty"`
	DurationSeconds int         `dynamodbav:"duration_seconds" json:"durationSeconds"`
	WinningTeam     string      `dynamodbav:"winning_team,omitempty" json:"winningTeam,omitempty"`
	CompletedAt     *time.Time  `dynamodbav:"completed_at,omitempty" json:"completedAt,omitempty"`
	CreatedAt       time.Time   `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt       time.Time   `dynamodbav:"updated_at" json:"updatedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
	// GSI2 is sparse: only matches still being tracked carry it.
	GSI2PK string `dynamodbav:"GSI2PK,omitempty" json:"-"`
	GSI2SK string `dynamodbav:"GSI2SK,omitempty" json:"-"`
}

type PlayerMatchStats struct {
	MatchId          string `dynamodbav:"match_id" json:"matchId"`
	ExternalPlayerId string `dynamodbav:"external_player_id" json:"externalPlayerId"`
	UserId           string `dynamodbav:"user_id,omitempty" json:"userId,omitempty"`
	Name             string `dynamodbav:"name" json:"name"`
	Team             string `dynamodbav:"team" json:"team"`
	Character        string `dynamodbav:"character,omitempty" json:"character,omitempty"`
	Kills            int    `dynamodbav:"kills" json:"kills"`
	Deaths           int    `dynamodbav:"deaths" json:"deaths"`
	Assists          int    `dynamodbav:"assists" json:"assists"`
	Score            int    `dynamodbav:"score" json:"score"`
	RoundsPlayed     int    `dynamodbav:"rounds_played" json:"roundsPlayed"`
	Damage           int    `dynamodbav:"damage" json:"damage"`
	Won              bool   `dynamodbav:"won" json:"won"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

type MatchRound struct {
	MatchId     string            `dynamodbav:"match_id" json:"matchId"`
	RoundNumber int               `dynamodbav:"round_number" json:"roundNumber"`
	WinningTeam string            `dynamodbav:"winning_team" json:"winningTeam"`
	Result      string            `dynamodbav:"result" json:"result"`
	PlayerStats []RoundPlayerStat `dynamodbav:"player_stats" json:"playerStats"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

type RoundPlayerStat struct {
	ExternalPlayerId string `dynamodbav:"external_player_id" json:"externalPlayerId"`
	Kills            int    `dynamodbav:"kills" json:"kills"`
	Damage           int    `dynamodbav:"damage" json:"damage"`
	Score            int    `dynamodbav:"score" json:"score"`
}

// ExternalMatchGuard makes tracking idempotent per external match.
type ExternalMatchGuard struct {
	MatchId string `dynamodbav:"match_id"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers
func LobbyPK(lobbyID string) string {
	return fmt.Sprintf("LOBBY#%s", lobbyID)
}

func MatchPK(matchID string) string {
	return fmt.Sprintf("MATCH#%s", matchID)
}

func TournamentChildGSI1PK(tournamentID string) string {
	return TournamentPK(tournamentID)
}

func LobbyCreatedGSI1SK(createdAt time.Time) string {
	return fmt.Sprintf("LOBBY#%s", SortableTime(createdAt))
}

func MatchCreatedGSI1SK(createdAt time.Time) string {
	return fmt.Sprintf("MATCH#%s", SortableTime(createdAt))
}

func MatchTrackingGSI2PK() string {
	return "MATCHES#TRACKING"
}

func PlayerSK(externalPlayerID string) string {
	return fmt.Sprintf("PLAYER#%s", externalPlayerID)
}

func PlayerSKPrefix() string {
	return "PLAYER#"
}

func RoundSK(roundNumber int) string {
	return fmt.Sprintf("ROUND#%03d", roundNumber)
}

func RoundSKPrefix() string {
	return "ROUND#"
}

func ExternalMatchPK(game Game, externalMatchID string) string {
	return fmt.Sprintf("EXTMATCH#%s#%s", game, externalMatchID)
}

func ExternalMatchSK() string {
	return "MATCH"
}
