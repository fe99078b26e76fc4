package models

import (
	"fmt"
	"strings"
	"time"
)

type Tournament struct {
	TournamentId         string           `dynamodbav:"tournament_id" json:"id"`
	Slug                 string           `dynamodbav:"slug" json:"slug"`
	Title                string           `dynamodbav:"title" json:"title"`
	Description          string           `dynamodbav:"description" json:"description,omitempty"`
	Game                 Game             `dynamodbav:"game" json:"game"`
	Format               TournamentFormat `dynamodbav:"format" json:"format"`
	MaxParticipants      int              `dynamodbav:"max_participants" json:"maxParticipants"`
	ParticipantCount     int              `dynamodbav:"participant_count" json:"participantCount"`
	EntryFee             int64            `dynamodbav:"entry_fee" json:"entryFee"`
	PrizePool            int64            `dynamodbav:"prize_pool" json:"prizePool"`
	StartDate            time.Time        `dynamodbav:"start_date" json:"startDate"`
	RegistrationDeadline time.Time        `dynamodbav:"registration_deadline" json:"registrationDeadline"`
	Status               TournamentStatus `dynamodbav:"status" json:"status"`
	Visibility           Visibility       `dynamodbav:"visibility" json:"visibility"`
	InviteCode           string           `dynamodbav:"invite_code,omitempty" json:"inviteCode,omitempty"`
	Region               string           `dynamodbav:"region" json:"region"`
	CreatorId            string           `dynamodbav:"creator_id" json:"creatorId"`
	BannerURL            string           `dynamodbav:"banner_url,omitempty" json:"bannerUrl,omitempty"`
	WinnerId             string           `dynamodbav:"winner_id,omitempty" json:"winnerId,omitempty"`
	CreatedAt            time.Time        `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt            time.Time        `dynamodbav:"updated_at" json:"updatedAt"`

	// RegistrationClosesAt mirrors RegistrationDeadline in SortableTime form
	// so write conditions can compare it as a string.
	RegistrationClosesAt string `dynamodbav:"registration_closes_at" json:"-"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
	GSI2PK string `dynamodbav:"GSI2PK" json:"-"`
	GSI2SK string `dynamodbav:"GSI2SK" json:"-"`
}

type TournamentStatus string

const (
	TournamentDraft      TournamentStatus = "draft"
	TournamentOpen       TournamentStatus = "open"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
	TournamentCancelled  TournamentStatus = "cancelled"
)

var tournamentTransitions = map[TournamentStatus][]TournamentStatus{
	TournamentDraft:      {TournamentOpen, TournamentCancelled},
	TournamentOpen:       {TournamentInProgress, TournamentCancelled},
	TournamentInProgress: {TournamentCompleted, TournamentCancelled},
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	for _, allowed := range tournamentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Redacted hides the invite code from anyone but the owner.
func (t *Tournament) Redacted() *Tournament {
	out := *t
	out.InviteCode = ""
	return &out
}

// Leavable statuses are the ones where a participant may still withdraw
// with a refund.
func (s TournamentStatus) Leavable() bool {
	return s == TournamentDraft || s == TournamentOpen
}

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "single_elimination"
	FormatDoubleElimination TournamentFormat = "double_elimination"
	FormatRoundRobin        TournamentFormat = "round_robin"
	FormatSwiss             TournamentFormat = "swiss"
)

type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityPrivate    Visibility = "private"
	VisibilityInviteOnly Visibility = "invite_only"
)

type Game string

const (
	GameValorant        Game = "valorant"
	GameLeagueOfLegends Game = "league_of_legends"
	GameCS2             Game = "cs2"
	GameDota2           Game = "dota2"
	GameRocketLeague    Game = "rocket_league"
)

// Key handlers
func TournamentPK(tournamentID string) string {
	return fmt.Sprintf("TOURNAMENT#%s", tournamentID)
}

func MetaSK() string {
	return "META"
}

func TournamentListGSI1PK() string {
	return "TOURNAMENTS"
}

func TournamentStartGSI1SK(game Game, startDate time.Time) string {
	return fmt.Sprintf("GAME#%s#START#%s", game, SortableTime(startDate))
}

func CreatorGSI2PK(creatorID string) string {
	return fmt.Sprintf("CREATOR#%s", creatorID)
}

func CreatorTournamentGSI2SK(createdAt time.Time) string {
	return fmt.Sprintf("TOURNAMENT#%s", SortableTime(createdAt))
}

func ExtractTournamentID(pk string) (string, error) {
	id, ok := strings.CutPrefix(pk, "TOURNAMENT#")
	if !ok || id == "" {
		return "", fmt.Errorf("invalid tournament PK format: %s", pk)
	}
	return id, nil
}

// SortableTime renders t in fixed-width UTC so keys sort chronologically.
func SortableTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}
