package models

import (
	"fmt"
	"time"
)

type ParticipantStatus string

const (
	ParticipantRegistered   ParticipantStatus = "registered"
	ParticipantCheckedIn    ParticipantStatus = "checked_in"
	ParticipantDisqualified ParticipantStatus = "disqualified"
)

type Participant struct {
	TournamentId string            `dynamodbav:"tournament_id" json:"tournamentId"`
	UserId       string            `dynamodbav:"user_id" json:"userId"`
	Username     string            `dynamodbav:"username" json:"username"`
	TeamId       string            `dynamodbav:"team_id,omitempty" json:"teamId,omitempty"`
	Status       ParticipantStatus `dynamodbav:"status" json:"status"`
	EntryFeePaid int64             `dynamodbav:"entry_fee_paid" json:"entryFeePaid"`
	JoinedAt     time.Time         `dynamodbav:"joined_at" json:"joinedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

func ParticipantSK(userID string) string {
	return fmt.Sprintf("PARTICIPANT#%s", userID)
}

func ParticipantSKPrefix() string {
	return "PARTICIPANT#"
}

func UserGSI1PK(userID string) string {
	return fmt.Sprintf("USER#%s", userID)
}

func JoinedTournamentGSI1SK(joinedAt time.Time) string {
	return fmt.Sprintf("TOURNAMENT#%s", SortableTime(joinedAt))
}
