package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RolePlayer  Role = "player"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

type CreatorStatus string

const (
	CreatorNone     CreatorStatus = "none"
	CreatorPending  CreatorStatus = "pending"
	CreatorApproved CreatorStatus = "approved"
)

type User struct {
	UserId         string          `dynamodbav:"user_id" json:"id"`
	Username       string          `dynamodbav:"username" json:"username"`
	Email          string          `dynamodbav:"email" json:"email,omitempty"`
	PasswordHash   string          `dynamodbav:"password_hash" json:"-"`
	Role           Role            `dynamodbav:"role" json:"role"`
	CoinBalance    int64           `dynamodbav:"coin_balance" json:"coinBalance"`
	Stats          UserStats       `dynamodbav:"stats" json:"stats"`
	Creator        CreatorProfile  `dynamodbav:"creator" json:"creator"`
	LinkedAccounts []LinkedAccount `dynamodbav:"linked_accounts" json:"linkedAccounts"`
	CreatedAt      time.Time       `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `dynamodbav:"updated_at" json:"updatedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

type UserStats struct {
	TournamentsJoined int   `dynamodbav:"tournaments_joined" json:"tournamentsJoined"`
	TournamentsWon    int   `dynamodbav:"tournaments_won" json:"tournamentsWon"`
	TotalEarnings     int64 `dynamodbav:"total_earnings" json:"totalEarnings"`
	MatchesPlayed     int   `dynamodbav:"matches_played" json:"matchesPlayed"`
}

type CreatorProfile struct {
	Status     CreatorStatus `dynamodbav:"status" json:"status"`
	ChannelURL string        `dynamodbav:"channel_url,omitempty" json:"channelUrl,omitempty"`
	AppliedAt  *time.Time    `dynamodbav:"applied_at,omitempty" json:"appliedAt,omitempty"`
	ApprovedAt *time.Time    `dynamodbav:"approved_at,omitempty" json:"approvedAt,omitempty"`
}

type LinkedAccount struct {
	Platform    Game      `dynamodbav:"platform" json:"platform"`
	ExternalId  string    `dynamodbav:"external_id" json:"externalId"`
	DisplayName string    `dynamodbav:"display_name" json:"displayName"`
	Region      string    `dynamodbav:"region" json:"region"`
	Verified    bool      `dynamodbav:"verified" json:"verified"`
	LinkedAt    time.Time `dynamodbav:"linked_at" json:"linkedAt"`
}

// PublicView strips private fields for other users' eyes.
func (u *User) PublicView() *User {
	return &User{
		UserId:         u.UserId,
		Username:       u.Username,
		Role:           u.Role,
		Stats:          u.Stats,
		LinkedAccounts: u.LinkedAccounts,
		CreatedAt:      u.CreatedAt,
	}
}

func (u *User) LinkedAccount(platform Game) (LinkedAccount, bool) {
	for _, acc := range u.LinkedAccounts {
		if acc.Platform == platform {
			return acc, true
		}
	}
	return LinkedAccount{}, false
}

// UsernameGuard reserves a username across the table.
type UsernameGuard struct {
	Username string `dynamodbav:"username"`
	UserId   string `dynamodbav:"user_id"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// PlayedMatch marks that a match was counted in a user's matches_played.
type PlayedMatch struct {
	UserId     string    `dynamodbav:"user_id"`
	MatchId    string    `dynamodbav:"match_id"`
	RecordedAt time.Time `dynamodbav:"recorded_at"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// AccountLink maps an external game account to the user who linked it.
type AccountLink struct {
	Platform   Game   `dynamodbav:"platform"`
	ExternalId string `dynamodbav:"external_id"`
	UserId     string `dynamodbav:"user_id"`

	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// Key handlers
func UserPK(userId string) string {
	return fmt.Sprintf("USER#%s", userId)
}

func ProfileSK() string {
	return "PROFILE"
}

func PlayedMatchSK(matchId string) string {
	return fmt.Sprintf("PLAYED#%s", matchId)
}

func UsernamePK(username string) string {
	return fmt.Sprintf("USERNAME#%s", strings.ToLower(username))
}

func UsernameSK() string {
	return "USERNAME"
}

func AccountLinkPK(platform Game, externalID string) string {
	return fmt.Sprintf("ACCOUNT#%s#%s", platform, externalID)
}

func AccountLinkSK() string {
	return "LINK"
}

func ExtractUserID(pk string) (string, error) {
	id, ok := strings.CutPrefix(pk, "USER#")
	if !ok || id == "" {
		return "", fmt.Errorf("invalid user PK format: %s", pk)
	}
	return id, nil
}
