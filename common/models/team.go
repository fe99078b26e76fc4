package models

import (
	"fmt"
	"strings"
	"time"
)

type TeamRole string

const (
	TeamCaptain    TeamRole = "captain"
	TeamMember     TeamRole = "member"
	TeamSubstitute TeamRole = "substitute"
)

type Team struct {
	TeamId      string    `dynamodbav:"team_id" json:"id"`
	Name        string    `dynamodbav:"name" json:"name"`
	Tag         string    `dynamodbav:"tag" json:"tag"`
	Game        Game      `dynamodbav:"game,omitempty" json:"game,omitempty"`
	CaptainId   string    `dynamodbav:"captain_id" json:"captainId"`
	MaxMembers  int       `dynamodbav:"max_members" json:"maxMembers"`
	MemberCount int       `dynamodbav:"member_count" json:"memberCount"`
	LogoURL     string    `dynamodbav:"logo_url,omitempty" json:"logoUrl,omitempty"`
	CreatedAt   time.Time `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at" json:"updatedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

type TeamMembership struct {
	TeamId   string    `dynamodbav:"team_id" json:"teamId"`
	UserId   string    `dynamodbav:"user_id" json:"userId"`
	Username string    `dynamodbav:"username" json:"username"`
	Role     TeamRole  `dynamodbav:"role" json:"role"`
	JoinedAt time.Time `dynamodbav:"joined_at" json:"joinedAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`

	GSI1PK string `dynamodbav:"GSI1PK" json:"-"`
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"`
}

// Key handlers
func TeamPK(teamID string) string {
	return fmt.Sprintf("TEAM#%s", teamID)
}

func TeamMemberSK(userID string) string {
	return fmt.Sprintf("MEMBER#%s", userID)
}

func TeamMemberSKPrefix() string {
	return "MEMBER#"
}

func TeamListGSI1PK() string {
	return "TEAMS"
}

func TeamCreatedGSI1SK(createdAt time.Time) string {
	return fmt.Sprintf("TEAM#%s", SortableTime(createdAt))
}

func MemberTeamGSI1SK(teamID string) string {
	return fmt.Sprintf("TEAM#%s", teamID)
}

func TeamTagPK(tag string) string {
	return fmt.Sprintf("TEAMTAG#%s", strings.ToUpper(tag))
}

func TeamTagSK() string {
	return "TAG"
}
