package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
)

func newTeamService(t *testing.T) (*teamService, *memDB, *recordingPublisher) {
	t.Helper()

	db := newMemDB()
	pub := &recordingPublisher{}
	svc := NewTeamService(fakeTeamRepo{db}, &fakeImageStore{}, pub, logger.Nop()).(*teamService)
	svc.now = func() time.Time { return testNow }
	return svc, db, pub
}

func member(id string) Actor {
	return Actor{UserId: id, Username: "user_" + id, Role: models.RolePlayer}
}

func TestCreateTeam(t *testing.T) {
	svc, db, pub := newTeamService(t)

	team, err := svc.Create(context.Background(), member("cap"), CreateTeamInput{Name: "Night Owls", Tag: "nto"})
	require.NoError(t, err)

	assert.Equal(t, "NTO", team.Tag)
	assert.Equal(t, DefaultTeamMembers, team.MaxMembers)
	assert.Equal(t, 1, team.MemberCount)
	assert.Equal(t, "cap", team.CaptainId)
	assert.Equal(t, 1, pub.count("team.created"))

	details, err := svc.Get(context.Background(), team.TeamId)
	require.NoError(t, err)
	require.Len(t, details.Members, 1)
	assert.Equal(t, models.TeamCaptain, details.Members[0].Role)

	_, err = svc.Create(context.Background(), member("other"), CreateTeamInput{Name: "Copycats", Tag: "NTO"})
	assert.Equal(t, apperrors.CodeAlreadyExists, apperrors.CodeOf(err))
	_, stillThere := db.team(team.TeamId)
	assert.True(t, stillThere)
}

func TestCreateTeamValidation(t *testing.T) {
	svc, _, _ := newTeamService(t)

	for _, input := range []CreateTeamInput{
		{Name: "", Tag: "OK"},
		{Name: "Tagless", Tag: "A"},
		{Name: "Long", Tag: "TOOLONG"},
		{Name: "Symbols", Tag: "A-B"},
		{Name: "Crowd", Tag: "CRWD", MaxMembers: 11},
	} {
		_, err := svc.Create(context.Background(), member("cap"), input)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.CodeOf(err), input.Name)
	}
}

func TestJoinTeamUntilFull(t *testing.T) {
	svc, db, _ := newTeamService(t)
	team, err := svc.Create(context.Background(), member("cap"), CreateTeamInput{Name: "Duo", Tag: "DUO", MaxMembers: 2})
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), member("cap"), team.TeamId)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))

	_, err = svc.Join(context.Background(), member("m1"), team.TeamId)
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), member("m2"), team.TeamId)
	assert.Equal(t, apperrors.CodeTeamFull, apperrors.CodeOf(err))

	stored, _ := db.team(team.TeamId)
	assert.Equal(t, 2, stored.MemberCount)
	assert.LessOrEqual(t, stored.MemberCount, stored.MaxMembers)

	_, err = svc.Join(context.Background(), member("m3"), "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestLeaveTeam(t *testing.T) {
	svc, db, pub := newTeamService(t)
	team, err := svc.Create(context.Background(), member("cap"), CreateTeamInput{Name: "Trio", Tag: "TRI", MaxMembers: 3})
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), member("m1"), team.TeamId)
	require.NoError(t, err)

	err = svc.Leave(context.Background(), member("stranger"), team.TeamId)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	err = svc.Leave(context.Background(), member("cap"), team.TeamId)
	assert.Equal(t, apperrors.CodeCaptainMustTransfer, apperrors.CodeOf(err))

	require.NoError(t, svc.Leave(context.Background(), member("m1"), team.TeamId))
	stored, _ := db.team(team.TeamId)
	assert.Equal(t, 1, stored.MemberCount)
	assert.Equal(t, 1, pub.count("team.member_left"))
}

func TestSoleCaptainLeavingDeletesTeam(t *testing.T) {
	svc, db, pub := newTeamService(t)
	team, err := svc.Create(context.Background(), member("cap"), CreateTeamInput{Name: "Solo", Tag: "SOLO"})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), member("cap"), team.TeamId))

	_, exists := db.team(team.TeamId)
	assert.False(t, exists)
	assert.Equal(t, 1, pub.count("team.disbanded"))

	// The tag is free again.
	_, err = svc.Create(context.Background(), member("next"), CreateTeamInput{Name: "Solo Again", Tag: "SOLO"})
	assert.NoError(t, err)
}

func TestTransferCaptaincy(t *testing.T) {
	svc, _, _ := newTeamService(t)
	team, err := svc.Create(context.Background(), member("cap"), CreateTeamInput{Name: "Pair", Tag: "PAIR"})
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), member("m1"), team.TeamId)
	require.NoError(t, err)

	err = svc.TransferCaptaincy(context.Background(), member("m1"), team.TeamId, "m1")
	assert.Equal(t, apperrors.CodeForbidden, apperrors.CodeOf(err))

	err = svc.TransferCaptaincy(context.Background(), member("cap"), team.TeamId, "stranger")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	require.NoError(t, svc.TransferCaptaincy(context.Background(), member("cap"), team.TeamId, "m1"))

	details, err := svc.Get(context.Background(), team.TeamId)
	require.NoError(t, err)
	assert.Equal(t, "m1", details.Team.CaptainId)
	captains := 0
	for _, m := range details.Members {
		if m.Role == models.TeamCaptain {
			captains++
			assert.Equal(t, "m1", m.UserId)
		}
	}
	assert.Equal(t, 1, captains)

	// The old captain is now an ordinary member and may leave.
	assert.NoError(t, svc.Leave(context.Background(), member("cap"), team.TeamId))
}

func TestListMyTeams(t *testing.T) {
	svc, _, _ := newTeamService(t)
	a, err := svc.Create(context.Background(), member("u1"), CreateTeamInput{Name: "Alpha", Tag: "ALP"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), member("u2"), CreateTeamInput{Name: "Beta", Tag: "BET"})
	require.NoError(t, err)

	mine, err := svc.ListMine(context.Background(), member("u1"))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.TeamId, mine[0].TeamId)

	page, err := svc.List(context.Background(), "", PageRequest{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
}
