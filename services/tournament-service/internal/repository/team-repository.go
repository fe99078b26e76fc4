package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

const (
	labelTeam      = "team"
	labelMember    = "member"
	labelNewMember = "new_member"
	labelTag       = "tag"
)

type TeamRepository interface {
	Create(ctx context.Context, team *models.Team, captain *models.TeamMembership) error
	GetById(ctx context.Context, teamId string) (*models.Team, error)
	List(ctx context.Context, game models.Game) ([]models.Team, error)
	GetMember(ctx context.Context, teamId, userId string) (*models.TeamMembership, error)
	ListMembers(ctx context.Context, teamId string) ([]models.TeamMembership, error)
	ListMembershipsByUser(ctx context.Context, userId string) ([]models.TeamMembership, error)
	AddMember(ctx context.Context, team *models.Team, member *models.TeamMembership) error
	RemoveMember(ctx context.Context, team *models.Team, userId string) error
	Disband(ctx context.Context, team *models.Team) error
	TransferCaptain(ctx context.Context, team *models.Team, newCaptainId string) error
	SetLogo(ctx context.Context, teamId, url string) error
}

type teamRepo struct {
	db              *database.DynamoDBClient
	transactionRepo database.TransactionRepository
}

func NewTeamRepository(db *database.DynamoDBClient, transactionRepo database.TransactionRepository) TeamRepository {
	return &teamRepo{db: db, transactionRepo: transactionRepo}
}

func (r *teamRepo) Create(ctx context.Context, team *models.Team, captain *models.TeamMembership) error {
	team.PK = models.TeamPK(team.TeamId)
	team.SK = models.MetaSK()
	team.GSI1PK = models.TeamListGSI1PK()
	team.GSI1SK = models.TeamCreatedGSI1SK(team.CreatedAt)

	teamPut, err := putNew(r.db.Table(), team)
	if err != nil {
		return fmt.Errorf("failed to marshal team: %w", err)
	}
	memberPut, err := r.memberPut(captain)
	if err != nil {
		return err
	}
	tagPut, err := putNew(r.db.Table(), map[string]string{
		"PK":      models.TeamTagPK(team.Tag),
		"SK":      models.TeamTagSK(),
		"team_id": team.TeamId,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal team tag: %w", err)
	}

	tb := database.NewTransactionBuilder()
	for _, step := range []struct {
		label string
		put   types.Put
	}{
		{labelTag, tagPut},
		{labelTeam, teamPut},
		{labelMember, memberPut},
	} {
		if err := tb.AddPut(step.label, step.put); err != nil {
			return err
		}
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	if errors.As(err, &cfe) && cfe.Failed(labelTag) {
		return ErrTagTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *teamRepo) GetById(ctx context.Context, teamId string) (*models.Team, error) {
	team, err := getItem[models.Team](ctx, r.db.Client, r.db.Table(), models.TeamPK(teamId), models.MetaSK())
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

func (r *teamRepo) List(ctx context.Context, game models.Game) ([]models.Team, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.TeamListGSI1PK()),
		},
		ScanIndexForward: aws.Bool(false),
	}
	if game != "" {
		input.FilterExpression = aws.String("game = :game")
		input.ExpressionAttributeValues[":game"] = stringValue(string(game))
	}

	teams, err := queryAll[models.Team](ctx, r.db.Client, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	return teams, nil
}

func (r *teamRepo) GetMember(ctx context.Context, teamId, userId string) (*models.TeamMembership, error) {
	member, err := getItem[models.TeamMembership](ctx, r.db.Client, r.db.Table(),
		models.TeamPK(teamId), models.TeamMemberSK(userId))
	if err != nil {
		return nil, fmt.Errorf("failed to get team member: %w", err)
	}
	return member, nil
}

func (r *teamRepo) ListMembers(ctx context.Context, teamId string) ([]models.TeamMembership, error) {
	members, err := queryAll[models.TeamMembership](ctx, r.db.Client,
		partitionQuery(r.db.Table(), models.TeamPK(teamId), models.TeamMemberSKPrefix()))
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

func (r *teamRepo) ListMembershipsByUser(ctx context.Context, userId string) ([]models.TeamMembership, error) {
	members, err := queryAll[models.TeamMembership](ctx, r.db.Client, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.UserGSI1PK(userId)),
			":sk": stringValue("TEAM#"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user teams: %w", err)
	}
	return members, nil
}

// AddMember grows the roster only while member_count < max_members.
func (r *teamRepo) AddMember(ctx context.Context, team *models.Team, member *models.TeamMembership) error {
	memberPut, err := r.memberPut(member)
	if err != nil {
		return err
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddUpdate(labelTeam, r.memberCountUpdate(team.TeamId, 1,
		"attribute_exists(PK) AND member_count < max_members", nil)); err != nil {
		return err
	}
	if err := tb.AddPut(labelMember, memberPut); err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cfe) && cfe.Failed(labelMember):
		return ErrMemberExists
	case errors.As(err, &cfe) && cfe.Failed(labelTeam):
		return ErrTeamConditionFailed
	default:
		return fmt.Errorf("failed to add team member: %w", err)
	}
}

// RemoveMember drops a non-captain member.
func (r *teamRepo) RemoveMember(ctx context.Context, team *models.Team, userId string) error {
	tb := database.NewTransactionBuilder()
	if err := tb.AddUpdate(labelTeam, r.memberCountUpdate(team.TeamId, -1,
		"attribute_exists(PK) AND captain_id <> :user AND member_count > :one",
		map[string]types.AttributeValue{":user": stringValue(userId), ":one": numberValue(1)})); err != nil {
		return err
	}
	if err := tb.AddDelete(labelMember, types.Delete{
		TableName:           aws.String(r.db.Table()),
		Key:                 itemKey(models.TeamPK(team.TeamId), models.TeamMemberSK(userId)),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return err
	}

	err := r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cfe) && cfe.Failed(labelMember):
		return ErrMemberMissing
	case errors.As(err, &cfe) && cfe.Failed(labelTeam):
		return ErrTeamConditionFailed
	default:
		return fmt.Errorf("failed to remove team member: %w", err)
	}
}

// Disband deletes a team whose captain is its only member.
func (r *teamRepo) Disband(ctx context.Context, team *models.Team) error {
	tb := database.NewTransactionBuilder()
	if err := tb.AddDelete(labelTeam, types.Delete{
		TableName:           aws.String(r.db.Table()),
		Key:                 itemKey(models.TeamPK(team.TeamId), models.MetaSK()),
		ConditionExpression: aws.String("member_count = :one AND captain_id = :captain"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":     numberValue(1),
			":captain": stringValue(team.CaptainId),
		},
	}); err != nil {
		return err
	}
	if err := tb.AddDelete(labelMember, types.Delete{
		TableName: aws.String(r.db.Table()),
		Key:       itemKey(models.TeamPK(team.TeamId), models.TeamMemberSK(team.CaptainId)),
	}); err != nil {
		return err
	}
	if err := tb.AddDelete(labelTag, types.Delete{
		TableName: aws.String(r.db.Table()),
		Key:       itemKey(models.TeamTagPK(team.Tag), models.TeamTagSK()),
	}); err != nil {
		return err
	}

	err := r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	if errors.As(err, &cfe) {
		return ErrTeamConditionFailed
	}
	if err != nil {
		return fmt.Errorf("failed to disband team: %w", err)
	}
	return nil
}

// TransferCaptain swaps the captain role so exactly one member holds it.
func (r *teamRepo) TransferCaptain(ctx context.Context, team *models.Team, newCaptainId string) error {
	now := timeValue(time.Now().UTC())

	tb := database.NewTransactionBuilder()
	if err := tb.AddUpdate(labelTeam, types.Update{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.TeamPK(team.TeamId), models.MetaSK()),
		UpdateExpression: aws.String("SET captain_id = :new, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new": stringValue(newCaptainId),
			":old": stringValue(team.CaptainId),
			":now": now,
		},
		ConditionExpression: aws.String("captain_id = :old"),
	}); err != nil {
		return err
	}
	if err := tb.AddUpdate(labelMember, r.roleUpdate(team.TeamId, team.CaptainId, models.TeamMember)); err != nil {
		return err
	}
	if err := tb.AddUpdate(labelNewMember, r.roleUpdate(team.TeamId, newCaptainId, models.TeamCaptain)); err != nil {
		return err
	}

	err := r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cfe) && cfe.Failed(labelNewMember):
		return ErrMemberMissing
	case errors.As(err, &cfe):
		return ErrTeamConditionFailed
	default:
		return fmt.Errorf("failed to transfer captaincy: %w", err)
	}
}

func (r *teamRepo) SetLogo(ctx context.Context, teamId, url string) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.TeamPK(teamId), models.MetaSK()),
		UpdateExpression: aws.String("SET logo_url = :url, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":url": stringValue(url),
			":now": timeValue(time.Now().UTC()),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to set team logo: %w", err)
	}
	return nil
}

func (r *teamRepo) memberPut(member *models.TeamMembership) (types.Put, error) {
	member.PK = models.TeamPK(member.TeamId)
	member.SK = models.TeamMemberSK(member.UserId)
	member.GSI1PK = models.UserGSI1PK(member.UserId)
	member.GSI1SK = models.MemberTeamGSI1SK(member.TeamId)

	put, err := putNew(r.db.Table(), member)
	if err != nil {
		return types.Put{}, fmt.Errorf("failed to marshal team member: %w", err)
	}
	return put, nil
}

func (r *teamRepo) memberCountUpdate(
	teamId string,
	delta int64,
	condition string,
	extra map[string]types.AttributeValue,
) types.Update {
	values := map[string]types.AttributeValue{
		":delta": numberValue(delta),
		":now":   timeValue(time.Now().UTC()),
	}
	for k, v := range extra {
		values[k] = v
	}

	return types.Update{
		TableName:                 aws.String(r.db.Table()),
		Key:                       itemKey(models.TeamPK(teamId), models.MetaSK()),
		UpdateExpression:          aws.String("SET member_count = member_count + :delta, updated_at = :now"),
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String(condition),
	}
}

func (r *teamRepo) roleUpdate(teamId, userId string, role models.TeamRole) types.Update {
	return types.Update{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.TeamPK(teamId), models.TeamMemberSK(userId)),
		UpdateExpression: aws.String("SET #role = :role"),
		ExpressionAttributeNames: map[string]string{
			"#role": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":role": stringValue(string(role)),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}
}
