package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

type ParticipantRepository interface {
	Get(ctx context.Context, tournamentId, userId string) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentId string) ([]models.Participant, error)
	ListByUser(ctx context.Context, userId string) ([]models.Participant, error)
}

type participantRepo struct {
	db *database.DynamoDBClient
}

func NewParticipantRepository(db *database.DynamoDBClient) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) Get(ctx context.Context, tournamentId, userId string) (*models.Participant, error) {
	participant, err := getItem[models.Participant](ctx, r.db.Client, r.db.Table(),
		models.TournamentPK(tournamentId), models.ParticipantSK(userId))
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return participant, nil
}

func (r *participantRepo) ListByTournament(ctx context.Context, tournamentId string) ([]models.Participant, error) {
	participants, err := queryAll[models.Participant](ctx, r.db.Client,
		partitionQuery(r.db.Table(), models.TournamentPK(tournamentId), models.ParticipantSKPrefix()))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

func (r *participantRepo) ListByUser(ctx context.Context, userId string) ([]models.Participant, error) {
	participants, err := queryAll[models.Participant](ctx, r.db.Client, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.UserGSI1PK(userId)),
			":sk": stringValue("TOURNAMENT#"),
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user tournaments: %w", err)
	}
	return participants, nil
}
