package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

type LobbyRepository interface {
	Create(ctx context.Context, lobby *models.Lobby) error
	GetById(ctx context.Context, lobbyId string) (*models.Lobby, error)
	ListByTournament(ctx context.Context, tournamentId string) ([]models.Lobby, error)
}

type lobbyRepo struct {
	db *database.DynamoDBClient
}

func NewLobbyRepository(db *database.DynamoDBClient) LobbyRepository {
	return &lobbyRepo{db: db}
}

func (r *lobbyRepo) Create(ctx context.Context, lobby *models.Lobby) error {
	lobby.PK = models.LobbyPK(lobby.LobbyId)
	lobby.SK = models.MetaSK()
	lobby.GSI1PK = models.TournamentChildGSI1PK(lobby.TournamentId)
	lobby.GSI1SK = models.LobbyCreatedGSI1SK(lobby.CreatedAt)

	item, err := attributevalue.MarshalMap(lobby)
	if err != nil {
		return fmt.Errorf("failed to marshal lobby: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to create lobby: %w", err)
	}
	return nil
}

func (r *lobbyRepo) GetById(ctx context.Context, lobbyId string) (*models.Lobby, error) {
	lobby, err := getItem[models.Lobby](ctx, r.db.Client, r.db.Table(), models.LobbyPK(lobbyId), models.MetaSK())
	if err != nil {
		return nil, fmt.Errorf("failed to get lobby: %w", err)
	}
	return lobby, nil
}

func (r *lobbyRepo) ListByTournament(ctx context.Context, tournamentId string) ([]models.Lobby, error) {
	lobbies, err := queryAll[models.Lobby](ctx, r.db.Client, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.TournamentChildGSI1PK(tournamentId)),
			":sk": stringValue("LOBBY#"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %w", err)
	}
	return lobbies, nil
}
