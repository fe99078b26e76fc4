package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

type TournamentFilter struct {
	Game   models.Game
	Status models.TournamentStatus
	Format models.TournamentFormat
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetById(ctx context.Context, tournamentId string) (*models.Tournament, error)
	List(ctx context.Context, filter TournamentFilter) ([]models.Tournament, error)
	ListByCreator(ctx context.Context, creatorId string) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, tournamentId string, from, to models.TournamentStatus) error
	SetBanner(ctx context.Context, tournamentId, url string) error
}

type tournamentRepo struct {
	db *database.DynamoDBClient
}

func NewTournamentRepository(db *database.DynamoDBClient) TournamentRepository {
	return &tournamentRepo{db: db}
}

func (r *tournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	tournament.PK = models.TournamentPK(tournament.TournamentId)
	tournament.SK = models.MetaSK()
	tournament.GSI1PK = models.TournamentListGSI1PK()
	tournament.GSI1SK = models.TournamentStartGSI1SK(tournament.Game, tournament.StartDate)
	tournament.GSI2PK = models.CreatorGSI2PK(tournament.CreatorId)
	tournament.GSI2SK = models.CreatorTournamentGSI2SK(tournament.CreatedAt)
	tournament.RegistrationClosesAt = models.SortableTime(tournament.RegistrationDeadline)

	item, err := attributevalue.MarshalMap(tournament)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.db.Table()),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to create tournament: %w", err)
	}

	return nil
}

func (r *tournamentRepo) GetById(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	tournament, err := getItem[models.Tournament](ctx, r.db.Client, r.db.Table(),
		models.TournamentPK(tournamentId), models.MetaSK())
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	return tournament, nil
}

func (r *tournamentRepo) List(ctx context.Context, filter TournamentFilter) ([]models.Tournament, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.TournamentListGSI1PK()),
		},
	}

	if filter.Game != "" {
		input.KeyConditionExpression = aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :game)")
		input.ExpressionAttributeValues[":game"] = stringValue(fmt.Sprintf("GAME#%s#", filter.Game))
	}

	var filters []string
	if filter.Status != "" {
		filters = append(filters, "#status = :status")
		input.ExpressionAttributeValues[":status"] = stringValue(string(filter.Status))
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
	}
	if filter.Format != "" {
		filters = append(filters, "#format = :format")
		input.ExpressionAttributeValues[":format"] = stringValue(string(filter.Format))
		if input.ExpressionAttributeNames == nil {
			input.ExpressionAttributeNames = map[string]string{}
		}
		input.ExpressionAttributeNames["#format"] = "format"
	}
	if len(filters) > 0 {
		expr := filters[0]
		for _, f := range filters[1:] {
			expr += " AND " + f
		}
		input.FilterExpression = aws.String(expr)
	}

	tournaments, err := queryAll[models.Tournament](ctx, r.db.Client, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *tournamentRepo) ListByCreator(ctx context.Context, creatorId string) ([]models.Tournament, error) {
	tournaments, err := queryAll[models.Tournament](ctx, r.db.Client, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI2),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.CreatorGSI2PK(creatorId)),
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list creator tournaments: %w", err)
	}
	return tournaments, nil
}

func (r *tournamentRepo) UpdateStatus(
	ctx context.Context,
	tournamentId string,
	from, to models.TournamentStatus,
) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.TournamentPK(tournamentId), models.MetaSK()),
		UpdateExpression: aws.String("SET #status = :to, updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":from": stringValue(string(from)),
			":to":   stringValue(string(to)),
			":now":  timeValue(time.Now().UTC()),
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :from"),
	})
	if err != nil {
		if database.IsConditionFailed(err) {
			return ErrTournamentConditionFailed
		}
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return nil
}

func (r *tournamentRepo) SetBanner(ctx context.Context, tournamentId, url string) error {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.TournamentPK(tournamentId), models.MetaSK()),
		UpdateExpression: aws.String("SET banner_url = :url, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":url": stringValue(url),
			":now": timeValue(time.Now().UTC()),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to set tournament banner: %w", err)
	}
	return nil
}
