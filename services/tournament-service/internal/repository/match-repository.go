package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

const labelMatch = "match"

type MatchRepository interface {
	// CreateIfAbsent stores match unless its external id is already tracked,
	// in which case the existing match is returned.
	CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, error)
	GetById(ctx context.Context, matchId string) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentId string) ([]models.Match, error)
	ListTracking(ctx context.Context) ([]models.Match, error)
	UpdateDetails(ctx context.Context, match *models.Match) error
	// MarkCompleted reports whether this call performed the transition.
	MarkCompleted(ctx context.Context, match *models.Match, completedAt time.Time) (bool, error)
	SavePlayerStats(ctx context.Context, stats *models.PlayerMatchStats) error
	ListPlayerStats(ctx context.Context, matchId string) ([]models.PlayerMatchStats, error)
	// CreateRoundIfAbsent reports whether the round was newly written.
	CreateRoundIfAbsent(ctx context.Context, round *models.MatchRound) (bool, error)
	ListRounds(ctx context.Context, matchId string) ([]models.MatchRound, error)
}

type matchRepo struct {
	db              *database.DynamoDBClient
	transactionRepo database.TransactionRepository
}

func NewMatchRepository(db *database.DynamoDBClient, transactionRepo database.TransactionRepository) MatchRepository {
	return &matchRepo{db: db, transactionRepo: transactionRepo}
}

func (r *matchRepo) CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, error) {
	match.PK = models.MatchPK(match.MatchId)
	match.SK = models.MetaSK()
	match.GSI1PK = models.TournamentChildGSI1PK(match.TournamentId)
	match.GSI1SK = models.MatchCreatedGSI1SK(match.CreatedAt)
	match.GSI2PK = models.MatchTrackingGSI2PK()
	match.GSI2SK = models.MatchCreatedGSI1SK(match.CreatedAt)

	matchPut, err := putNew(r.db.Table(), match)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match: %w", err)
	}
	guardPut, err := putNew(r.db.Table(), &models.ExternalMatchGuard{
		MatchId: match.MatchId,
		PK:      models.ExternalMatchPK(match.Game, match.ExternalMatchId),
		SK:      models.ExternalMatchSK(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match guard: %w", err)
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddPut(labelGuard, guardPut); err != nil {
		return nil, err
	}
	if err := tb.AddPut(labelMatch, matchPut); err != nil {
		return nil, err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	if errors.As(err, &cfe) && cfe.Failed(labelGuard) {
		guard, err := getItem[models.ExternalMatchGuard](ctx, r.db.Client, r.db.Table(),
			models.ExternalMatchPK(match.Game, match.ExternalMatchId), models.ExternalMatchSK())
		if err != nil || guard == nil {
			return nil, fmt.Errorf("failed to resolve tracked match: %w", err)
		}
		return r.GetById(ctx, guard.MatchId)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	return match, nil
}

func (r *matchRepo) GetById(ctx context.Context, matchId string) (*models.Match, error) {
	match, err := getItem[models.Match](ctx, r.db.Client, r.db.Table(), models.MatchPK(matchId), models.MetaSK())
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

func (r *matchRepo) ListByTournament(ctx context.Context, tournamentId string) ([]models.Match, error) {
	matches, err := queryAll[models.Match](ctx, r.db.Client, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI1),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND begins_with(GSI1SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.TournamentChildGSI1PK(tournamentId)),
			":sk": stringValue("MATCH#"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament matches: %w", err)
	}
	return matches, nil
}

func (r *matchRepo) ListTracking(ctx context.Context) ([]models.Match, error) {
	matches, err := queryAll[models.Match](ctx, r.db.Client, &dynamodb.QueryInput{
		TableName:              aws.String(r.db.Table()),
		IndexName:              aws.String(database.GSI2),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(models.MatchTrackingGSI2PK()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking matches: %w", err)
	}
	return matches, nil
}

func (r *matchRepo) UpdateDetails(ctx context.Context, match *models.Match) error {
	values := map[string]types.AttributeValue{
		":map":      stringValue(match.Map),
		":duration": numberValue(int64(match.DurationSeconds)),
		":winner":   stringValue(match.WinningTeam),
		":now":      timeValue(time.Now().UTC()),
	}
	expr := "SET #map = :map, duration_seconds = :duration, winning_team = :winner, updated_at = :now"
	if match.StartedAt != nil {
		expr += ", started_at = :started"
		values[":started"] = timeValue(*match.StartedAt)
	}

	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.MatchPK(match.MatchId), models.MetaSK()),
		UpdateExpression: aws.String(expr),
		ExpressionAttributeNames: map[string]string{
			"#map": "map",
		},
		ExpressionAttributeValues: values,
		ConditionExpression:       aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return nil
}

// MarkCompleted drops the match out of the tracking index. Only the caller
// that wins the tracking -> completed transition gets true.
func (r *matchRepo) MarkCompleted(ctx context.Context, match *models.Match, completedAt time.Time) (bool, error) {
	_, err := r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.MatchPK(match.MatchId), models.MetaSK()),
		UpdateExpression: aws.String("SET #status = :completed, completed_at = :at, updated_at = :at REMOVE GSI2PK, GSI2SK"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": stringValue(string(models.MatchCompleted)),
			":tracking":  stringValue(string(models.MatchTracking)),
			":at":        timeValue(completedAt),
		},
		ConditionExpression: aws.String("#status = :tracking"),
	})
	if err != nil {
		if database.IsConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to complete match: %w", err)
	}
	return true, nil
}

// SavePlayerStats overwrites the player's row with the latest snapshot.
func (r *matchRepo) SavePlayerStats(ctx context.Context, stats *models.PlayerMatchStats) error {
	stats.PK = models.MatchPK(stats.MatchId)
	stats.SK = models.PlayerSK(stats.ExternalPlayerId)

	item, err := attributevalue.MarshalMap(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal player stats: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.db.Table()),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save player stats: %w", err)
	}
	return nil
}

func (r *matchRepo) ListPlayerStats(ctx context.Context, matchId string) ([]models.PlayerMatchStats, error) {
	stats, err := queryAll[models.PlayerMatchStats](ctx, r.db.Client,
		partitionQuery(r.db.Table(), models.MatchPK(matchId), models.PlayerSKPrefix()))
	if err != nil {
		return nil, fmt.Errorf("failed to list player stats: %w", err)
	}
	return stats, nil
}

func (r *matchRepo) CreateRoundIfAbsent(ctx context.Context, round *models.MatchRound) (bool, error) {
	round.PK = models.MatchPK(round.MatchId)
	round.SK = models.RoundSK(round.RoundNumber)

	put, err := putNew(r.db.Table(), round)
	if err != nil {
		return false, fmt.Errorf("failed to marshal round: %w", err)
	}

	_, err = r.db.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           put.TableName,
		Item:                put.Item,
		ConditionExpression: put.ConditionExpression,
	})
	if err != nil {
		if database.IsConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create round: %w", err)
	}
	return true, nil
}

func (r *matchRepo) ListRounds(ctx context.Context, matchId string) ([]models.MatchRound, error) {
	rounds, err := queryAll[models.MatchRound](ctx, r.db.Client,
		partitionQuery(r.db.Table(), models.MatchPK(matchId), models.RoundSKPrefix()))
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	return rounds, nil
}
