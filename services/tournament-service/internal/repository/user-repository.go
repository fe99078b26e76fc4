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

const (
	labelGuard  = "guard"
	labelPlayed = "played"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetById(ctx context.Context, userId string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	LinkAccount(ctx context.Context, userId string, account models.LinkedAccount) error
	UnlinkAccount(ctx context.Context, user *models.User, platform models.Game) error
	FindUserIdByAccount(ctx context.Context, platform models.Game, externalId string) (string, error)
	UpdateCreator(ctx context.Context, userId string, creator models.CreatorProfile, role models.Role) error
	GrantCoins(ctx context.Context, txn *models.WalletTransaction) error
	IncrementMatchesPlayed(ctx context.Context, userId, matchId string, now time.Time) error
}

type userRepo struct {
	db              *database.DynamoDBClient
	transactionRepo database.TransactionRepository
}

func NewUserRepository(db *database.DynamoDBClient, transactionRepo database.TransactionRepository) UserRepository {
	return &userRepo{db: db, transactionRepo: transactionRepo}
}

// Create writes the profile and reserves the username in one transaction.
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	user.PK = models.UserPK(user.UserId)
	user.SK = models.ProfileSK()

	profilePut, err := putNew(r.db.Table(), user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	guardPut, err := putNew(r.db.Table(), &models.UsernameGuard{
		Username: user.Username,
		UserId:   user.UserId,
		PK:       models.UsernamePK(user.Username),
		SK:       models.UsernameSK(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal username guard: %w", err)
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddPut(labelGuard, guardPut); err != nil {
		return err
	}
	if err := tb.AddPut(labelUser, profilePut); err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	if errors.As(err, &cfe) && cfe.Failed(labelGuard) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) GetById(ctx context.Context, userId string) (*models.User, error) {
	user, err := getItem[models.User](ctx, r.db.Client, r.db.Table(), models.UserPK(userId), models.ProfileSK())
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	guard, err := getItem[models.UsernameGuard](ctx, r.db.Client, r.db.Table(),
		models.UsernamePK(username), models.UsernameSK())
	if err != nil {
		return nil, fmt.Errorf("failed to get username: %w", err)
	}
	if guard == nil {
		return nil, nil
	}
	return r.GetById(ctx, guard.UserId)
}

func (r *userRepo) LinkAccount(ctx context.Context, userId string, account models.LinkedAccount) error {
	accountValue, err := attributevalue.Marshal([]models.LinkedAccount{account})
	if err != nil {
		return fmt.Errorf("failed to marshal linked account: %w", err)
	}
	linkPut, err := putNew(r.db.Table(), &models.AccountLink{
		Platform:   account.Platform,
		ExternalId: account.ExternalId,
		UserId:     userId,
		PK:         models.AccountLinkPK(account.Platform, account.ExternalId),
		SK:         models.AccountLinkSK(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal account link: %w", err)
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddPut(labelGuard, linkPut); err != nil {
		return err
	}
	if err := tb.AddUpdate(labelUser, types.Update{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.UserPK(userId), models.ProfileSK()),
		UpdateExpression: aws.String("SET linked_accounts = list_append(if_not_exists(linked_accounts, :empty), :account), updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":account": accountValue,
			":empty":   &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":now":     timeValue(time.Now().UTC()),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	if errors.As(err, &cfe) && cfe.Failed(labelGuard) {
		return ErrAccountLinked
	}
	if err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}
	return nil
}

func (r *userRepo) UnlinkAccount(ctx context.Context, user *models.User, platform models.Game) error {
	account, ok := user.LinkedAccount(platform)
	if !ok {
		return nil
	}

	remaining := make([]models.LinkedAccount, 0, len(user.LinkedAccounts))
	for _, acc := range user.LinkedAccounts {
		if acc.Platform != platform {
			remaining = append(remaining, acc)
		}
	}
	remainingValue, err := attributevalue.Marshal(remaining)
	if err != nil {
		return fmt.Errorf("failed to marshal linked accounts: %w", err)
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddDelete(labelGuard, types.Delete{
		TableName: aws.String(r.db.Table()),
		Key:       itemKey(models.AccountLinkPK(platform, account.ExternalId), models.AccountLinkSK()),
	}); err != nil {
		return err
	}
	if err := tb.AddUpdate(labelUser, types.Update{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.UserPK(user.UserId), models.ProfileSK()),
		UpdateExpression: aws.String("SET linked_accounts = :accounts, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":accounts": remainingValue,
			":now":      timeValue(time.Now().UTC()),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return err
	}

	if err := r.transactionRepo.Execute(ctx, tb); err != nil {
		return fmt.Errorf("failed to unlink account: %w", err)
	}
	return nil
}

func (r *userRepo) FindUserIdByAccount(ctx context.Context, platform models.Game, externalId string) (string, error) {
	link, err := getItem[models.AccountLink](ctx, r.db.Client, r.db.Table(),
		models.AccountLinkPK(platform, externalId), models.AccountLinkSK())
	if err != nil {
		return "", fmt.Errorf("failed to get account link: %w", err)
	}
	if link == nil {
		return "", nil
	}
	return link.UserId, nil
}

func (r *userRepo) UpdateCreator(ctx context.Context, userId string, creator models.CreatorProfile, role models.Role) error {
	creatorValue, err := attributevalue.Marshal(creator)
	if err != nil {
		return fmt.Errorf("failed to marshal creator profile: %w", err)
	}

	_, err = r.db.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.UserPK(userId), models.ProfileSK()),
		UpdateExpression: aws.String("SET creator = :creator, #role = :role, updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#role": "role",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":creator": creatorValue,
			":role":    stringValue(string(role)),
			":now":     timeValue(time.Now().UTC()),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("failed to update creator profile: %w", err)
	}
	return nil
}

// GrantCoins credits a balance and records the ledger line atomically.
func (r *userRepo) GrantCoins(ctx context.Context, txn *models.WalletTransaction) error {
	put, err := ledgerPut(r.db.Table(), txn)
	if err != nil {
		return fmt.Errorf("failed to marshal wallet transaction: %w", err)
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddUpdate(labelUser, types.Update{
		TableName:        aws.String(r.db.Table()),
		Key:              itemKey(models.UserPK(txn.UserId), models.ProfileSK()),
		UpdateExpression: aws.String("SET coin_balance = coin_balance + :amount, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount": numberValue(txn.Amount),
			":now":    timeValue(txn.CreatedAt),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return err
	}
	if err := tb.AddPut(labelLedger, put); err != nil {
		return err
	}

	if err := r.transactionRepo.Execute(ctx, tb); err != nil {
		return fmt.Errorf("failed to grant coins: %w", err)
	}
	return nil
}

// IncrementMatchesPlayed counts matchId once for userId. A repeat for the
// same match is a no-op.
func (r *userRepo) IncrementMatchesPlayed(ctx context.Context, userId, matchId string, now time.Time) error {
	tb, err := BuildMatchesPlayedTransaction(r.db.Table(), userId, matchId, now)
	if err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	if errors.As(err, &cfe) && cfe.Failed(labelPlayed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update matches played: %w", err)
	}
	return nil
}

// BuildMatchesPlayedTransaction writes the per-match marker together with the
// profile increment so the increment commits only with a fresh marker.
func BuildMatchesPlayedTransaction(table, userId, matchId string, now time.Time) (*database.TransactionBuilder, error) {
	markerPut, err := putNew(table, &models.PlayedMatch{
		UserId:     userId,
		MatchId:    matchId,
		RecordedAt: now,
		PK:         models.UserPK(userId),
		SK:         models.PlayedMatchSK(matchId),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal played match: %w", err)
	}

	tb := database.NewTransactionBuilder()
	if err := tb.AddPut(labelPlayed, markerPut); err != nil {
		return nil, err
	}
	if err := tb.AddUpdate(labelUser, types.Update{
		TableName:        aws.String(table),
		Key:              itemKey(models.UserPK(userId), models.ProfileSK()),
		UpdateExpression: aws.String("SET stats.matches_played = stats.matches_played + :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": numberValue(1),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return nil, err
	}
	return tb, nil
}
