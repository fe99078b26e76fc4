package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

type WalletRepository interface {
	ListByUser(ctx context.Context, userId string) ([]models.WalletTransaction, error)
}

type walletRepo struct {
	db *database.DynamoDBClient
}

func NewWalletRepository(db *database.DynamoDBClient) WalletRepository {
	return &walletRepo{db: db}
}

// ListByUser returns the ledger newest first.
func (r *walletRepo) ListByUser(ctx context.Context, userId string) ([]models.WalletTransaction, error) {
	input := partitionQuery(r.db.Table(), models.UserPK(userId), models.WalletTransactionSKPrefix())
	input.ScanIndexForward = aws.Bool(false)

	txns, err := queryAll[models.WalletTransaction](ctx, r.db.Client, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	return txns, nil
}
