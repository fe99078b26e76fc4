package models

import (
	"fmt"
	"time"
)

type WalletTransactionKind string

const (
	WalletEntryFee WalletTransactionKind = "entry_fee"
	WalletRefund   WalletTransactionKind = "refund"
	WalletPrize    WalletTransactionKind = "prize"
	WalletGrant    WalletTransactionKind = "grant"
)

// WalletTransaction is an append-only ledger line for a user's coin balance.
type WalletTransaction struct {
	TransactionId string                `dynamodbav:"transaction_id" json:"id"`
	UserId        string                `dynamodbav:"user_id" json:"userId"`
	Kind          WalletTransactionKind `dynamodbav:"kind" json:"kind"`
	Amount        int64                 `dynamodbav:"amount" json:"amount"`
	Reference     string                `dynamodbav:"reference,omitempty" json:"reference,omitempty"`
	CreatedAt     time.Time             `dynamodbav:"created_at" json:"createdAt"`

	PK string `dynamodbav:"PK" json:"-"`
	SK string `dynamodbav:"SK" json:"-"`
}

func WalletTransactionSK(createdAt time.Time, transactionID string) string {
	return fmt.Sprintf("TXN#%s#%s", SortableTime(createdAt), transactionID)
}

func WalletTransactionSKPrefix() string {
	return "TXN#"
}
