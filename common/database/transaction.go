package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MaxTransactionItems is the TransactWriteItems limit.
const MaxTransactionItems = 100

const conditionalCheckFailed = "ConditionalCheckFailed"

type TransactionBuilder struct {
	items []types.TransactWriteItem
	// labels name each item so cancellation reasons can be read back.
	labels []string
	limit  int
}

func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		items: make([]types.TransactWriteItem, 0),
		limit: MaxTransactionItems,
	}
}

func (tb *TransactionBuilder) AddPut(label string, item types.Put) error {
	return tb.add(label, types.TransactWriteItem{Put: &item})
}

func (tb *TransactionBuilder) AddUpdate(label string, item types.Update) error {
	return tb.add(label, types.TransactWriteItem{Update: &item})
}

func (tb *TransactionBuilder) AddDelete(label string, item types.Delete) error {
	return tb.add(label, types.TransactWriteItem{Delete: &item})
}

func (tb *TransactionBuilder) AddConditionCheck(label string, item types.ConditionCheck) error {
	return tb.add(label, types.TransactWriteItem{ConditionCheck: &item})
}

func (tb *TransactionBuilder) add(label string, item types.TransactWriteItem) error {
	if len(tb.items) >= tb.limit {
		return fmt.Errorf("transaction limit exceeded: %d items", tb.limit)
	}
	tb.items = append(tb.items, item)
	tb.labels = append(tb.labels, label)
	return nil
}

func (tb *TransactionBuilder) Execute(ctx context.Context, client *dynamodb.Client) error {
	if len(tb.items) == 0 {
		return fmt.Errorf("no items in transaction")
	}

	_, err := client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: tb.items,
	})
	if err != nil {
		return tb.explain(err)
	}
	return nil
}

func (tb *TransactionBuilder) Count() int {
	return len(tb.items)
}

func (tb *TransactionBuilder) Items() []types.TransactWriteItem {
	return tb.items
}

func (tb *TransactionBuilder) Labels() []string {
	return tb.labels
}

// ConditionFailedError reports which labelled items failed their condition
// expression when a transaction was cancelled.
type ConditionFailedError struct {
	Labels []string
	Err    error
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("transaction condition failed on %v: %v", e.Labels, e.Err)
}

func (e *ConditionFailedError) Unwrap() error {
	return e.Err
}

func (e *ConditionFailedError) Failed(label string) bool {
	for _, l := range e.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func (tb *TransactionBuilder) explain(err error) error {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return err
	}

	var failed []string
	for i, reason := range canceled.CancellationReasons {
		if reason.Code == nil || *reason.Code != conditionalCheckFailed {
			continue
		}
		if i < len(tb.labels) {
			failed = append(failed, tb.labels[i])
		}
	}

	if len(failed) == 0 {
		return err
	}
	return &ConditionFailedError{Labels: failed, Err: err}
}

// IsConditionFailed reports whether a single-item write failed its condition.
func IsConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// TransactionRepository executes builders against the table client.
type TransactionRepository interface {
	Execute(ctx context.Context, transactionBuilder *TransactionBuilder) error
}

type transactionRepo struct {
	db *DynamoDBClient
}

func NewTransactionRepository(db *DynamoDBClient) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Execute(ctx context.Context, transactionBuilder *TransactionBuilder) error {
	return transactionBuilder.Execute(ctx, r.db.Client)
}
