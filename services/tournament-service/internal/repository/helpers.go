package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bracket-esports/bracket/common/models"
)

// Conditions that failed inside a write; services translate these into
// domain errors.
var (
	ErrTournamentConditionFailed = errors.New("tournament state rejected the write")
	ErrBalanceConditionFailed    = errors.New("coin balance too low")
	ErrParticipantExists         = errors.New("participant already exists")
	ErrParticipantMissing        = errors.New("participant does not exist")
	ErrTeamConditionFailed       = errors.New("team state rejected the write")
	ErrMemberExists              = errors.New("team member already exists")
	ErrMemberMissing             = errors.New("team member does not exist")
	ErrTagTaken                  = errors.New("team tag already taken")
	ErrUsernameTaken             = errors.New("username already taken")
	ErrAccountLinked             = errors.New("external account already linked")
	ErrAlreadyRefunded           = errors.New("entry fee already refunded")
)

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func numberValue(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func stringValue(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

func timeValue(t time.Time) types.AttributeValue {
	av, err := attributevalue.Marshal(t)
	if err != nil {
		return stringValue(t.UTC().Format(time.RFC3339Nano))
	}
	return av
}

func getItem[T any](ctx context.Context, client *dynamodb.Client, table, pk, sk string) (*T, error) {
	result, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, nil
	}

	var out T
	if err := attributevalue.UnmarshalMap(result.Item, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// queryAll follows LastEvaluatedKey until the query is exhausted.
func queryAll[T any](ctx context.Context, client *dynamodb.Client, input *dynamodb.QueryInput) ([]T, error) {
	paginator := dynamodb.NewQueryPaginator(client, input)

	out := make([]T, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		var items []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func partitionQuery(table, pk, skPrefix string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(table),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": stringValue(pk),
			":sk": stringValue(skPrefix),
		},
	}
}

func putNew(table string, v any) (types.Put, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return types.Put{}, err
	}
	return types.Put{
		TableName:           aws.String(table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}, nil
}

func ledgerPut(table string, txn *models.WalletTransaction) (types.Put, error) {
	txn.PK = models.UserPK(txn.UserId)
	txn.SK = models.WalletTransactionSK(txn.CreatedAt, txn.TransactionId)
	return putNew(table, txn)
}
