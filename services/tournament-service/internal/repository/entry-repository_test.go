package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

const testTable = "bracket-test"

func testTournament(fee int64) *models.Tournament {
	return &models.Tournament{
		TournamentId:    "t-1",
		Status:          models.TournamentOpen,
		MaxParticipants: 2,
		EntryFee:        fee,
		PrizePool:       500,
	}
}

func testParticipant(paid int64) *models.Participant {
	return &models.Participant{
		TournamentId: "t-1",
		UserId:       "u-1",
		Username:     "ace",
		Status:       models.ParticipantRegistered,
		EntryFeePaid: paid,
		JoinedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// requireTidyExpressions fails when an item declares a placeholder that none
// of its expressions reference. DynamoDB rejects such requests.
func requireTidyExpressions(t *testing.T, tb *database.TransactionBuilder) {
	t.Helper()

	for i, item := range tb.Items() {
		var exprs []string
		var values map[string]types.AttributeValue
		var names map[string]string

		switch {
		case item.Update != nil:
			exprs = []string{aws.ToString(item.Update.UpdateExpression), aws.ToString(item.Update.ConditionExpression)}
			values, names = item.Update.ExpressionAttributeValues, item.Update.ExpressionAttributeNames
		case item.Put != nil:
			exprs = []string{aws.ToString(item.Put.ConditionExpression)}
			values, names = item.Put.ExpressionAttributeValues, item.Put.ExpressionAttributeNames
		case item.Delete != nil:
			exprs = []string{aws.ToString(item.Delete.ConditionExpression)}
			values, names = item.Delete.ExpressionAttributeValues, item.Delete.ExpressionAttributeNames
		case item.ConditionCheck != nil:
			exprs = []string{aws.ToString(item.ConditionCheck.ConditionExpression)}
			values, names = item.ConditionCheck.ExpressionAttributeValues, item.ConditionCheck.ExpressionAttributeNames
		}

		joined := strings.Join(exprs, " ")
		for placeholder := range values {
			assert.Contains(t, joined, placeholder, "item %d (%s)", i, tb.Labels()[i])
		}
		for placeholder := range names {
			assert.Contains(t, joined, placeholder, "item %d (%s)", i, tb.Labels()[i])
		}
	}
}

func TestBuildJoinTransaction(t *testing.T) {
	tb, err := BuildJoinTransaction(testTable, JoinEntry{
		Tournament:    testTournament(100),
		Participant:   testParticipant(100),
		TransactionId: "txn-1",
		Now:           time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{labelTournament, labelUser, labelParticipant, labelLedger}, tb.Labels())
	requireTidyExpressions(t, tb)

	items := tb.Items()
	assert.Contains(t, aws.ToString(items[0].Update.ConditionExpression), "participant_count < max_participants")
	assert.Contains(t, aws.ToString(items[0].Update.ConditionExpression), "registration_closes_at >= :joinedAt")
	assert.Contains(t, aws.ToString(items[1].Update.ConditionExpression), "coin_balance >= :fee")
	assert.Equal(t, "attribute_not_exists(PK)", aws.ToString(items[2].Put.ConditionExpression))

	amount := items[3].Put.Item["amount"].(*types.AttributeValueMemberN)
	assert.Equal(t, "-100", amount.Value)
}

func TestBuildJoinTransactionComparesDeadlineAsSortableTime(t *testing.T) {
	joinedAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	tb, err := BuildJoinTransaction(testTable, JoinEntry{
		Tournament:    testTournament(0),
		Participant:   testParticipant(0),
		TransactionId: "txn-1",
		Now:           joinedAt,
	})
	require.NoError(t, err)

	value := tb.Items()[0].Update.ExpressionAttributeValues[":joinedAt"].(*types.AttributeValueMemberS)
	assert.Equal(t, "2026-03-01T08:30:00.000000Z", value.Value)
	assert.Equal(t, models.SortableTime(joinedAt), value.Value)
}

func TestBuildJoinTransactionFreeEntrySkipsLedger(t *testing.T) {
	tb, err := BuildJoinTransaction(testTable, JoinEntry{
		Tournament:    testTournament(0),
		Participant:   testParticipant(0),
		TransactionId: "txn-1",
		Now:           time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{labelTournament, labelUser, labelParticipant}, tb.Labels())
}

func TestBuildLeaveTransactionRefundsWhatWasPaid(t *testing.T) {
	tournament := testTournament(100)
	// The fee was lowered after this participant joined.
	tournament.EntryFee = 20

	tb, err := BuildLeaveTransaction(testTable, LeaveEntry{
		Tournament:    tournament,
		Participant:   testParticipant(100),
		TransactionId: "txn-2",
		Now:           time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{labelTournament, labelUser, labelParticipant, labelLedger}, tb.Labels())
	requireTidyExpressions(t, tb)

	items := tb.Items()
	assert.Contains(t, aws.ToString(items[0].Update.ConditionExpression), "#status IN (:draft, :open)")
	refund := items[1].Update.ExpressionAttributeValues[":refund"].(*types.AttributeValueMemberN)
	assert.Equal(t, "100", refund.Value)
	require.NotNil(t, items[2].Delete)
}

func TestBuildRefundTransactionIsSingleShot(t *testing.T) {
	tb, err := BuildRefundTransaction(testTable, LeaveEntry{
		Tournament:    testTournament(100),
		Participant:   testParticipant(100),
		TransactionId: "txn-3",
		Now:           time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{labelParticipant, labelUser, labelLedger}, tb.Labels())
	requireTidyExpressions(t, tb)
	assert.Contains(t, aws.ToString(tb.Items()[0].Update.ConditionExpression), "entry_fee_paid = :paid")
}

func TestBuildPrizeTransaction(t *testing.T) {
	tournament := testTournament(100)
	tournament.Status = models.TournamentInProgress

	tb, err := BuildPrizeTransaction(testTable, PrizeAward{
		Tournament:    tournament,
		WinnerId:      "u-1",
		TransactionId: "txn-4",
		Now:           time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{labelTournament, labelParticipant, labelUser, labelLedger}, tb.Labels())
	requireTidyExpressions(t, tb)
	require.NotNil(t, tb.Items()[1].ConditionCheck)
}
