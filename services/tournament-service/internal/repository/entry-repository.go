package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bracket-esports/bracket/common/database"
	"github.com/bracket-esports/bracket/common/models"
)

// Transaction item labels.
const (
	labelTournament  = "tournament"
	labelUser        = "user"
	labelParticipant = "participant"
	labelLedger      = "ledger"
)

type JoinEntry struct {
	Tournament    *models.Tournament
	Participant   *models.Participant
	TransactionId string
	Now           time.Time
}

type LeaveEntry struct {
	Tournament    *models.Tournament
	Participant   *models.Participant
	TransactionId string
	Now           time.Time
}

type PrizeAward struct {
	Tournament    *models.Tournament
	WinnerId      string
	TransactionId string
	Now           time.Time
}

// EntryRepository owns every write that moves coins together with a
// tournament's roster, so balance and roster can never disagree.
type EntryRepository interface {
	Join(ctx context.Context, entry JoinEntry) error
	Leave(ctx context.Context, entry LeaveEntry) error
	Refund(ctx context.Context, entry LeaveEntry) error
	AwardPrize(ctx context.Context, award PrizeAward) error
}

type entryRepo struct {
	db              *database.DynamoDBClient
	transactionRepo database.TransactionRepository
}

func NewEntryRepository(db *database.DynamoDBClient, transactionRepo database.TransactionRepository) EntryRepository {
	return &entryRepo{db: db, transactionRepo: transactionRepo}
}

func (r *entryRepo) Join(ctx context.Context, entry JoinEntry) error {
	tb, err := BuildJoinTransaction(r.db.Table(), entry)
	if err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cfe) && cfe.Failed(labelParticipant):
		return ErrParticipantExists
	case errors.As(err, &cfe) && cfe.Failed(labelTournament):
		return ErrTournamentConditionFailed
	case errors.As(err, &cfe) && cfe.Failed(labelUser):
		return ErrBalanceConditionFailed
	default:
		return fmt.Errorf("failed to execute join transaction: %w", err)
	}
}

func (r *entryRepo) Leave(ctx context.Context, entry LeaveEntry) error {
	tb, err := BuildLeaveTransaction(r.db.Table(), entry)
	if err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cfe) && cfe.Failed(labelParticipant):
		return ErrParticipantMissing
	case errors.As(err, &cfe) && cfe.Failed(labelTournament):
		return ErrTournamentConditionFailed
	default:
		return fmt.Errorf("failed to execute leave transaction: %w", err)
	}
}

func (r *entryRepo) Refund(ctx context.Context, entry LeaveEntry) error {
	tb, err := BuildRefundTransaction(r.db.Table(), entry)
	if err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cfe):
		return ErrAlreadyRefunded
	default:
		return fmt.Errorf("failed to execute refund transaction: %w", err)
	}
}

func (r *entryRepo) AwardPrize(ctx context.Context, award PrizeAward) error {
	tb, err := BuildPrizeTransaction(r.db.Table(), award)
	if err != nil {
		return err
	}

	err = r.transactionRepo.Execute(ctx, tb)
	var cfe *database.ConditionFailedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &cfe) && cfe.Failed(labelTournament):
		return ErrTournamentConditionFailed
	case errors.As(err, &cfe):
		return ErrParticipantMissing
	default:
		return fmt.Errorf("failed to execute prize transaction: %w", err)
	}
}

// BuildJoinTransaction debits the fee, bumps the joined counter, inserts the
// participant and grows the roster. The tournament condition re-checks
// status, deadline and capacity at write time.
func BuildJoinTransaction(table string, entry JoinEntry) (*database.TransactionBuilder, error) {
	t := entry.Tournament
	p := entry.Participant
	fee := t.EntryFee

	tb := database.NewTransactionBuilder()

	if err := tb.AddUpdate(labelTournament, types.Update{
		TableName:        aws.String(table),
		Key:              itemKey(models.TournamentPK(t.TournamentId), models.MetaSK()),
		UpdateExpression: aws.String("SET participant_count = participant_count + :one, updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":      numberValue(1),
			":open":     stringValue(string(models.TournamentOpen)),
			":now":      timeValue(entry.Now),
			":joinedAt": stringValue(models.SortableTime(entry.Now)),
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND #status = :open" +
			" AND registration_closes_at >= :joinedAt AND participant_count < max_participants"),
	}); err != nil {
		return nil, err
	}

	if err := tb.AddUpdate(labelUser, types.Update{
		TableName: aws.String(table),
		Key:       itemKey(models.UserPK(p.UserId), models.ProfileSK()),
		UpdateExpression: aws.String(
			"SET coin_balance = coin_balance - :fee, stats.tournaments_joined = stats.tournaments_joined + :one, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fee": numberValue(fee),
			":one": numberValue(1),
			":now": timeValue(entry.Now),
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND coin_balance >= :fee"),
	}); err != nil {
		return nil, err
	}

	p.PK = models.TournamentPK(t.TournamentId)
	p.SK = models.ParticipantSK(p.UserId)
	p.GSI1PK = models.UserGSI1PK(p.UserId)
	p.GSI1SK = models.JoinedTournamentGSI1SK(p.JoinedAt)
	participantPut, err := putNew(table, p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal participant: %w", err)
	}
	if err := tb.AddPut(labelParticipant, participantPut); err != nil {
		return nil, err
	}

	if fee > 0 {
		put, err := ledgerPut(table, &models.WalletTransaction{
			TransactionId: entry.TransactionId,
			UserId:        p.UserId,
			Kind:          models.WalletEntryFee,
			Amount:        -fee,
			Reference:     t.TournamentId,
			CreatedAt:     entry.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal wallet transaction: %w", err)
		}
		if err := tb.AddPut(labelLedger, put); err != nil {
			return nil, err
		}
	}

	return tb, nil
}

// BuildLeaveTransaction is the inverse of a join, refunding exactly the fee
// the participant paid.
func BuildLeaveTransaction(table string, entry LeaveEntry) (*database.TransactionBuilder, error) {
	t := entry.Tournament
	p := entry.Participant
	refund := p.EntryFeePaid

	tb := database.NewTransactionBuilder()

	if err := tb.AddUpdate(labelTournament, types.Update{
		TableName:        aws.String(table),
		Key:              itemKey(models.TournamentPK(t.TournamentId), models.MetaSK()),
		UpdateExpression: aws.String("SET participant_count = participant_count - :one, updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   numberValue(1),
			":zero":  numberValue(0),
			":draft": stringValue(string(models.TournamentDraft)),
			":open":  stringValue(string(models.TournamentOpen)),
			":now":   timeValue(entry.Now),
		},
		ConditionExpression: aws.String("#status IN (:draft, :open) AND participant_count > :zero"),
	}); err != nil {
		return nil, err
	}

	if err := tb.AddUpdate(labelUser, types.Update{
		TableName: aws.String(table),
		Key:       itemKey(models.UserPK(p.UserId), models.ProfileSK()),
		UpdateExpression: aws.String(
			"SET coin_balance = coin_balance + :refund, stats.tournaments_joined = stats.tournaments_joined - :one, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":refund": numberValue(refund),
			":one":    numberValue(1),
			":now":    timeValue(entry.Now),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return nil, err
	}

	if err := tb.AddDelete(labelParticipant, types.Delete{
		TableName:           aws.String(table),
		Key:                 itemKey(models.TournamentPK(t.TournamentId), models.ParticipantSK(p.UserId)),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return nil, err
	}

	if refund > 0 {
		if err := addRefundLedger(tb, table, entry, refund); err != nil {
			return nil, err
		}
	}

	return tb, nil
}

// BuildRefundTransaction returns a cancelled tournament's fee while keeping
// the participant record. Zeroing entry_fee_paid makes it single-shot.
func BuildRefundTransaction(table string, entry LeaveEntry) (*database.TransactionBuilder, error) {
	t := entry.Tournament
	p := entry.Participant
	refund := p.EntryFeePaid

	tb := database.NewTransactionBuilder()

	if err := tb.AddUpdate(labelParticipant, types.Update{
		TableName:        aws.String(table),
		Key:              itemKey(models.TournamentPK(t.TournamentId), models.ParticipantSK(p.UserId)),
		UpdateExpression: aws.String("SET entry_fee_paid = :zero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": numberValue(0),
			":paid": numberValue(refund),
		},
		ConditionExpression: aws.String("attribute_exists(PK) AND entry_fee_paid = :paid AND entry_fee_paid > :zero"),
	}); err != nil {
		return nil, err
	}

	if err := tb.AddUpdate(labelUser, types.Update{
		TableName:        aws.String(table),
		Key:              itemKey(models.UserPK(p.UserId), models.ProfileSK()),
		UpdateExpression: aws.String("SET coin_balance = coin_balance + :refund, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":refund": numberValue(refund),
			":now":    timeValue(entry.Now),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return nil, err
	}

	if err := addRefundLedger(tb, table, entry, refund); err != nil {
		return nil, err
	}

	return tb, nil
}

// BuildPrizeTransaction completes the tournament and pays the winner.
func BuildPrizeTransaction(table string, award PrizeAward) (*database.TransactionBuilder, error) {
	t := award.Tournament
	prize := t.PrizePool

	tb := database.NewTransactionBuilder()

	if err := tb.AddUpdate(labelTournament, types.Update{
		TableName:        aws.String(table),
		Key:              itemKey(models.TournamentPK(t.TournamentId), models.MetaSK()),
		UpdateExpression: aws.String("SET #status = :completed, winner_id = :winner, updated_at = :now"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed":  stringValue(string(models.TournamentCompleted)),
			":inProgress": stringValue(string(models.TournamentInProgress)),
			":winner":     stringValue(award.WinnerId),
			":now":        timeValue(award.Now),
		},
		ConditionExpression: aws.String("#status = :inProgress"),
	}); err != nil {
		return nil, err
	}

	if err := tb.AddConditionCheck(labelParticipant, types.ConditionCheck{
		TableName:           aws.String(table),
		Key:                 itemKey(models.TournamentPK(t.TournamentId), models.ParticipantSK(award.WinnerId)),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return nil, err
	}

	if err := tb.AddUpdate(labelUser, types.Update{
		TableName: aws.String(table),
		Key:       itemKey(models.UserPK(award.WinnerId), models.ProfileSK()),
		UpdateExpression: aws.String(
			"SET coin_balance = coin_balance + :prize, stats.tournaments_won = stats.tournaments_won + :one, " +
				"stats.total_earnings = stats.total_earnings + :prize, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prize": numberValue(prize),
			":one":   numberValue(1),
			":now":   timeValue(award.Now),
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}); err != nil {
		return nil, err
	}

	if prize > 0 {
		put, err := ledgerPut(table, &models.WalletTransaction{
			TransactionId: award.TransactionId,
			UserId:        award.WinnerId,
			Kind:          models.WalletPrize,
			Amount:        prize,
			Reference:     t.TournamentId,
			CreatedAt:     award.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal wallet transaction: %w", err)
		}
		if err := tb.AddPut(labelLedger, put); err != nil {
			return nil, err
		}
	}

	return tb, nil
}

func addRefundLedger(tb *database.TransactionBuilder, table string, entry LeaveEntry, refund int64) error {
	put, err := ledgerPut(table, &models.WalletTransaction{
		TransactionId: entry.TransactionId,
		UserId:        entry.Participant.UserId,
		Kind:          models.WalletRefund,
		Amount:        refund,
		Reference:     entry.Tournament.TournamentId,
		CreatedAt:     entry.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal wallet transaction: %w", err)
	}
	return tb.AddPut(labelLedger, put)
}
