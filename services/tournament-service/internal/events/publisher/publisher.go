package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	commonevents "github.com/bracket-esports/bracket/common/events"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/common/natsjetstream"
)

type structPublisher interface {
	PublishStruct(ctx context.Context, subject string, fields map[string]any) *apperrors.AppError
}

type EventPublisher struct {
	publisher structPublisher
	logger    *logger.Logger
	now       func() time.Time
}

func NewEventPublisher(client *natsjetstream.Client, logger *logger.Logger) *EventPublisher {
	return newEventPublisher(natsjetstream.NewPublisher(client), logger)
}

func newEventPublisher(p structPublisher, log *logger.Logger) *EventPublisher {
	return &EventPublisher{
		publisher: p,
		logger:    log.With("component", "event-publisher"),
		now:       time.Now,
	}
}

// publish stamps every payload with an event id and timestamp. Consumers
// dedupe on the id, so redeliveries are harmless.
func (p *EventPublisher) publish(ctx context.Context, subject string, fields map[string]any) error {
	fields["event_id"] = uuid.NewString()
	fields["occurred_at"] = p.now().UTC().Format(time.RFC3339)

	if err := p.publisher.PublishStruct(ctx, subject, fields); err != nil {
		p.logger.Error("Failed to publish event",
			"subject", subject,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Published event", "subject", subject, "event_id", fields["event_id"])
	return nil
}

func (p *EventPublisher) PublishUserRegistered(ctx context.Context, user *models.User) error {
	return p.publish(ctx, commonevents.UserRegistered, map[string]any{
		"user_id":  user.UserId,
		"username": user.Username,
	})
}

func (p *EventPublisher) PublishTournamentCreated(ctx context.Context, tournament *models.Tournament) error {
	return p.publish(ctx, commonevents.TournamentCreated, map[string]any{
		"tournament_id": tournament.TournamentId,
		"creator_id":    tournament.CreatorId,
		"game":          string(tournament.Game),
		"entry_fee":     tournament.EntryFee,
		"prize_pool":    tournament.PrizePool,
	})
}

func (p *EventPublisher) PublishTournamentJoined(
	ctx context.Context,
	tournament *models.Tournament,
	participant *models.Participant,
) error {
	return p.publish(ctx, commonevents.TournamentJoined, map[string]any{
		"tournament_id":     tournament.TournamentId,
		"user_id":           participant.UserId,
		"username":          participant.Username,
		"entry_fee":         participant.EntryFeePaid,
		"participant_count": tournament.ParticipantCount,
	})
}

func (p *EventPublisher) PublishTournamentLeft(ctx context.Context, tournamentId, userId string, refund int64) error {
	return p.publish(ctx, commonevents.TournamentLeft, map[string]any{
		"tournament_id": tournamentId,
		"user_id":       userId,
		"refund":        refund,
	})
}

func (p *EventPublisher) PublishTournamentStatusChanged(
	ctx context.Context,
	tournamentId string,
	from, to models.TournamentStatus,
) error {
	return p.publish(ctx, commonevents.TournamentStatusChanged, map[string]any{
		"tournament_id": tournamentId,
		"from":          string(from),
		"to":            string(to),
	})
}

func (p *EventPublisher) PublishTournamentCompleted(
	ctx context.Context,
	tournament *models.Tournament,
	winner *models.User,
) error {
	return p.publish(ctx, commonevents.TournamentCompleted, map[string]any{
		"tournament_id":   tournament.TournamentId,
		"game":            string(tournament.Game),
		"winner_id":       winner.UserId,
		"winner_username": winner.Username,
		"prize_pool":      tournament.PrizePool,
	})
}

func (p *EventPublisher) PublishTeamCreated(ctx context.Context, team *models.Team) error {
	return p.publish(ctx, commonevents.TeamCreated, map[string]any{
		"team_id":    team.TeamId,
		"tag":        team.Tag,
		"captain_id": team.CaptainId,
	})
}

func (p *EventPublisher) PublishTeamMemberJoined(ctx context.Context, teamId, userId string) error {
	return p.publish(ctx, commonevents.TeamMemberJoined, map[string]any{
		"team_id": teamId,
		"user_id": userId,
	})
}

func (p *EventPublisher) PublishTeamMemberLeft(ctx context.Context, teamId, userId string) error {
	return p.publish(ctx, commonevents.TeamMemberLeft, map[string]any{
		"team_id": teamId,
		"user_id": userId,
	})
}

func (p *EventPublisher) PublishTeamDisbanded(ctx context.Context, teamId string) error {
	return p.publish(ctx, commonevents.TeamDisbanded, map[string]any{
		"team_id": teamId,
	})
}

func (p *EventPublisher) PublishMatchCompleted(
	ctx context.Context,
	match *models.Match,
	players []models.PlayerMatchStats,
) error {
	// structpb only accepts []any for lists.
	rows := make([]any, 0, len(players))
	for _, pl := range players {
		rows = append(rows, map[string]any{
			"user_id": pl.UserId,
			"name":    pl.Name,
			"kills":   pl.Kills,
			"won":     pl.Won,
		})
	}

	return p.publish(ctx, commonevents.MatchCompleted, map[string]any{
		"match_id":      match.MatchId,
		"tournament_id": match.TournamentId,
		"game":          string(match.Game),
		"winning_team":  match.WinningTeam,
		"players":       rows,
	})
}
