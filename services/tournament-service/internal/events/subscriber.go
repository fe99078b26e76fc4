package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	commonevents "github.com/bracket-esports/bracket/common/events"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/common/natsjetstream"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
)

const (
	analyticsDurable = "bracket-analytics"
	ackWait          = 30 * time.Second
	maxDeliver       = 5
)

// statsWriter is the slice of the leaderboard repository the projections need.
type statsWriter interface {
	ApplyOnce(ctx context.Context, eventId string, build func(*repository.Projection)) (bool, error)
}

type matchesPlayedRecorder interface {
	IncrementMatchesPlayed(ctx context.Context, userId, matchId string, now time.Time) error
}

// EventSubscriber projects domain events into the Redis leaderboards and
// platform counters.
type EventSubscriber struct {
	natsClient *natsjetstream.Client
	subscriber *natsjetstream.Subscriber
	stats      statsWriter
	users      matchesPlayedRecorder
	logger     *logger.Logger
	now        func() time.Time
}

func NewEventSubscriber(
	natsClient *natsjetstream.Client,
	leaderboards *repository.LeaderboardRepository,
	userRepo repository.UserRepository,
	logger *logger.Logger,
) *EventSubscriber {
	return &EventSubscriber{
		natsClient: natsClient,
		subscriber: natsjetstream.NewSubscriber(natsClient),
		stats:      leaderboards,
		users:      userRepo,
		logger:     logger.With("component", "event-subscriber"),
		now:        time.Now,
	}
}

func (s *EventSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting event subscriptions")

	if err := s.subscribeToAnalytics(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to bracket events: %w", err)
	}

	s.logger.Info("All event subscriptions started")
	return nil
}

func (s *EventSubscriber) Stop() error {
	return s.subscriber.Stop()
}

func (s *EventSubscriber) subscribeToAnalytics(ctx context.Context) error {
	cfg := natsjetstream.ConsumerConfig{
		StreamName:     commonevents.BracketEventsStream,
		Durable:        analyticsDurable,
		FilterSubjects: []string{commonevents.AllEventsWildcard},
		AckWait:        ackWait,
		MaxDeliver:     maxDeliver,
	}

	s.logger.Info("Subscribing to bracket events",
		"stream", cfg.StreamName,
		"consumer", cfg.Durable,
	)

	return s.subscriber.Subscribe(ctx, cfg, s.handleMessage)
}

func (s *EventSubscriber) handleMessage(ctx context.Context, msg jetstream.Msg) error {
	return s.handle(ctx, msg.Subject(), msg.Data())
}

func (s *EventSubscriber) handle(ctx context.Context, subject string, data []byte) error {
	s.logger.Debug("Received event", "subject", subject)

	apply := s.projection(subject)
	if apply == nil {
		return nil
	}

	fields, err := natsjetstream.UnmarshalStruct(data)
	if err != nil {
		s.logger.Error("Failed to unmarshal event", "subject", subject, "error", err)
		// Redelivering a malformed payload cannot help.
		return nil
	}

	eventId := str(fields, "event_id")
	if err := apply(ctx, eventId, fields); err != nil {
		s.logger.Error("Failed to apply event",
			"subject", subject,
			"event_id", eventId,
			"error", err,
		)
		return err
	}
	return nil
}

// A projection guards each of its effects separately; a redelivery after a
// partial failure applies only the effects that did not commit.
type projectionFunc func(ctx context.Context, eventId string, fields map[string]any) error

func (s *EventSubscriber) projection(subject string) projectionFunc {
	switch subject {
	case commonevents.UserRegistered:
		return s.handleUserRegistered
	case commonevents.TournamentCreated:
		return s.counter(repository.CounterTournaments, 1)
	case commonevents.TournamentJoined:
		return s.counter(repository.CounterJoins, 1)
	case commonevents.TournamentCompleted:
		return s.handleTournamentCompleted
	case commonevents.TeamCreated:
		return s.counter(repository.CounterTeams, 1)
	case commonevents.TeamDisbanded:
		return s.counter(repository.CounterTeams, -1)
	case commonevents.MatchCompleted:
		return s.handleMatchCompleted
	default:
		return nil
	}
}

func (s *EventSubscriber) counter(name string, delta int64) projectionFunc {
	return func(ctx context.Context, eventId string, _ map[string]any) error {
		return s.applyOnce(ctx, eventId, func(p *repository.Projection) {
			p.IncrementCounter(name, delta)
		})
	}
}

func (s *EventSubscriber) applyOnce(ctx context.Context, eventId string, build func(*repository.Projection)) error {
	applied, err := s.stats.ApplyOnce(ctx, eventId, build)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("Skipping duplicate event", "event_id", eventId)
	}
	return nil
}

func (s *EventSubscriber) handleUserRegistered(ctx context.Context, eventId string, fields map[string]any) error {
	return s.applyOnce(ctx, eventId, func(p *repository.Projection) {
		p.SetUsername(str(fields, "user_id"), str(fields, "username"))
		p.IncrementCounter(repository.CounterUsers, 1)
	})
}

func (s *EventSubscriber) handleTournamentCompleted(ctx context.Context, eventId string, fields map[string]any) error {
	winnerId := str(fields, "winner_id")
	prize := num(fields, "prize_pool")
	if winnerId == "" || prize <= 0 {
		return nil
	}

	s.logger.Info("Recording tournament earnings",
		"tournament_id", str(fields, "tournament_id"),
		"winner_id", winnerId,
		"prize", prize,
	)
	return s.applyOnce(ctx, eventId, func(p *repository.Projection) {
		p.AddEarnings(winnerId, str(fields, "winner_username"), prize)
	})
}

func (s *EventSubscriber) handleMatchCompleted(ctx context.Context, eventId string, fields map[string]any) error {
	game := models.Game(str(fields, "game"))
	rows, _ := fields["players"].([]any)

	var linked []repository.MatchPlayerResult
	for _, row := range rows {
		p, ok := row.(map[string]any)
		if !ok || str(p, "user_id") == "" {
			continue
		}
		linked = append(linked, repository.MatchPlayerResult{
			UserId:   str(p, "user_id"),
			Username: str(p, "name"),
			Kills:    int(num(p, "kills")),
			Won:      p["won"] == true,
		})
	}

	// Profiles are marked per match, so players already counted by an
	// earlier attempt are skipped.
	matchId := str(fields, "match_id")
	if matchId == "" {
		matchId = eventId
	}
	if matchId != "" {
		now := s.now()
		for _, p := range linked {
			if err := s.users.IncrementMatchesPlayed(ctx, p.UserId, matchId, now); err != nil {
				return fmt.Errorf("failed to increment matches played for %s: %w", p.UserId, err)
			}
		}
	}

	if err := s.applyOnce(ctx, eventId, func(p *repository.Projection) {
		p.RecordMatch(game, linked)
		p.IncrementCounter(repository.CounterMatches, 1)
	}); err != nil {
		return err
	}

	s.logger.Info("Match projected",
		"match_id", matchId,
		"linked_players", len(linked),
	)
	return nil
}

func str(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

// num reads a number; structpb decodes every number as float64.
func num(fields map[string]any, key string) int64 {
	v, _ := fields[key].(float64)
	return int64(v)
}
