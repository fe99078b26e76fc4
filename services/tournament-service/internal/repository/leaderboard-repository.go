package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bracket-esports/bracket/common/cache"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
)

const (
	LeaderboardLimit = 1000
	processedTTL     = 7 * 24 * time.Hour
)

type LeaderboardMetric string

const (
	MetricKills   LeaderboardMetric = "kills"
	MetricWins    LeaderboardMetric = "wins"
	MetricMatches LeaderboardMetric = "matches"
)

func (m LeaderboardMetric) IsValid() bool {
	switch m {
	case MetricKills, MetricWins, MetricMatches:
		return true
	}
	return false
}

// Platform counters kept in a single hash.
const (
	CounterUsers        = "users"
	CounterTournaments  = "tournaments"
	CounterJoins        = "joins"
	CounterMatches      = "matches_tracked"
	CounterTeams        = "teams"
	CounterCoinsAwarded = "coins_awarded"
)

type LeaderboardEntry struct {
	UserId   string  `json:"userId"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
	Rank     int64   `json:"rank"`
}

type MatchPlayerResult struct {
	UserId   string
	Username string
	Kills    int
	Won      bool
}

type LeaderboardRepository struct {
	client *redis.Client
	logger *logger.Logger
}

func NewLeaderboardRepository(redisClient *cache.RedisClient, log *logger.Logger) *LeaderboardRepository {
	return &LeaderboardRepository{
		client: redisClient.GetClient(),
		logger: log.With("component", "LeaderboardRepository"),
	}
}

func gameLeaderboardKey(game models.Game, metric LeaderboardMetric) string {
	return fmt.Sprintf("leaderboard:%s:%s", game, metric)
}

func earningsLeaderboardKey() string {
	return "leaderboard:earnings"
}

func usernamesHashKey() string {
	return "usernames"
}

func countersHashKey() string {
	return "stats:platform"
}

func processedKey(id string) string {
	return fmt.Sprintf("processed:%s", id)
}

// Write Operations

// Projection queues leaderboard writes so they commit in one MULTI.
type Projection struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

// RecordMatch adds one completed match for every linked player.
func (p *Projection) RecordMatch(game models.Game, players []MatchPlayerResult) {
	for _, pl := range players {
		p.pipe.HSet(p.ctx, usernamesHashKey(), pl.UserId, pl.Username)
		p.pipe.ZIncrBy(p.ctx, gameLeaderboardKey(game, MetricKills), float64(pl.Kills), pl.UserId)
		p.pipe.ZIncrBy(p.ctx, gameLeaderboardKey(game, MetricMatches), 1, pl.UserId)
		if pl.Won {
			p.pipe.ZIncrBy(p.ctx, gameLeaderboardKey(game, MetricWins), 1, pl.UserId)
		}
	}
}

func (p *Projection) AddEarnings(userId, username string, amount int64) {
	p.pipe.HSet(p.ctx, usernamesHashKey(), userId, username)
	p.pipe.ZIncrBy(p.ctx, earningsLeaderboardKey(), float64(amount), userId)
	p.pipe.HIncrBy(p.ctx, countersHashKey(), CounterCoinsAwarded, amount)
}

func (p *Projection) SetUsername(userId, username string) {
	p.pipe.HSet(p.ctx, usernamesHashKey(), userId, username)
}

func (p *Projection) IncrementCounter(name string, delta int64) {
	p.pipe.HIncrBy(p.ctx, countersHashKey(), name, delta)
}

// ApplyOnce commits the writes queued by build together with the processed
// marker for eventId. It returns false without writing when the marker
// already exists. An empty eventId applies the writes unguarded.
func (r *LeaderboardRepository) ApplyOnce(ctx context.Context, eventId string, build func(*Projection)) (bool, error) {
	if eventId == "" {
		return true, r.apply(ctx, build)
	}

	key := processedKey(eventId)
	applied := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		seen, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if seen > 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, 1, processedTTL)
			build(&Projection{ctx: ctx, pipe: pipe})
			return nil
		})
		if err == nil {
			applied = true
		}
		return err
	}, key)

	// The marker changed under WATCH, so a concurrent delivery applied it.
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to apply projection",
			"error", err,
			"event_id", eventId,
		)
		return false, fmt.Errorf("failed to apply projection: %w", err)
	}
	return applied, nil
}

func (r *LeaderboardRepository) apply(ctx context.Context, build func(*Projection)) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		build(&Projection{ctx: ctx, pipe: pipe})
		return nil
	})
	return err
}

// Read Operations

func (r *LeaderboardRepository) GameLeaderboard(
	ctx context.Context,
	game models.Game,
	metric LeaderboardMetric,
	limit int,
) ([]LeaderboardEntry, error) {
	return r.top(ctx, gameLeaderboardKey(game, metric), limit)
}

func (r *LeaderboardRepository) EarningsLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	return r.top(ctx, earningsLeaderboardKey(), limit)
}

func (r *LeaderboardRepository) top(ctx context.Context, key string, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > LeaderboardLimit {
		limit = LeaderboardLimit
	}

	result, err := r.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		r.logger.Error("Failed to get leaderboard",
			"error", err,
			"key", key,
		)
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}

	return r.toEntries(ctx, result)
}

func (r *LeaderboardRepository) toEntries(ctx context.Context, result []redis.Z) ([]LeaderboardEntry, error) {
	entries := make([]LeaderboardEntry, len(result))
	if len(result) == 0 {
		return entries, nil
	}

	ids := make([]string, len(result))
	for i, z := range result {
		ids[i] = z.Member.(string)
	}

	names, err := r.client.HMGet(ctx, usernamesHashKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get usernames: %w", err)
	}

	for i, z := range result {
		username, _ := names[i].(string)
		entries[i] = LeaderboardEntry{
			UserId:   ids[i],
			Username: username,
			Score:    z.Score,
			Rank:     int64(i + 1),
		}
	}
	return entries, nil
}

// Rank returns the 1-based rank and score of userId, or rank 0 when the user
// is not on the board.
func (r *LeaderboardRepository) Rank(
	ctx context.Context,
	game models.Game,
	metric LeaderboardMetric,
	userId string,
) (int64, float64, error) {
	key := gameLeaderboardKey(game, metric)

	rank, err := r.client.ZRevRank(ctx, key, userId).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rank: %w", err)
	}

	score, err := r.client.ZScore(ctx, key, userId).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("failed to get score: %w", err)
	}

	return rank + 1, score, nil
}

func (r *LeaderboardRepository) Counters(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, countersHashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get counters: %w", err)
	}

	counters := map[string]int64{
		CounterUsers:        0,
		CounterTournaments:  0,
		CounterJoins:        0,
		CounterMatches:      0,
		CounterTeams:        0,
		CounterCoinsAwarded: 0,
	}
	for name, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			r.logger.Warn("Skipping malformed counter", "counter", name, "value", value)
			continue
		}
		counters[name] = n
	}
	return counters, nil
}
