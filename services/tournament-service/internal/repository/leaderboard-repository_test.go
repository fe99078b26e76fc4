package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracket-esports/bracket/common/cache"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
)

func newTestLeaderboard(t *testing.T) *LeaderboardRepository {
	mr := miniredis.RunT(t)
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewLeaderboardRepository(rc, logger.Nop())
}

// seed applies writes without an event marker.
func seed(t *testing.T, repo *LeaderboardRepository, build func(*Projection)) {
	t.Helper()

	_, err := repo.ApplyOnce(context.Background(), "", build)
	require.NoError(t, err)
}

func TestRecordMatchAccumulates(t *testing.T) {
	repo := newTestLeaderboard(t)
	ctx := context.Background()

	seed(t, repo, func(p *Projection) {
		p.RecordMatch(models.GameValorant, []MatchPlayerResult{
			{UserId: "u-1", Username: "ace", Kills: 20, Won: true},
			{UserId: "u-2", Username: "bolt", Kills: 25, Won: false},
		})
	})
	seed(t, repo, func(p *Projection) {
		p.RecordMatch(models.GameValorant, []MatchPlayerResult{{UserId: "u-1", Username: "ace", Kills: 10, Won: true}})
	})

	kills, err := repo.GameLeaderboard(ctx, models.GameValorant, MetricKills, 10)
	require.NoError(t, err)
	require.Len(t, kills, 2)
	assert.Equal(t, "u-1", kills[0].UserId)
	assert.Equal(t, "ace", kills[0].Username)
	assert.Equal(t, float64(30), kills[0].Score)
	assert.Equal(t, int64(2), kills[1].Rank)

	wins, err := repo.GameLeaderboard(ctx, models.GameValorant, MetricWins, 10)
	require.NoError(t, err)
	require.Len(t, wins, 1)
	assert.Equal(t, float64(2), wins[0].Score)

	rank, score, err := repo.Rank(ctx, models.GameValorant, MetricMatches, "u-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rank)
	assert.Equal(t, float64(1), score)
}

func TestRankForUnknownUser(t *testing.T) {
	repo := newTestLeaderboard(t)

	rank, score, err := repo.Rank(context.Background(), models.GameCS2, MetricKills, "nobody")
	require.NoError(t, err)
	assert.Zero(t, rank)
	assert.Zero(t, score)
}

func TestEarningsAndCounters(t *testing.T) {
	repo := newTestLeaderboard(t)
	ctx := context.Background()

	seed(t, repo, func(p *Projection) {
		p.AddEarnings("u-1", "ace", 500)
		p.IncrementCounter(CounterJoins, 3)
		p.IncrementCounter(CounterJoins, -1)
	})

	top, err := repo.EarningsLeaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, float64(500), top[0].Score)

	counters, err := repo.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters[CounterJoins])
	assert.Equal(t, int64(500), counters[CounterCoinsAwarded])
	assert.Equal(t, int64(0), counters[CounterUsers])
}

func TestApplyOnceCommitsWritesWithMarker(t *testing.T) {
	repo := newTestLeaderboard(t)
	ctx := context.Background()
	build := func(p *Projection) {
		p.RecordMatch(models.GameValorant, []MatchPlayerResult{{UserId: "u-1", Username: "ace", Kills: 21, Won: true}})
		p.IncrementCounter(CounterMatches, 1)
	}

	first, err := repo.ApplyOnce(ctx, "evt-1", build)
	require.NoError(t, err)
	second, err := repo.ApplyOnce(ctx, "evt-1", build)
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)

	_, kills, err := repo.Rank(ctx, models.GameValorant, MetricKills, "u-1")
	require.NoError(t, err)
	assert.Equal(t, float64(21), kills)
	counters, err := repo.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters[CounterMatches])
}

func TestApplyOnceWithoutEventIdIsUnguarded(t *testing.T) {
	repo := newTestLeaderboard(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		applied, err := repo.ApplyOnce(ctx, "", func(p *Projection) { p.IncrementCounter(CounterJoins, 1) })
		require.NoError(t, err)
		assert.True(t, applied)
	}

	counters, err := repo.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters[CounterJoins])
}
