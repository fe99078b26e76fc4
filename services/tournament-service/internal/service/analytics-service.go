package service

import (
	"context"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
)

// Games with a statistics source, and therefore with leaderboards.
var rankedGames = []models.Game{models.GameValorant, models.GameLeagueOfLegends}

var rankedMetrics = []repository.LeaderboardMetric{
	repository.MetricKills,
	repository.MetricWins,
	repository.MetricMatches,
}

type LeaderboardStore interface {
	GameLeaderboard(ctx context.Context, game models.Game, metric repository.LeaderboardMetric, limit int) ([]repository.LeaderboardEntry, error)
	EarningsLeaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error)
	Rank(ctx context.Context, game models.Game, metric repository.LeaderboardMetric, userId string) (int64, float64, error)
	Counters(ctx context.Context) (map[string]int64, error)
}

type UserRank struct {
	Game   models.Game                  `json:"game"`
	Metric repository.LeaderboardMetric `json:"metric"`
	Rank   int64                        `json:"rank"`
	Score  float64                      `json:"score"`
}

type UserAnalytics struct {
	User  *models.User     `json:"user"`
	Stats models.UserStats `json:"stats"`
	Ranks []UserRank       `json:"ranks"`
}

type AnalyticsService interface {
	Leaderboard(ctx context.Context, game models.Game, metric repository.LeaderboardMetric, limit int) ([]repository.LeaderboardEntry, error)
	EarningsLeaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error)
	PlatformOverview(ctx context.Context) (map[string]int64, error)
	UserAnalytics(ctx context.Context, userId string) (*UserAnalytics, error)
}

type analyticsService struct {
	leaderboards LeaderboardStore
	userRepo     repository.UserRepository
	logger       *logger.Logger
}

func NewAnalyticsService(
	leaderboards LeaderboardStore,
	userRepo repository.UserRepository,
	logger *logger.Logger,
) AnalyticsService {
	return &analyticsService{
		leaderboards: leaderboards,
		userRepo:     userRepo,
		logger:       logger.With("component", "AnalyticsService"),
	}
}

func (s *analyticsService) Leaderboard(
	ctx context.Context,
	game models.Game,
	metric repository.LeaderboardMetric,
	limit int,
) ([]repository.LeaderboardEntry, error) {
	if !validGame(game) {
		return nil, apperrors.Validation(map[string]string{"game": "is not a supported game"})
	}
	if !metric.IsValid() {
		return nil, apperrors.Validation(map[string]string{"metric": "must be kills, wins or matches"})
	}

	entries, err := s.leaderboards.GameLeaderboard(ctx, game, metric, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to get leaderboard")
	}
	return entries, nil
}

func (s *analyticsService) EarningsLeaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	entries, err := s.leaderboards.EarningsLeaderboard(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to get earnings leaderboard")
	}
	return entries, nil
}

func (s *analyticsService) PlatformOverview(ctx context.Context) (map[string]int64, error) {
	counters, err := s.leaderboards.Counters(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to get platform counters")
	}
	return counters, nil
}

// UserAnalytics loads the profile and every leaderboard rank concurrently.
func (s *analyticsService) UserAnalytics(ctx context.Context, userId string) (*UserAnalytics, error) {
	var (
		user  *models.User
		mu    sync.Mutex
		ranks = make([]UserRank, 0, len(rankedGames)*len(rankedMetrics))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := s.userRepo.GetById(gctx, userId)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load user")
		}
		if u == nil {
			return tournamenterrors.UserNotFoundError(userId)
		}
		user = u
		return nil
	})

	for _, game := range rankedGames {
		for _, metric := range rankedMetrics {
			g.Go(func() error {
				rank, score, err := s.leaderboards.Rank(gctx, game, metric, userId)
				if err != nil {
					return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to get rank")
				}
				if rank == 0 {
					return nil
				}
				mu.Lock()
				ranks = append(ranks, UserRank{Game: game, Metric: metric, Rank: rank, Score: score})
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sortRanks(ranks)
	return &UserAnalytics{User: user.PublicView(), Stats: user.Stats, Ranks: ranks}, nil
}

// sortRanks gives a stable order regardless of which lookup finished first.
func sortRanks(ranks []UserRank) {
	position := func(r UserRank) int {
		return slices.Index(rankedGames, r.Game)*len(rankedMetrics) + slices.Index(rankedMetrics, r.Metric)
	}
	sort.Slice(ranks, func(i, j int) bool {
		return position(ranks[i]) < position(ranks[j])
	})
}
