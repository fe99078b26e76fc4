package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/bracket-esports/bracket/common/cache"
	"github.com/bracket-esports/bracket/common/config"
	"github.com/bracket-esports/bracket/common/database"
	apperrors "github.com/bracket-esports/bracket/common/errors"
	commonevents "github.com/bracket-esports/bracket/common/events"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/natsjetstream"
	"github.com/bracket-esports/bracket/common/utils"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/auth"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/events"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/events/publisher"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/gamestats"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/handler"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/ratelimit"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/scheduler"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/storage"
)

const serviceName = "bracket-api"

type repositories struct {
	tournaments  repository.TournamentRepository
	participants repository.ParticipantRepository
	entries      repository.EntryRepository
	users        repository.UserRepository
	wallet       repository.WalletRepository
	teams        repository.TeamRepository
	lobbies      repository.LobbyRepository
	matches      repository.MatchRepository
	leaderboards *repository.LeaderboardRepository
}

type App struct {
	cfg             *config.Config
	logger          *logger.Logger
	db              *database.DynamoDBClient
	redis           *cache.RedisClient
	natsClient      *natsjetstream.Client
	repos           repositories
	tokens          *auth.TokenManager
	gameStats       *gamestats.Client
	images          storage.FileUploader
	eventPublisher  *publisher.EventPublisher
	eventSubscriber *events.EventSubscriber
	scheduler       *scheduler.Scheduler
	httpServer      *http.Server
	grpcServer      *grpc.Server
	health          *health.Server

	tournamentService service.TournamentService
	teamService       service.TeamService
	userService       service.UserService
	matchService      service.MatchService
	analyticsService  service.AnalyticsService
	creatorService    service.CreatorService

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, *apperrors.AppError) {
	app := &App{
		cfg:     cfg,
		cleanup: make([]func() error, 0),
	}

	app.initLogger()

	steps := []struct {
		name string
		run  func(context.Context) *apperrors.AppError
	}{
		{"database", app.initDatabase},
		{"redis", app.initRedis},
		{"nats client", app.initNATS},
		{"messaging publisher", app.initMessagePublisher},
		{"external clients", app.initExternalClients},
		{"services", app.initServices},
		{"http server", app.initHTTP},
		{"grpc server", app.initGRPC},
		{"messaging subscriber", app.initMessageSubscriber},
		{"scheduler", app.initScheduler},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			app.logger.Error("Initialization failed", "step", step.name, "error", err)
			app.runCleanup()
			return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to init "+step.name)
		}
	}

	return app, nil
}

func (a *App) initLogger() {
	a.logger = logger.FromEnvironment(serviceName, a.cfg.Server.Environment, a.cfg.Server.LogLevel)
	a.cleanup = append(a.cleanup, func() error {
		_ = a.logger.Sync()
		return nil
	})
}

func (a *App) initDatabase(ctx context.Context) *apperrors.AppError {
	dynamoClient, err := database.NewDynamoDBClient(ctx, a.cfg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create DynamoDB client")
	}

	a.db = dynamoClient
	transactionRepo := database.NewTransactionRepository(dynamoClient)

	a.repos.tournaments = repository.NewTournamentRepository(dynamoClient)
	a.repos.participants = repository.NewParticipantRepository(dynamoClient)
	a.repos.entries = repository.NewEntryRepository(dynamoClient, transactionRepo)
	a.repos.users = repository.NewUserRepository(dynamoClient, transactionRepo)
	a.repos.wallet = repository.NewWalletRepository(dynamoClient)
	a.repos.teams = repository.NewTeamRepository(dynamoClient, transactionRepo)
	a.repos.lobbies = repository.NewLobbyRepository(dynamoClient)
	a.repos.matches = repository.NewMatchRepository(dynamoClient, transactionRepo)

	a.logger.Info("DynamoDB ready", "table", a.cfg.DynamoDB.TableName)
	return nil
}

func (a *App) initRedis(ctx context.Context) *apperrors.AppError {
	redisClient, err := cache.NewRedisClient(ctx, a.cfg.Redis)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeRedisOperationError, "failed to connect to redis")
	}

	a.redis = redisClient
	a.repos.leaderboards = repository.NewLeaderboardRepository(redisClient, a.logger)
	a.cleanup = append(a.cleanup, redisClient.Close)

	a.logger.Info("Redis ready", "address", a.cfg.Redis.Address)
	return nil
}

func (a *App) initNATS(ctx context.Context) *apperrors.AppError {
	natsClient, err := natsjetstream.NewClient(&natsjetstream.Config{
		URL:           a.cfg.NATS.URL,
		MaxReconnect:  a.cfg.NATS.MaxReconnect,
		ReconnectWait: time.Duration(a.cfg.NATS.ReconnectWaitSeconds) * time.Second,
		Timeout:       time.Duration(a.cfg.NATS.TimeoutSeconds) * time.Second,
	}, a.logger)
	if err != nil {
		return err
	}

	a.natsClient = natsClient
	a.cleanup = append(a.cleanup, natsClient.Close)

	if err := natsClient.EnsureStream(ctx, commonevents.BracketEventsStream, commonevents.AllEventsWildcard); err != nil {
		a.logger.Error("Failed to create stream",
			"error", err,
			"stream", commonevents.BracketEventsStream,
		)
		return err
	}
	a.logger.Info("Stream ready", "stream", commonevents.BracketEventsStream)

	return nil
}

func (a *App) initMessagePublisher(context.Context) *apperrors.AppError {
	a.eventPublisher = publisher.NewEventPublisher(a.natsClient, a.logger)
	return nil
}

func (a *App) initExternalClients(ctx context.Context) *apperrors.AppError {
	tokens, err := auth.NewTokenManager(a.cfg.Auth)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid auth configuration")
	}
	a.tokens = tokens

	limiter, err := ratelimit.New(a.cfg.GameStats, a.redis)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid rate limiter configuration")
	}
	a.gameStats = gamestats.NewClient(a.cfg.GameStats, limiter, a.redis, a.logger)
	a.logger.Info("Game stats client ready",
		"limiter", a.cfg.GameStats.LimiterBackend,
		"per_second", a.cfg.GameStats.RateLimitPerSecond,
	)

	if a.cfg.Storage.Bucket == "" {
		a.logger.Warn("Storage bucket not configured, image uploads disabled")
		a.images = storage.Disabled()
		return nil
	}

	images, err := storage.NewS3Uploader(ctx, a.cfg.Storage)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError, "failed to init object storage")
	}
	a.images = images
	return nil
}

func (a *App) initServices(context.Context) *apperrors.AppError {
	r := a.repos

	a.tournamentService = service.NewTournamentService(
		r.tournaments,
		r.participants,
		r.entries,
		r.users,
		r.teams,
		a.images,
		a.eventPublisher,
		a.logger,
	)
	a.teamService = service.NewTeamService(r.teams, a.images, a.eventPublisher, a.logger)
	a.userService = service.NewUserService(
		r.users,
		r.wallet,
		a.tokens,
		a.gameStats,
		a.eventPublisher,
		a.cfg.Wallet.StartingBalance,
		a.cfg.GameStats.DefaultRegion,
		a.logger,
	)
	a.matchService = service.NewMatchService(
		r.matches,
		r.lobbies,
		r.tournaments,
		r.participants,
		r.users,
		a.gameStats,
		a.eventPublisher,
		a.cfg.GameStats.DefaultRegion,
		a.logger,
	)
	a.analyticsService = service.NewAnalyticsService(r.leaderboards, r.users, a.logger)
	a.creatorService = service.NewCreatorService(r.users, r.tournaments, a.logger)

	return nil
}

func (a *App) initHTTP(context.Context) *apperrors.AppError {
	log := a.logger.With("component", "http")

	router := handler.NewRouter(handler.Handlers{
		Users:       handler.NewUserHandler(a.userService, log),
		Tournaments: handler.NewTournamentHandler(a.tournamentService, log),
		Teams:       handler.NewTeamHandler(a.teamService, log),
		Matches:     handler.NewMatchHandler(a.matchService, log),
		Analytics:   handler.NewAnalyticsHandler(a.analyticsService, log),
		Creators:    handler.NewCreatorHandler(a.creatorService, log),
	}, handler.NewAuthenticator(a.tokens, log), a.cfg.Server.AllowedOrigins, log)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return nil
}

// initGRPC serves only the standard health service for orchestrator health checks.
func (a *App) initGRPC(context.Context) *apperrors.AppError {
	a.grpcServer = grpc.NewServer(
		grpc.UnaryInterceptor(utils.LoggingInterceptor(a.logger.With("component", "grpc"))),
	)

	a.health = health.NewServer()
	healthpb.RegisterHealthServer(a.grpcServer, a.health)
	reflection.Register(a.grpcServer)

	a.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return nil
}

func (a *App) initMessageSubscriber(ctx context.Context) *apperrors.AppError {
	a.eventSubscriber = events.NewEventSubscriber(a.natsClient, a.repos.leaderboards, a.repos.users, a.logger)
	if err := a.eventSubscriber.Start(ctx); err != nil {
		return apperrors.Wrap(err, apperrors.CodeEventSubscribtionError, "failed to start event subscriber")
	}
	a.cleanup = append(a.cleanup, a.eventSubscriber.Stop)
	return nil
}

func (a *App) initScheduler(context.Context) *apperrors.AppError {
	sched, err := scheduler.NewScheduler(a.tournamentService, a.matchService, scheduler.Config{
		StatusSweepInterval: time.Duration(a.cfg.Scheduler.StatusSweepSeconds) * time.Second,
		MatchPollInterval:   time.Duration(a.cfg.Scheduler.MatchPollSeconds) * time.Second,
	}, a.logger)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to create scheduler")
	}

	a.scheduler = sched
	a.cleanup = append(a.cleanup, sched.Stop)
	return nil
}

// Run serves HTTP and gRPC until ctx is cancelled or a server fails, then
// shuts both down.
func (a *App) Run(ctx context.Context) error {
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.GRPCPort))
	if err != nil {
		a.runCleanup()
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "address", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("gRPC health server listening", "port", a.cfg.Server.GRPCPort)
		if err := a.grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})

	a.scheduler.Start()
	a.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	a.logger.Info("Application started successfully", "environment", a.cfg.Server.Environment)

	return g.Wait()
}

func (a *App) shutdown() error {
	a.logger.Info("Stopping application...")
	a.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout())
	defer cancel()

	err := a.httpServer.Shutdown(ctx)
	if err != nil {
		a.logger.Error("HTTP shutdown error", "error", err)
	}
	a.grpcServer.GracefulStop()

	a.runCleanup()
	a.logger.Info("Application stopped")
	return err
}

// runCleanup releases resources in reverse order of acquisition.
func (a *App) runCleanup() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](); err != nil {
			a.logger.Error("Cleanup error", "error", err)
		}
	}
	a.cleanup = nil
}
