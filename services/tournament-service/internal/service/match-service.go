package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/gamestats"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
)

// MatchSource is the game statistics API as the match service uses it.
type MatchSource interface {
	GetValorantMatch(ctx context.Context, region, matchId string) (*gamestats.ValorantMatch, error)
	CreateLobbyCode(ctx context.Context, game models.Game, req gamestats.LobbyRequest) (string, error)
}

type MatchDetails struct {
	Match   *models.Match             `json:"match"`
	Players []models.PlayerMatchStats `json:"players"`
	Rounds  []models.MatchRound       `json:"rounds"`
}

type MatchService interface {
	CreateLobby(ctx context.Context, actor Actor, tournamentId, region string) (*models.Lobby, error)
	ListLobbies(ctx context.Context, actor Actor, tournamentId string) ([]models.Lobby, error)
	TrackMatch(ctx context.Context, actor Actor, lobbyId, externalMatchId string) (*MatchDetails, error)
	PollTracking(ctx context.Context) (int, error)
	GetMatch(ctx context.Context, matchId string) (*MatchDetails, error)
	ListTournamentMatches(ctx context.Context, actor Actor, tournamentId string) ([]models.Match, error)
}

type matchService struct {
	matchRepo      repository.MatchRepository
	lobbyRepo      repository.LobbyRepository
	tournamentRepo  repository.TournamentRepository
	participantRepo repository.ParticipantRepository
	userRepo        repository.UserRepository
	source          MatchSource
	eventPublisher EventPublisher
	defaultRegion  string
	logger         *logger.Logger
	now            clock
}

func NewMatchService(
	matchRepo repository.MatchRepository,
	lobbyRepo repository.LobbyRepository,
	tournamentRepo repository.TournamentRepository,
	participantRepo repository.ParticipantRepository,
	userRepo repository.UserRepository,
	source MatchSource,
	eventPublisher EventPublisher,
	defaultRegion string,
	logger *logger.Logger,
) MatchService {
	return &matchService{
		matchRepo:      matchRepo,
		lobbyRepo:      lobbyRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		source:         source,
		eventPublisher: eventPublisher,
		defaultRegion:  defaultRegion,
		logger:         logger.With("component", "MatchService"),
		now:            utcNow,
	}
}

func (s *matchService) CreateLobby(ctx context.Context, actor Actor, tournamentId, region string) (*models.Lobby, error) {
	tournament, err := s.loadTournament(ctx, tournamentId)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, tournament) {
		return nil, tournamenterrors.NotTournamentOwnerError()
	}
	if region == "" {
		region = s.defaultRegion
	}

	code, err := s.source.CreateLobbyCode(ctx, tournament.Game, gamestats.LobbyRequest{
		TournamentId: tournamentId,
		Region:       region,
		Count:        1,
	})
	if err != nil {
		return nil, err
	}

	lobby := &models.Lobby{
		LobbyId:      uuid.New().String(),
		TournamentId: tournamentId,
		Game:         tournament.Game,
		Region:       region,
		Code:         code,
		CreatedBy:    actor.UserId,
		CreatedAt:    s.now(),
	}
	if err := s.lobbyRepo.Create(ctx, lobby); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create lobby")
	}

	s.logger.Info("Lobby created", "lobby_id", lobby.LobbyId, "tournament_id", tournamentId, "region", region)
	return lobby, nil
}

func (s *matchService) ListLobbies(ctx context.Context, actor Actor, tournamentId string) ([]models.Lobby, error) {
	tournament, err := s.loadTournament(ctx, tournamentId)
	if err != nil {
		return nil, err
	}
	if err := checkRosterAccess(ctx, s.participantRepo, actor, tournament); err != nil {
		return nil, err
	}
	lobbies, err := s.lobbyRepo.ListByTournament(ctx, tournamentId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list lobbies")
	}
	return lobbies, nil
}

func (s *matchService) TrackMatch(ctx context.Context, actor Actor, lobbyId, externalMatchId string) (*MatchDetails, error) {
	if externalMatchId == "" {
		return nil, apperrors.Validation(map[string]string{"matchId": "is required"})
	}

	lobby, err := s.lobbyRepo.GetById(ctx, lobbyId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load lobby")
	}
	if lobby == nil {
		return nil, tournamenterrors.LobbyNotFoundError(lobbyId)
	}

	tournament, err := s.loadTournament(ctx, lobby.TournamentId)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, tournament) {
		return nil, tournamenterrors.NotTournamentOwnerError()
	}

	switch lobby.Game {
	case models.GameValorant:
	case models.GameLeagueOfLegends:
		return nil, tournamenterrors.StatsNotImplementedError(string(lobby.Game))
	default:
		return nil, tournamenterrors.NoStatsSourceError(string(lobby.Game))
	}

	now := s.now()
	match, err := s.matchRepo.CreateIfAbsent(ctx, &models.Match{
		MatchId:         uuid.New().String(),
		TournamentId:    lobby.TournamentId,
		LobbyId:         lobby.LobbyId,
		Game:            lobby.Game,
		Region:          lobby.Region,
		ExternalMatchId: externalMatchId,
		Status:          models.MatchTracking,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to start match tracking")
	}
	// The external id is unique per game, so it may already belong to a
	// lobby the caller does not manage.
	if match.LobbyId != lobby.LobbyId {
		s.logger.Warn("External match tracked by another lobby",
			"external_match_id", externalMatchId,
			"lobby_id", lobby.LobbyId,
			"owner_lobby_id", match.LobbyId,
		)
		return nil, tournamenterrors.MatchTrackedElsewhereError(externalMatchId)
	}

	return s.ingestValorant(ctx, match)
}

// PollTracking re-ingests every match still being tracked and returns how
// many of them completed during this pass.
func (s *matchService) PollTracking(ctx context.Context) (int, error) {
	matches, err := s.matchRepo.ListTracking(ctx)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list tracked matches")
	}

	completed := 0
	for i := range matches {
		match := &matches[i]
		if match.Game != models.GameValorant {
			continue
		}

		details, err := s.ingestValorant(ctx, match)
		if err != nil {
			s.logger.Warn("Failed to refresh tracked match",
				"error", err,
				"match_id", match.MatchId,
				"external_match_id", match.ExternalMatchId,
			)
			continue
		}
		if details.Match.Status == models.MatchCompleted {
			completed++
		}
	}
	return completed, nil
}

func (s *matchService) ingestValorant(ctx context.Context, match *models.Match) (*MatchDetails, error) {
	data, err := s.source.GetValorantMatch(ctx, match.Region, match.ExternalMatchId)
	if err != nil {
		return nil, err
	}

	info := data.MatchInfo
	match.Map = info.MapId
	match.DurationSeconds = int(info.GameLengthMillis / 1000)
	if info.GameStartMillis > 0 {
		started := time.UnixMilli(info.GameStartMillis).UTC()
		match.StartedAt = &started
	}
	match.WinningTeam = valorantWinner(data.Teams)
	match.UpdatedAt = s.now()

	if err := s.matchRepo.UpdateDetails(ctx, match); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update match")
	}

	players, err := s.savePlayers(ctx, match, data)
	if err != nil {
		return nil, err
	}

	for _, round := range valorantRounds(match.MatchId, data.RoundResults) {
		if _, err := s.matchRepo.CreateRoundIfAbsent(ctx, &round); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save match round")
		}
	}

	if info.IsCompleted && match.Status == models.MatchTracking {
		completedAt := s.now()
		transitioned, err := s.matchRepo.MarkCompleted(ctx, match, completedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to complete match")
		}
		match.Status = models.MatchCompleted
		if transitioned {
			match.CompletedAt = &completedAt
			s.logger.Info("Match completed",
				"match_id", match.MatchId,
				"tournament_id", match.TournamentId,
				"winning_team", match.WinningTeam,
			)
			if err := s.eventPublisher.PublishMatchCompleted(ctx, match, players); err != nil {
				s.logger.Error("Failed to publish match completed event", "error", err, "match_id", match.MatchId)
			}
		}
	}

	rounds, err := s.matchRepo.ListRounds(ctx, match.MatchId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list match rounds")
	}
	return &MatchDetails{Match: match, Players: players, Rounds: rounds}, nil
}

// savePlayers overwrites every player's line with the latest numbers.
func (s *matchService) savePlayers(
	ctx context.Context,
	match *models.Match,
	data *gamestats.ValorantMatch,
) ([]models.PlayerMatchStats, error) {
	damage := valorantDamageByPlayer(data.RoundResults)

	players := make([]models.PlayerMatchStats, 0, len(data.Players))
	for _, p := range data.Players {
		userId, err := s.userRepo.FindUserIdByAccount(ctx, models.GameValorant, p.PUUID)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to resolve linked account")
		}

		stats := models.PlayerMatchStats{
			MatchId:          match.MatchId,
			ExternalPlayerId: p.PUUID,
			UserId:           userId,
			Name:             p.GameName,
			Team:             p.TeamId,
			Character:        p.CharacterId,
			Damage:           damage[p.PUUID],
			Won:              match.WinningTeam != "" && p.TeamId == match.WinningTeam,
		}
		if p.Stats != nil {
			stats.Kills = p.Stats.Kills
			stats.Deaths = p.Stats.Deaths
			stats.Assists = p.Stats.Assists
			stats.Score = p.Stats.Score
			stats.RoundsPlayed = p.Stats.RoundsPlayed
		}

		if err := s.matchRepo.SavePlayerStats(ctx, &stats); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save player stats")
		}
		players = append(players, stats)
	}
	return players, nil
}

func valorantWinner(teams []gamestats.ValorantTeam) string {
	for _, t := range teams {
		if t.Won {
			return t.TeamId
		}
	}
	return ""
}

func valorantDamageByPlayer(rounds []gamestats.ValorantRoundResult) map[string]int {
	totals := make(map[string]int)
	for _, r := range rounds {
		for _, ps := range r.PlayerStats {
			for _, d := range ps.Damage {
				totals[ps.PUUID] += d.Damage
			}
		}
	}
	return totals
}

func valorantRounds(matchId string, results []gamestats.ValorantRoundResult) []models.MatchRound {
	rounds := make([]models.MatchRound, 0, len(results))
	for _, r := range results {
		stats := make([]models.RoundPlayerStat, 0, len(r.PlayerStats))
		for _, ps := range r.PlayerStats {
			dealt := 0
			for _, d := range ps.Damage {
				dealt += d.Damage
			}
			stats = append(stats, models.RoundPlayerStat{
				ExternalPlayerId: ps.PUUID,
				Kills:            len(ps.Kills),
				Damage:           dealt,
				Score:            ps.Score,
			})
		}
		rounds = append(rounds, models.MatchRound{
			MatchId:     matchId,
			RoundNumber: r.RoundNum,
			WinningTeam: r.WinningTeam,
			Result:      r.RoundResult,
			PlayerStats: stats,
		})
	}
	return rounds
}

func (s *matchService) GetMatch(ctx context.Context, matchId string) (*MatchDetails, error) {
	match, err := s.matchRepo.GetById(ctx, matchId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load match")
	}
	if match == nil {
		return nil, tournamenterrors.MatchNotFoundError(matchId)
	}

	players, err := s.matchRepo.ListPlayerStats(ctx, matchId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list player stats")
	}
	rounds, err := s.matchRepo.ListRounds(ctx, matchId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list match rounds")
	}
	return &MatchDetails{Match: match, Players: players, Rounds: rounds}, nil
}

func (s *matchService) ListTournamentMatches(ctx context.Context, actor Actor, tournamentId string) ([]models.Match, error) {
	tournament, err := s.loadTournament(ctx, tournamentId)
	if err != nil {
		return nil, err
	}
	if err := checkRosterAccess(ctx, s.participantRepo, actor, tournament); err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list matches")
	}
	return matches, nil
}

func (s *matchService) loadTournament(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetById(ctx, tournamentId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load tournament")
	}
	if tournament == nil {
		return nil, tournamenterrors.TournamentNotFoundError(tournamentId)
	}
	return tournament, nil
}

func canManage(actor Actor, tournament *models.Tournament) bool {
	return actor.IsAdmin() || (actor.UserId != "" && actor.UserId == tournament.CreatorId)
}

// checkRosterAccess guards participants, lobbies and matches. Anyone may see
// them for a public tournament; otherwise only managers and participants.
func checkRosterAccess(
	ctx context.Context,
	participants repository.ParticipantRepository,
	actor Actor,
	tournament *models.Tournament,
) error {
	if tournament.Visibility == models.VisibilityPublic || canManage(actor, tournament) {
		return nil
	}
	if actor.UserId == "" {
		return tournamenterrors.TournamentDetailsHiddenError()
	}

	participant, err := participants.Get(ctx, tournament.TournamentId, actor.UserId)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check participation")
	}
	if participant == nil {
		return tournamenterrors.TournamentDetailsHiddenError()
	}
	return nil
}
