package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/storage"
)

const (
	MinParticipants = 2
	MaxParticipants = 1024
)

type CreateTournamentInput struct {
	Title                string
	Description          string
	Game                 models.Game
	Format               models.TournamentFormat
	MaxParticipants      int
	EntryFee             int64
	PrizePool            int64
	StartDate            time.Time
	RegistrationDeadline time.Time
	Status               models.TournamentStatus
	Visibility           models.Visibility
	Region               string
}

type JoinTournamentInput struct {
	TeamId     string
	InviteCode string
}

type TournamentService interface {
	Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, actor Actor, tournamentId string) (*models.Tournament, error)
	List(ctx context.Context, actor Actor, filter repository.TournamentFilter, page PageRequest) (Page[models.Tournament], error)
	ListParticipants(ctx context.Context, actor Actor, tournamentId string) ([]models.Participant, error)
	Join(ctx context.Context, actor Actor, tournamentId string, input JoinTournamentInput) (*models.Participant, error)
	Leave(ctx context.Context, actor Actor, tournamentId string) error
	UpdateStatus(ctx context.Context, actor Actor, tournamentId string, to models.TournamentStatus, winnerId string) (*models.Tournament, error)
	StartDue(ctx context.Context) (int, error)
	UploadBanner(ctx context.Context, actor Actor, tournamentId string, upload Upload) (string, error)
}

type tournamentService struct {
	tournamentRepo  repository.TournamentRepository
	participantRepo repository.ParticipantRepository
	entryRepo       repository.EntryRepository
	userRepo        repository.UserRepository
	teamRepo        repository.TeamRepository
	images          ImageStore
	eventPublisher  EventPublisher
	logger          *logger.Logger
	now             clock
}

func NewTournamentService(
	tournamentRepo repository.TournamentRepository,
	participantRepo repository.ParticipantRepository,
	entryRepo repository.EntryRepository,
	userRepo repository.UserRepository,
	teamRepo repository.TeamRepository,
	images ImageStore,
	eventPublisher EventPublisher,
	logger *logger.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		entryRepo:       entryRepo,
		userRepo:        userRepo,
		teamRepo:        teamRepo,
		images:          images,
		eventPublisher:  eventPublisher,
		logger:          logger.With("component", "TournamentService"),
		now:             utcNow,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if !actor.CanCreateTournaments() {
		return nil, tournamenterrors.CreatorRoleRequiredError()
	}

	now := s.now()
	if input.Status == "" {
		input.Status = models.TournamentOpen
	}
	if input.Visibility == "" {
		input.Visibility = models.VisibilityPublic
	}
	if err := validateTournament(input, now); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	tournament := &models.Tournament{
		TournamentId:         id,
		Slug:                 fmt.Sprintf("%s-%s", slug.Make(input.Title), id[:8]),
		Title:                strings.TrimSpace(input.Title),
		Description:          input.Description,
		Game:                 input.Game,
		Format:               input.Format,
		MaxParticipants:      input.MaxParticipants,
		EntryFee:             input.EntryFee,
		PrizePool:            input.PrizePool,
		StartDate:            input.StartDate.UTC(),
		RegistrationDeadline: input.RegistrationDeadline.UTC(),
		Status:               input.Status,
		Visibility:           input.Visibility,
		Region:               input.Region,
		CreatorId:            actor.UserId,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if tournament.Visibility == models.VisibilityInviteOnly {
		tournament.InviteCode = newInviteCode()
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to create tournament")
	}

	s.logger.Info("Tournament created",
		"tournament_id", tournament.TournamentId,
		"creator_id", actor.UserId,
		"game", tournament.Game,
	)

	if err := s.eventPublisher.PublishTournamentCreated(ctx, tournament); err != nil {
		s.logger.Error("Failed to publish tournament created event", "error", err, "tournament_id", id)
	}

	return tournament, nil
}

func validateTournament(input CreateTournamentInput, now time.Time) error {
	details := make(map[string]string)

	if strings.TrimSpace(input.Title) == "" {
		details["title"] = "is required"
	}
	if !validGame(input.Game) {
		details["game"] = "is not a supported game"
	}
	switch input.Format {
	case models.FormatSingleElimination, models.FormatDoubleElimination, models.FormatRoundRobin, models.FormatSwiss:
	default:
		details["format"] = "is not a supported format"
	}
	if input.MaxParticipants < MinParticipants || input.MaxParticipants > MaxParticipants {
		details["maxParticipants"] = fmt.Sprintf("must be between %d and %d", MinParticipants, MaxParticipants)
	}
	if input.EntryFee < 0 {
		details["entryFee"] = "must not be negative"
	}
	if input.PrizePool < 0 {
		details["prizePool"] = "must not be negative"
	}
	if !input.StartDate.After(now) {
		details["startDate"] = "must be in the future"
	}
	if !input.RegistrationDeadline.Before(input.StartDate) {
		details["registrationDeadline"] = "must be before the start date"
	}
	if input.Status != models.TournamentDraft && input.Status != models.TournamentOpen {
		details["status"] = "must be draft or open"
	}
	switch input.Visibility {
	case models.VisibilityPublic, models.VisibilityPrivate, models.VisibilityInviteOnly:
	default:
		details["visibility"] = "must be public, private or invite_only"
	}

	if len(details) > 0 {
		return apperrors.Validation(details)
	}
	return nil
}

func validGame(game models.Game) bool {
	switch game {
	case models.GameValorant, models.GameLeagueOfLegends, models.GameCS2, models.GameDota2, models.GameRocketLeague:
		return true
	}
	return false
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}

func (s *tournamentService) Get(ctx context.Context, actor Actor, tournamentId string) (*models.Tournament, error) {
	tournament, err := s.load(ctx, tournamentId)
	if err != nil {
		return nil, err
	}
	return s.viewFor(actor, tournament), nil
}

func (s *tournamentService) List(
	ctx context.Context,
	actor Actor,
	filter repository.TournamentFilter,
	page PageRequest,
) (Page[models.Tournament], error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return Page[models.Tournament]{}, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list tournaments")
	}

	visible := make([]models.Tournament, 0, len(tournaments))
	for i := range tournaments {
		t := &tournaments[i]
		if t.Visibility != models.VisibilityPublic && !s.owns(actor, t) {
			continue
		}
		visible = append(visible, *s.viewFor(actor, t))
	}

	return paginate(visible, page), nil
}

func (s *tournamentService) ListParticipants(ctx context.Context, actor Actor, tournamentId string) ([]models.Participant, error) {
	tournament, err := s.load(ctx, tournamentId)
	if err != nil {
		return nil, err
	}
	if err := checkRosterAccess(ctx, s.participantRepo, actor, tournament); err != nil {
		return nil, err
	}

	participants, err := s.participantRepo.ListByTournament(ctx, tournamentId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list participants")
	}

	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	return participants, nil
}

// Join checks every precondition in order, then commits the fee debit and
// roster change as one transaction whose conditions re-check capacity,
// status and balance against concurrent joins.
func (s *tournamentService) Join(
	ctx context.Context,
	actor Actor,
	tournamentId string,
	input JoinTournamentInput,
) (*models.Participant, error) {
	tournament, err := s.load(ctx, tournamentId)
	if err != nil {
		return nil, err
	}

	if tournament.Visibility == models.VisibilityInviteOnly &&
		!s.owns(actor, tournament) &&
		input.InviteCode != tournament.InviteCode {
		return nil, tournamenterrors.InviteRequiredError()
	}

	now := s.now()
	if tournament.Status != models.TournamentOpen {
		return nil, tournamenterrors.TournamentNotOpenError(string(tournament.Status))
	}
	if now.After(tournament.RegistrationDeadline) {
		return nil, tournamenterrors.RegistrationClosedError(tournament.RegistrationDeadline)
	}

	existing, err := s.participantRepo.Get(ctx, tournamentId, actor.UserId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check participation")
	}
	if existing != nil {
		return nil, tournamenterrors.AlreadyJoinedError()
	}

	if tournament.ParticipantCount >= tournament.MaxParticipants {
		return nil, tournamenterrors.TournamentFullError(tournament.MaxParticipants)
	}

	user, err := s.userRepo.GetById(ctx, actor.UserId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load user")
	}
	if user == nil {
		return nil, tournamenterrors.UserNotFoundError(actor.UserId)
	}
	if user.CoinBalance < tournament.EntryFee {
		return nil, tournamenterrors.InsufficientFundsError(user.CoinBalance, tournament.EntryFee)
	}

	if input.TeamId != "" {
		member, err := s.teamRepo.GetMember(ctx, input.TeamId, actor.UserId)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check team membership")
		}
		if member == nil {
			return nil, tournamenterrors.NotMemberOfTeamError(input.TeamId)
		}
	}

	participant := &models.Participant{
		TournamentId: tournamentId,
		UserId:       user.UserId,
		Username:     user.Username,
		TeamId:       input.TeamId,
		Status:       models.ParticipantRegistered,
		EntryFeePaid: tournament.EntryFee,
		JoinedAt:     now,
	}

	err = s.entryRepo.Join(ctx, repository.JoinEntry{
		Tournament:    tournament,
		Participant:   participant,
		TransactionId: uuid.New().String(),
		Now:           now,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrParticipantExists):
		return nil, tournamenterrors.AlreadyJoinedError()
	case errors.Is(err, repository.ErrBalanceConditionFailed):
		return nil, tournamenterrors.InsufficientFundsError(user.CoinBalance, tournament.EntryFee)
	case errors.Is(err, repository.ErrTournamentConditionFailed):
		return nil, s.explainJoinConflict(ctx, tournament, now)
	default:
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to join tournament")
	}

	s.logger.Info("User joined tournament",
		"tournament_id", tournamentId,
		"user_id", user.UserId,
		"entry_fee", tournament.EntryFee,
	)

	tournament.ParticipantCount++
	if err := s.eventPublisher.PublishTournamentJoined(ctx, tournament, participant); err != nil {
		s.logger.Error("Failed to publish tournament joined event", "error", err, "tournament_id", tournamentId)
	}

	return participant, nil
}

// explainJoinConflict reloads the tournament to tell a lost race on status
// or deadline apart from a lost race on the last seat.
func (s *tournamentService) explainJoinConflict(ctx context.Context, stale *models.Tournament, now time.Time) error {
	current, err := s.tournamentRepo.GetById(ctx, stale.TournamentId)
	if err != nil || current == nil {
		return tournamenterrors.TournamentFullError(stale.MaxParticipants)
	}
	if current.Status != models.TournamentOpen {
		return tournamenterrors.TournamentNotOpenError(string(current.Status))
	}
	if now.After(current.RegistrationDeadline) {
		return tournamenterrors.RegistrationClosedError(current.RegistrationDeadline)
	}
	return tournamenterrors.TournamentFullError(current.MaxParticipants)
}

func (s *tournamentService) Leave(ctx context.Context, actor Actor, tournamentId string) error {
	tournament, err := s.load(ctx, tournamentId)
	if err != nil {
		return err
	}

	participant, err := s.participantRepo.Get(ctx, tournamentId, actor.UserId)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check participation")
	}
	if participant == nil {
		return tournamenterrors.NotParticipantError()
	}

	if !tournament.Status.Leavable() {
		return tournamenterrors.LeaveNotAllowedError(string(tournament.Status))
	}

	err = s.entryRepo.Leave(ctx, repository.LeaveEntry{
		Tournament:    tournament,
		Participant:   participant,
		TransactionId: uuid.New().String(),
		Now:           s.now(),
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrParticipantMissing):
		return tournamenterrors.NotParticipantError()
	case errors.Is(err, repository.ErrTournamentConditionFailed):
		current, loadErr := s.load(ctx, tournamentId)
		if loadErr != nil {
			return loadErr
		}
		return tournamenterrors.LeaveNotAllowedError(string(current.Status))
	default:
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to leave tournament")
	}

	s.logger.Info("User left tournament",
		"tournament_id", tournamentId,
		"user_id", actor.UserId,
		"refund", participant.EntryFeePaid,
	)

	if err := s.eventPublisher.PublishTournamentLeft(ctx, tournamentId, actor.UserId, participant.EntryFeePaid); err != nil {
		s.logger.Error("Failed to publish tournament left event", "error", err, "tournament_id", tournamentId)
	}
	return nil
}

func (s *tournamentService) UpdateStatus(
	ctx context.Context,
	actor Actor,
	tournamentId string,
	to models.TournamentStatus,
	winnerId string,
) (*models.Tournament, error) {
	tournament, err := s.load(ctx, tournamentId)
	if err != nil {
		return nil, err
	}
	if !s.owns(actor, tournament) {
		return nil, tournamenterrors.NotTournamentOwnerError()
	}

	from := tournament.Status

	// Cancelling again retries refunds that failed the first time.
	if from == models.TournamentCancelled && to == models.TournamentCancelled {
		return tournament, s.refundAll(ctx, tournament)
	}
	if !from.CanTransitionTo(to) {
		return nil, tournamenterrors.InvalidTransitionError(string(from), string(to))
	}

	switch to {
	case models.TournamentCompleted:
		if err := s.complete(ctx, tournament, winnerId); err != nil {
			return nil, err
		}
	default:
		if err := s.transition(ctx, tournament, to); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Tournament status changed",
		"tournament_id", tournamentId,
		"from", from,
		"to", to,
	)

	if err := s.eventPublisher.PublishTournamentStatusChanged(ctx, tournamentId, from, to); err != nil {
		s.logger.Error("Failed to publish status changed event", "error", err, "tournament_id", tournamentId)
	}

	if to == models.TournamentCancelled {
		if err := s.refundAll(ctx, tournament); err != nil {
			return tournament, err
		}
	}

	return s.viewFor(actor, tournament), nil
}

func (s *tournamentService) transition(ctx context.Context, tournament *models.Tournament, to models.TournamentStatus) error {
	err := s.tournamentRepo.UpdateStatus(ctx, tournament.TournamentId, tournament.Status, to)
	if errors.Is(err, repository.ErrTournamentConditionFailed) {
		return tournamenterrors.InvalidTransitionError(string(tournament.Status), string(to))
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to update tournament status")
	}

	tournament.Status = to
	tournament.UpdatedAt = s.now()
	return nil
}

func (s *tournamentService) complete(ctx context.Context, tournament *models.Tournament, winnerId string) error {
	if winnerId == "" {
		return apperrors.Validation(map[string]string{"winnerId": "is required to complete a tournament"})
	}

	participant, err := s.participantRepo.Get(ctx, tournament.TournamentId, winnerId)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check winner")
	}
	if participant == nil {
		return tournamenterrors.WinnerNotParticipantError(winnerId)
	}

	now := s.now()
	err = s.entryRepo.AwardPrize(ctx, repository.PrizeAward{
		Tournament:    tournament,
		WinnerId:      winnerId,
		TransactionId: uuid.New().String(),
		Now:           now,
	})
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrTournamentConditionFailed):
		return tournamenterrors.InvalidTransitionError(string(tournament.Status), string(models.TournamentCompleted))
	case errors.Is(err, repository.ErrParticipantMissing):
		return tournamenterrors.WinnerNotParticipantError(winnerId)
	default:
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to award prize")
	}

	tournament.Status = models.TournamentCompleted
	tournament.WinnerId = winnerId
	tournament.UpdatedAt = now

	winner, err := s.userRepo.GetById(ctx, winnerId)
	if err != nil || winner == nil {
		winner = &models.User{UserId: winnerId, Username: participant.Username}
	}
	if err := s.eventPublisher.PublishTournamentCompleted(ctx, tournament, winner); err != nil {
		s.logger.Error("Failed to publish tournament completed event", "error", err, "tournament_id", tournament.TournamentId)
	}
	return nil
}

// refundAll returns every paid fee of a cancelled tournament. Each refund is
// its own transaction and is single-shot, so a partial run can be repeated.
func (s *tournamentService) refundAll(ctx context.Context, tournament *models.Tournament) error {
	participants, err := s.participantRepo.ListByTournament(ctx, tournament.TournamentId)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list participants for refund")
	}

	failed := 0
	for i := range participants {
		p := &participants[i]
		if p.EntryFeePaid <= 0 {
			continue
		}

		err := s.entryRepo.Refund(ctx, repository.LeaveEntry{
			Tournament:    tournament,
			Participant:   p,
			TransactionId: uuid.New().String(),
			Now:           s.now(),
		})
		if err != nil && !errors.Is(err, repository.ErrAlreadyRefunded) {
			failed++
			s.logger.Error("Failed to refund participant",
				"error", err,
				"tournament_id", tournament.TournamentId,
				"user_id", p.UserId,
			)
		}
	}

	if failed > 0 {
		return apperrors.New(apperrors.CodeTransactionError,
			fmt.Sprintf("%d refunds failed; cancel the tournament again to retry", failed))
	}
	return nil
}

// StartDue moves open tournaments whose start date has passed to
// in_progress and returns how many were started.
func (s *tournamentService) StartDue(ctx context.Context) (int, error) {
	open, err := s.tournamentRepo.List(ctx, repository.TournamentFilter{Status: models.TournamentOpen})
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list open tournaments")
	}

	now := s.now()
	started := 0
	for i := range open {
		t := &open[i]
		if t.StartDate.After(now) {
			continue
		}

		err := s.tournamentRepo.UpdateStatus(ctx, t.TournamentId, models.TournamentOpen, models.TournamentInProgress)
		if errors.Is(err, repository.ErrTournamentConditionFailed) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to start tournament", "error", err, "tournament_id", t.TournamentId)
			continue
		}

		started++
		if err := s.eventPublisher.PublishTournamentStatusChanged(ctx, t.TournamentId,
			models.TournamentOpen, models.TournamentInProgress); err != nil {
			s.logger.Error("Failed to publish status changed event", "error", err, "tournament_id", t.TournamentId)
		}
	}
	return started, nil
}

func (s *tournamentService) UploadBanner(ctx context.Context, actor Actor, tournamentId string, upload Upload) (string, error) {
	tournament, err := s.load(ctx, tournamentId)
	if err != nil {
		return "", err
	}
	if !s.owns(actor, tournament) {
		return "", tournamenterrors.NotTournamentOwnerError()
	}

	ext, err := storage.ImageExtension(upload.ContentType, upload.Size)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("tournaments/%s/banner-%s.%s", tournamentId, uuid.New().String(), ext)
	result, err := s.images.Upload(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "failed to upload banner")
	}

	if err := s.tournamentRepo.SetBanner(ctx, tournamentId, result.Location); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save banner")
	}
	return result.Location, nil
}

func (s *tournamentService) load(ctx context.Context, tournamentId string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetById(ctx, tournamentId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load tournament")
	}
	if tournament == nil {
		return nil, tournamenterrors.TournamentNotFoundError(tournamentId)
	}
	return tournament, nil
}

func (s *tournamentService) owns(actor Actor, tournament *models.Tournament) bool {
	return canManage(actor, tournament)
}

func (s *tournamentService) viewFor(actor Actor, tournament *models.Tournament) *models.Tournament {
	if s.owns(actor, tournament) {
		return tournament
	}
	return tournament.Redacted()
}
