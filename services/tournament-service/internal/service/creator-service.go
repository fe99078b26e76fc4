package service

import (
	"context"
	"net/url"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
)

type CreatorDashboard struct {
	TournamentsCreated int                             `json:"tournamentsCreated"`
	TotalParticipants  int                             `json:"totalParticipants"`
	Revenue            int64                           `json:"revenue"`
	PrizePools         int64                           `json:"prizePools"`
	ByStatus           map[models.TournamentStatus]int `json:"byStatus"`
}

type CreatorService interface {
	Apply(ctx context.Context, actor Actor, channelURL string) (*models.CreatorProfile, error)
	Approve(ctx context.Context, actor Actor, userId string) (*models.CreatorProfile, error)
	Dashboard(ctx context.Context, actor Actor) (*CreatorDashboard, error)
	ListMyTournaments(ctx context.Context, actor Actor, page PageRequest) (Page[models.Tournament], error)
}

type creatorService struct {
	userRepo       repository.UserRepository
	tournamentRepo repository.TournamentRepository
	logger         *logger.Logger
	now            clock
}

func NewCreatorService(
	userRepo repository.UserRepository,
	tournamentRepo repository.TournamentRepository,
	logger *logger.Logger,
) CreatorService {
	return &creatorService{
		userRepo:       userRepo,
		tournamentRepo: tournamentRepo,
		logger:         logger.With("component", "CreatorService"),
		now:            utcNow,
	}
}

func (s *creatorService) Apply(ctx context.Context, actor Actor, channelURL string) (*models.CreatorProfile, error) {
	if u, err := url.ParseRequestURI(channelURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, apperrors.Validation(map[string]string{"channelUrl": "must be an http(s) url"})
	}

	user, err := s.loadUser(ctx, actor.UserId)
	if err != nil {
		return nil, err
	}
	if user.Role == models.RoleCreator || user.Role == models.RoleAdmin ||
		user.Creator.Status == models.CreatorPending || user.Creator.Status == models.CreatorApproved {
		return nil, tournamenterrors.CreatorApplicationError(string(user.Creator.Status))
	}

	appliedAt := s.now()
	profile := models.CreatorProfile{
		Status:     models.CreatorPending,
		ChannelURL: channelURL,
		AppliedAt:  &appliedAt,
	}
	if err := s.userRepo.UpdateCreator(ctx, user.UserId, profile, user.Role); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save creator application")
	}

	s.logger.Info("Creator application submitted", "user_id", user.UserId)
	return &profile, nil
}

func (s *creatorService) Approve(ctx context.Context, actor Actor, userId string) (*models.CreatorProfile, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "admin role required")
	}

	user, err := s.loadUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.Creator.Status != models.CreatorPending {
		return nil, tournamenterrors.CreatorApplicationError(string(user.Creator.Status))
	}

	approvedAt := s.now()
	profile := user.Creator
	profile.Status = models.CreatorApproved
	profile.ApprovedAt = &approvedAt

	role := models.RoleCreator
	if user.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}
	if err := s.userRepo.UpdateCreator(ctx, userId, profile, role); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to approve creator")
	}

	s.logger.Info("Creator approved", "user_id", userId, "approved_by", actor.UserId)
	return &profile, nil
}

func (s *creatorService) Dashboard(ctx context.Context, actor Actor) (*CreatorDashboard, error) {
	tournaments, err := s.myTournaments(ctx, actor)
	if err != nil {
		return nil, err
	}

	dashboard := &CreatorDashboard{
		TournamentsCreated: len(tournaments),
		ByStatus:           make(map[models.TournamentStatus]int),
	}
	for _, t := range tournaments {
		dashboard.TotalParticipants += t.ParticipantCount
		dashboard.Revenue += t.EntryFee * int64(t.ParticipantCount)
		dashboard.PrizePools += t.PrizePool
		dashboard.ByStatus[t.Status]++
	}
	return dashboard, nil
}

func (s *creatorService) ListMyTournaments(ctx context.Context, actor Actor, page PageRequest) (Page[models.Tournament], error) {
	tournaments, err := s.myTournaments(ctx, actor)
	if err != nil {
		return Page[models.Tournament]{}, err
	}
	return paginate(tournaments, page), nil
}

func (s *creatorService) myTournaments(ctx context.Context, actor Actor) ([]models.Tournament, error) {
	if !actor.CanCreateTournaments() {
		return nil, tournamenterrors.CreatorRoleRequiredError()
	}
	tournaments, err := s.tournamentRepo.ListByCreator(ctx, actor.UserId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list creator tournaments")
	}
	return tournaments, nil
}

func (s *creatorService) loadUser(ctx context.Context, userId string) (*models.User, error) {
	user, err := s.userRepo.GetById(ctx, userId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load user")
	}
	if user == nil {
		return nil, tournamenterrors.UserNotFoundError(userId)
	}
	return user, nil
}
