package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/storage"
)

const (
	MinTeamMembers     = 2
	MaxTeamMembers     = 10
	DefaultTeamMembers = 5
)

var teamTagPattern = regexp.MustCompile(`^[A-Z0-9]{2,5}$`)

type CreateTeamInput struct {
	Name       string
	Tag        string
	Game       models.Game
	MaxMembers int
}

type TeamDetails struct {
	Team    *models.Team            `json:"team"`
	Members []models.TeamMembership `json:"members"`
}

type TeamService interface {
	Create(ctx context.Context, actor Actor, input CreateTeamInput) (*models.Team, error)
	Get(ctx context.Context, teamId string) (*TeamDetails, error)
	List(ctx context.Context, game models.Game, page PageRequest) (Page[models.Team], error)
	ListMine(ctx context.Context, actor Actor) ([]models.TeamMembership, error)
	Join(ctx context.Context, actor Actor, teamId string) (*models.TeamMembership, error)
	Leave(ctx context.Context, actor Actor, teamId string) error
	TransferCaptaincy(ctx context.Context, actor Actor, teamId, newCaptainId string) error
	UploadLogo(ctx context.Context, actor Actor, teamId string, upload Upload) (string, error)
}

type teamService struct {
	teamRepo       repository.TeamRepository
	images         ImageStore
	eventPublisher EventPublisher
	logger         *logger.Logger
	now            clock
}

func NewTeamService(
	teamRepo repository.TeamRepository,
	images ImageStore,
	eventPublisher EventPublisher,
	logger *logger.Logger,
) TeamService {
	return &teamService{
		teamRepo:       teamRepo,
		images:         images,
		eventPublisher: eventPublisher,
		logger:         logger.With("component", "TeamService"),
		now:            utcNow,
	}
}

func (s *teamService) Create(ctx context.Context, actor Actor, input CreateTeamInput) (*models.Team, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Tag = strings.ToUpper(strings.TrimSpace(input.Tag))
	if input.MaxMembers == 0 {
		input.MaxMembers = DefaultTeamMembers
	}

	details := make(map[string]string)
	if input.Name == "" {
		details["name"] = "is required"
	}
	if !teamTagPattern.MatchString(input.Tag) {
		details["tag"] = "must be 2 to 5 letters or digits"
	}
	if input.MaxMembers < MinTeamMembers || input.MaxMembers > MaxTeamMembers {
		details["maxMembers"] = fmt.Sprintf("must be between %d and %d", MinTeamMembers, MaxTeamMembers)
	}
	if input.Game != "" && !validGame(input.Game) {
		details["game"] = "is not a supported game"
	}
	if len(details) > 0 {
		return nil, apperrors.Validation(details)
	}

	now := s.now()
	team := &models.Team{
		TeamId:      uuid.New().String(),
		Name:        input.Name,
		Tag:         input.Tag,
		Game:        input.Game,
		CaptainId:   actor.UserId,
		MaxMembers:  input.MaxMembers,
		MemberCount: 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	captain := &models.TeamMembership{
		TeamId:   team.TeamId,
		UserId:   actor.UserId,
		Username: actor.Username,
		Role:     models.TeamCaptain,
		JoinedAt: now,
	}

	err := s.teamRepo.Create(ctx, team, captain)
	if errors.Is(err, repository.ErrTagTaken) {
		return nil, tournamenterrors.TeamTagTakenError(team.Tag)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to create team")
	}

	s.logger.Info("Team created", "team_id", team.TeamId, "tag", team.Tag, "captain_id", actor.UserId)

	if err := s.eventPublisher.PublishTeamCreated(ctx, team); err != nil {
		s.logger.Error("Failed to publish team created event", "error", err, "team_id", team.TeamId)
	}
	return team, nil
}

func (s *teamService) Get(ctx context.Context, teamId string) (*TeamDetails, error) {
	team, err := s.load(ctx, teamId)
	if err != nil {
		return nil, err
	}

	members, err := s.teamRepo.ListMembers(ctx, teamId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list team members")
	}
	return &TeamDetails{Team: team, Members: members}, nil
}

func (s *teamService) List(ctx context.Context, game models.Game, page PageRequest) (Page[models.Team], error) {
	teams, err := s.teamRepo.List(ctx, game)
	if err != nil {
		return Page[models.Team]{}, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list teams")
	}
	return paginate(teams, page), nil
}

func (s *teamService) ListMine(ctx context.Context, actor Actor) ([]models.TeamMembership, error) {
	memberships, err := s.teamRepo.ListMembershipsByUser(ctx, actor.UserId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list teams")
	}
	return memberships, nil
}

func (s *teamService) Join(ctx context.Context, actor Actor, teamId string) (*models.TeamMembership, error) {
	team, err := s.load(ctx, teamId)
	if err != nil {
		return nil, err
	}

	existing, err := s.teamRepo.GetMember(ctx, teamId, actor.UserId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check team membership")
	}
	if existing != nil {
		return nil, tournamenterrors.AlreadyTeamMemberError()
	}
	if team.MemberCount >= team.MaxMembers {
		return nil, tournamenterrors.TeamFullError(team.MaxMembers)
	}

	member := &models.TeamMembership{
		TeamId:   teamId,
		UserId:   actor.UserId,
		Username: actor.Username,
		Role:     models.TeamMember,
		JoinedAt: s.now(),
	}

	err = s.teamRepo.AddMember(ctx, team, member)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrMemberExists):
		return nil, tournamenterrors.AlreadyTeamMemberError()
	case errors.Is(err, repository.ErrTeamConditionFailed):
		// Either the last seat went to someone else or the team is gone.
		if _, loadErr := s.load(ctx, teamId); loadErr != nil {
			return nil, loadErr
		}
		return nil, tournamenterrors.TeamFullError(team.MaxMembers)
	default:
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to join team")
	}

	s.logger.Info("User joined team", "team_id", teamId, "user_id", actor.UserId)

	if err := s.eventPublisher.PublishTeamMemberJoined(ctx, teamId, actor.UserId); err != nil {
		s.logger.Error("Failed to publish team member joined event", "error", err, "team_id", teamId)
	}
	return member, nil
}

func (s *teamService) Leave(ctx context.Context, actor Actor, teamId string) error {
	team, err := s.load(ctx, teamId)
	if err != nil {
		return err
	}

	member, err := s.teamRepo.GetMember(ctx, teamId, actor.UserId)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check team membership")
	}
	if member == nil {
		return tournamenterrors.NotTeamMemberError()
	}

	if team.CaptainId == actor.UserId {
		if team.MemberCount > 1 {
			return tournamenterrors.CaptainMustTransferError()
		}
		return s.disband(ctx, team)
	}

	err = s.teamRepo.RemoveMember(ctx, team, actor.UserId)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrMemberMissing):
		return tournamenterrors.NotTeamMemberError()
	case errors.Is(err, repository.ErrTeamConditionFailed):
		// Captaincy moved to this user after the read.
		return tournamenterrors.CaptainMustTransferError()
	default:
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to leave team")
	}

	s.logger.Info("User left team", "team_id", teamId, "user_id", actor.UserId)

	if err := s.eventPublisher.PublishTeamMemberLeft(ctx, teamId, actor.UserId); err != nil {
		s.logger.Error("Failed to publish team member left event", "error", err, "team_id", teamId)
	}
	return nil
}

func (s *teamService) disband(ctx context.Context, team *models.Team) error {
	err := s.teamRepo.Disband(ctx, team)
	if errors.Is(err, repository.ErrTeamConditionFailed) {
		// Someone joined between the read and the delete.
		return tournamenterrors.CaptainMustTransferError()
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to disband team")
	}

	s.logger.Info("Team disbanded", "team_id", team.TeamId, "captain_id", team.CaptainId)

	if err := s.eventPublisher.PublishTeamDisbanded(ctx, team.TeamId); err != nil {
		s.logger.Error("Failed to publish team disbanded event", "error", err, "team_id", team.TeamId)
	}
	return nil
}

func (s *teamService) TransferCaptaincy(ctx context.Context, actor Actor, teamId, newCaptainId string) error {
	team, err := s.load(ctx, teamId)
	if err != nil {
		return err
	}
	if team.CaptainId != actor.UserId {
		return tournamenterrors.NotCaptainError()
	}
	if newCaptainId == actor.UserId {
		return apperrors.Validation(map[string]string{"userId": "is already the captain"})
	}

	member, err := s.teamRepo.GetMember(ctx, teamId, newCaptainId)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to check team membership")
	}
	if member == nil {
		return tournamenterrors.NotTeamMemberError()
	}

	err = s.teamRepo.TransferCaptain(ctx, team, newCaptainId)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrMemberMissing):
		return tournamenterrors.NotTeamMemberError()
	case errors.Is(err, repository.ErrTeamConditionFailed):
		return tournamenterrors.NotCaptainError()
	default:
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to transfer captaincy")
	}

	s.logger.Info("Team captaincy transferred", "team_id", teamId, "from", actor.UserId, "to", newCaptainId)
	return nil
}

func (s *teamService) UploadLogo(ctx context.Context, actor Actor, teamId string, upload Upload) (string, error) {
	team, err := s.load(ctx, teamId)
	if err != nil {
		return "", err
	}
	if team.CaptainId != actor.UserId && !actor.IsAdmin() {
		return "", tournamenterrors.NotCaptainError()
	}

	ext, err := storage.ImageExtension(upload.ContentType, upload.Size)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("teams/%s/logo-%s.%s", teamId, uuid.New().String(), ext)
	result, err := s.images.Upload(ctx, key, upload.ContentType, upload.Body)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeStorageError, "failed to upload logo")
	}

	if err := s.teamRepo.SetLogo(ctx, teamId, result.Location); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to save logo")
	}
	return result.Location, nil
}

func (s *teamService) load(ctx context.Context, teamId string) (*models.Team, error) {
	team, err := s.teamRepo.GetById(ctx, teamId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load team")
	}
	if team == nil {
		return nil, tournamenterrors.TeamNotFoundError(teamId)
	}
	return team, nil
}
