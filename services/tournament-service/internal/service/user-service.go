package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/auth"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/gamestats"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
)

const MinPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,24}$`)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(user *models.User) (string, time.Time, error)
}

// AccountLookup resolves a riot id to the game API's player identity.
type AccountLookup interface {
	GetAccountByRiotID(ctx context.Context, region, gameName, tagLine string) (*gamestats.Account, error)
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type LinkAccountInput struct {
	Platform models.Game
	GameName string
	TagLine  string
	Region   string
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	GetMe(ctx context.Context, actor Actor) (*models.User, error)
	GetUser(ctx context.Context, userId string) (*models.User, error)
	ListWalletTransactions(ctx context.Context, actor Actor, page PageRequest) (Page[models.WalletTransaction], error)
	LinkAccount(ctx context.Context, actor Actor, input LinkAccountInput) (*models.LinkedAccount, error)
	UnlinkAccount(ctx context.Context, actor Actor, platform models.Game) error
	GrantCoins(ctx context.Context, actor Actor, userId string, amount int64, reference string) (*models.WalletTransaction, error)
}

type userService struct {
	userRepo        repository.UserRepository
	walletRepo      repository.WalletRepository
	tokens          TokenIssuer
	accounts        AccountLookup
	eventPublisher  EventPublisher
	startingBalance int64
	defaultRegion   string
	logger          *logger.Logger
	now             clock
}

func NewUserService(
	userRepo repository.UserRepository,
	walletRepo repository.WalletRepository,
	tokens TokenIssuer,
	accounts AccountLookup,
	eventPublisher EventPublisher,
	startingBalance int64,
	defaultRegion string,
	logger *logger.Logger,
) UserService {
	return &userService{
		userRepo:        userRepo,
		walletRepo:      walletRepo,
		tokens:          tokens,
		accounts:        accounts,
		eventPublisher:  eventPublisher,
		startingBalance: startingBalance,
		defaultRegion:   defaultRegion,
		logger:          logger.With("component", "UserService"),
		now:             utcNow,
	}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	details := make(map[string]string)
	if !usernamePattern.MatchString(input.Username) {
		details["username"] = "must be 3 to 24 letters, digits or underscores"
	}
	if _, err := mail.ParseAddress(input.Email); err != nil {
		details["email"] = "must be a valid email address"
	}
	if len(input.Password) < MinPasswordLength {
		details["password"] = "must be at least 8 characters"
	}
	if len(details) > 0 {
		return nil, apperrors.Validation(details)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to hash password")
	}

	now := s.now()
	user := &models.User{
		UserId:         uuid.New().String(),
		Username:       input.Username,
		Email:          strings.ToLower(input.Email),
		PasswordHash:   hash,
		Role:           models.RolePlayer,
		CoinBalance:    s.startingBalance,
		Creator:        models.CreatorProfile{Status: models.CreatorNone},
		LinkedAccounts: []models.LinkedAccount{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.userRepo.Create(ctx, user)
	if errors.Is(err, repository.ErrUsernameTaken) {
		return nil, tournamenterrors.UsernameTakenError(input.Username)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to create user")
	}

	s.logger.Info("User registered", "user_id", user.UserId, "username", user.Username)

	if err := s.eventPublisher.PublishUserRegistered(ctx, user); err != nil {
		s.logger.Error("Failed to publish user registered event", "error", err, "user_id", user.UserId)
	}

	return s.session(user)
}

func (s *userService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load user")
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, tournamenterrors.InvalidCredentialsError()
	}
	return s.session(user)
}

func (s *userService) session(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to issue token")
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *userService) GetMe(ctx context.Context, actor Actor) (*models.User, error) {
	return s.load(ctx, actor.UserId)
}

func (s *userService) GetUser(ctx context.Context, userId string) (*models.User, error) {
	user, err := s.load(ctx, userId)
	if err != nil {
		return nil, err
	}
	return user.PublicView(), nil
}

func (s *userService) ListWalletTransactions(
	ctx context.Context,
	actor Actor,
	page PageRequest,
) (Page[models.WalletTransaction], error) {
	txns, err := s.walletRepo.ListByUser(ctx, actor.UserId)
	if err != nil {
		return Page[models.WalletTransaction]{}, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to list wallet transactions")
	}
	return paginate(txns, page), nil
}

// LinkAccount verifies the riot id against the game API before storing it,
// so a linked account always carries the upstream player id.
func (s *userService) LinkAccount(ctx context.Context, actor Actor, input LinkAccountInput) (*models.LinkedAccount, error) {
	switch input.Platform {
	case models.GameValorant, models.GameLeagueOfLegends:
	default:
		return nil, tournamenterrors.NoStatsSourceError(string(input.Platform))
	}
	if input.GameName == "" || input.TagLine == "" {
		return nil, apperrors.Validation(map[string]string{"riotId": "game name and tag line are required"})
	}
	if input.Region == "" {
		input.Region = s.defaultRegion
	}

	user, err := s.load(ctx, actor.UserId)
	if err != nil {
		return nil, err
	}
	if _, ok := user.LinkedAccount(input.Platform); ok {
		return nil, tournamenterrors.AccountAlreadyLinkedError()
	}

	account, err := s.accounts.GetAccountByRiotID(ctx, input.Region, input.GameName, input.TagLine)
	if err != nil {
		return nil, err
	}

	linked := models.LinkedAccount{
		Platform:    input.Platform,
		ExternalId:  account.PUUID,
		DisplayName: account.GameName + "#" + account.TagLine,
		Region:      input.Region,
		Verified:    true,
		LinkedAt:    s.now(),
	}

	err = s.userRepo.LinkAccount(ctx, user.UserId, linked)
	if errors.Is(err, repository.ErrAccountLinked) {
		return nil, tournamenterrors.AccountAlreadyLinkedError()
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to link account")
	}

	s.logger.Info("Gaming account linked",
		"user_id", user.UserId,
		"platform", input.Platform,
		"external_id", account.PUUID,
	)
	return &linked, nil
}

func (s *userService) UnlinkAccount(ctx context.Context, actor Actor, platform models.Game) error {
	user, err := s.load(ctx, actor.UserId)
	if err != nil {
		return err
	}
	if _, ok := user.LinkedAccount(platform); !ok {
		return tournamenterrors.AccountNotLinkedError(string(platform))
	}

	if err := s.userRepo.UnlinkAccount(ctx, user, platform); err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to unlink account")
	}

	s.logger.Info("Gaming account unlinked", "user_id", user.UserId, "platform", platform)
	return nil
}

func (s *userService) GrantCoins(
	ctx context.Context,
	actor Actor,
	userId string,
	amount int64,
	reference string,
) (*models.WalletTransaction, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "admin role required")
	}
	if amount <= 0 {
		return nil, apperrors.Validation(map[string]string{"amount": "must be positive"})
	}
	if _, err := s.load(ctx, userId); err != nil {
		return nil, err
	}

	txn := &models.WalletTransaction{
		TransactionId: uuid.New().String(),
		UserId:        userId,
		Kind:          models.WalletGrant,
		Amount:        amount,
		Reference:     reference,
		CreatedAt:     s.now(),
	}
	if err := s.userRepo.GrantCoins(ctx, txn); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to grant coins")
	}

	s.logger.Info("Coins granted", "user_id", userId, "amount", amount, "granted_by", actor.UserId)
	return txn, nil
}

func (s *userService) load(ctx context.Context, userId string) (*models.User, error) {
	user, err := s.userRepo.GetById(ctx, userId)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load user")
	}
	if user == nil {
		return nil, tournamenterrors.UserNotFoundError(userId)
	}
	return user, nil
}
