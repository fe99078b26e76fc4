package handler

import (
	"net/http"

	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type linkAccountRequest struct {
	Platform string `json:"platform" validate:"required"`
	GameName string `json:"gameName" validate:"required"`
	TagLine  string `json:"tagLine" validate:"required"`
	Region   string `json:"region"`
}

type grantCoinsRequest struct {
	Amount    int64  `json:"amount" validate:"gt=0"`
	Reference string `json:"reference"`
}

type UserHandler struct {
	userService service.UserService
	logger      *logger.Logger
}

func NewUserHandler(userService service.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.userService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, session)
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	session, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, session)
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	user, err := h.userService.GetMe(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, user)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), urlParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, user)
}

func (h *UserHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.userService.ListWalletTransactions(r.Context(), actor, page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	okPage(w, result)
}

func (h *UserHandler) LinkAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req linkAccountRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	account, err := h.userService.LinkAccount(r.Context(), actor, service.LinkAccountInput{
		Platform: models.Game(req.Platform),
		GameName: req.GameName,
		TagLine:  req.TagLine,
		Region:   req.Region,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, account)
}

func (h *UserHandler) UnlinkAccount(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.userService.UnlinkAccount(r.Context(), actor, models.Game(urlParam(r, "platform"))); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, map[string]bool{"unlinked": true})
}

func (h *UserHandler) GrantCoins(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req grantCoinsRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	txn, err := h.userService.GrantCoins(r.Context(), actor, urlParam(r, "userId"), req.Amount, req.Reference)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, txn)
}
