package handler

import (
	"net/http"
	"time"

	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

type createTournamentRequest struct {
	Title                string    `json:"title" validate:"required,max=120"`
	Description          string    `json:"description" validate:"max=2000"`
	Game                 string    `json:"game" validate:"required"`
	Format               string    `json:"format" validate:"required,oneof=single_elimination double_elimination round_robin swiss"`
	MaxParticipants      int       `json:"maxParticipants" validate:"required"`
	EntryFee             int64     `json:"entryFee" validate:"gte=0"`
	PrizePool            int64     `json:"prizePool" validate:"gte=0"`
	StartDate            time.Time `json:"startDate" validate:"required"`
	RegistrationDeadline time.Time `json:"registrationDeadline" validate:"required"`
	Status               string    `json:"status" validate:"omitempty,oneof=draft open"`
	Visibility           string    `json:"visibility" validate:"omitempty,oneof=public private invite_only"`
	Region               string    `json:"region"`
}

type joinTournamentRequest struct {
	TeamId     string `json:"teamId"`
	InviteCode string `json:"inviteCode"`
}

type updateStatusRequest struct {
	Status   string `json:"status" validate:"required,oneof=draft open in_progress completed cancelled"`
	WinnerId string `json:"winnerId" validate:"required_if=Status completed"`
}

type TournamentHandler struct {
	tournamentService service.TournamentService
	logger            *logger.Logger
}

func NewTournamentHandler(tournamentService service.TournamentService, logger *logger.Logger) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		logger:            logger,
	}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), actor, service.CreateTournamentInput{
		Title:                req.Title,
		Description:          req.Description,
		Game:                 models.Game(req.Game),
		Format:               models.TournamentFormat(req.Format),
		MaxParticipants:      req.MaxParticipants,
		EntryFee:             req.EntryFee,
		PrizePool:            req.PrizePool,
		StartDate:            req.StartDate,
		RegistrationDeadline: req.RegistrationDeadline,
		Status:               models.TournamentStatus(req.Status),
		Visibility:           models.Visibility(req.Visibility),
		Region:               req.Region,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, tournament)
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	tournament, err := h.tournamentService.Get(r.Context(), actor, urlParam(r, "tournamentId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, tournament)
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	query := r.URL.Query()
	filter := repository.TournamentFilter{
		Game:   models.Game(query.Get("game")),
		Status: models.TournamentStatus(query.Get("status")),
		Format: models.TournamentFormat(query.Get("format")),
	}

	result, err := h.tournamentService.List(r.Context(), actor, filter, page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	okPage(w, result)
}

func (h *TournamentHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	participants, err := h.tournamentService.ListParticipants(r.Context(), actor, urlParam(r, "tournamentId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, participants)
}

func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	// The body is optional for public tournaments joined solo.
	var req joinTournamentRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	participant, err := h.tournamentService.Join(r.Context(), actor, urlParam(r, "tournamentId"), service.JoinTournamentInput{
		TeamId:     req.TeamId,
		InviteCode: req.InviteCode,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, participant)
}

func (h *TournamentHandler) Leave(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.tournamentService.Leave(r.Context(), actor, urlParam(r, "tournamentId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, map[string]bool{"left": true})
}

func (h *TournamentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req updateStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tournament, err := h.tournamentService.UpdateStatus(
		r.Context(),
		actor,
		urlParam(r, "tournamentId"),
		models.TournamentStatus(req.Status),
		req.WinnerId,
	)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, tournament)
}

func (h *TournamentHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	upload, closeFile, err := readUpload(w, r, "banner")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFile()

	url, err := h.tournamentService.UploadBanner(r.Context(), actor, urlParam(r, "tournamentId"), upload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, map[string]string{"bannerUrl": url})
}
