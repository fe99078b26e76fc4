package handler

import (
	"net/http"

	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

type createTeamRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=40"`
	Tag        string `json:"tag" validate:"required"`
	Game       string `json:"game"`
	MaxMembers int    `json:"maxMembers"`
}

type transferCaptaincyRequest struct {
	UserId string `json:"userId" validate:"required"`
}

type TeamHandler struct {
	teamService service.TeamService
	logger      *logger.Logger
}

func NewTeamHandler(teamService service.TeamService, logger *logger.Logger) *TeamHandler {
	return &TeamHandler{
		teamService: teamService,
		logger:      logger,
	}
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req createTeamRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	team, err := h.teamService.Create(r.Context(), actor, service.CreateTeamInput{
		Name:       req.Name,
		Tag:        req.Tag,
		Game:       models.Game(req.Game),
		MaxMembers: req.MaxMembers,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, team)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.teamService.Get(r.Context(), urlParam(r, "teamId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, details)
}

func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.teamService.List(r.Context(), models.Game(r.URL.Query().Get("game")), page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	okPage(w, result)
}

func (h *TeamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	memberships, err := h.teamService.ListMine(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, memberships)
}

func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	membership, err := h.teamService.Join(r.Context(), actor, urlParam(r, "teamId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, membership)
}

func (h *TeamHandler) Leave(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	if err := h.teamService.Leave(r.Context(), actor, urlParam(r, "teamId")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, map[string]bool{"left": true})
}

func (h *TeamHandler) TransferCaptaincy(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req transferCaptaincyRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.teamService.TransferCaptaincy(r.Context(), actor, urlParam(r, "teamId"), req.UserId); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, map[string]string{"captainId": req.UserId})
}

func (h *TeamHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	upload, closeFile, err := readUpload(w, r, "logo")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer closeFile()

	url, err := h.teamService.UploadLogo(r.Context(), actor, urlParam(r, "teamId"), upload)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, map[string]string{"logoUrl": url})
}
