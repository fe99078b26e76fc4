package handler

import (
	"net/http"

	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

type applyCreatorRequest struct {
	ChannelURL string `json:"channelUrl" validate:"required,url"`
}

type CreatorHandler struct {
	creatorService service.CreatorService
	logger         *logger.Logger
}

func NewCreatorHandler(creatorService service.CreatorService, logger *logger.Logger) *CreatorHandler {
	return &CreatorHandler{
		creatorService: creatorService,
		logger:         logger,
	}
}

func (h *CreatorHandler) Apply(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req applyCreatorRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	profile, err := h.creatorService.Apply(r.Context(), actor, req.ChannelURL)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, profile)
}

func (h *CreatorHandler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	profile, err := h.creatorService.Approve(r.Context(), actor, urlParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, profile)
}

func (h *CreatorHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	dashboard, err := h.creatorService.Dashboard(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, dashboard)
}

func (h *CreatorHandler) Tournaments(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	page, err := pageRequest(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.creatorService.ListMyTournaments(r.Context(), actor, page)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	okPage(w, result)
}
