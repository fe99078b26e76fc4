package handler

import (
	"net/http"

	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

type createLobbyRequest struct {
	Region string `json:"region"`
}

type trackMatchRequest struct {
	LobbyId         string `json:"lobbyId" validate:"required"`
	ExternalMatchId string `json:"externalMatchId" validate:"required"`
}

type MatchHandler struct {
	matchService service.MatchService
	logger       *logger.Logger
}

func NewMatchHandler(matchService service.MatchService, logger *logger.Logger) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		logger:       logger,
	}
}

func (h *MatchHandler) CreateLobby(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req createLobbyRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	lobby, err := h.matchService.CreateLobby(r.Context(), actor, urlParam(r, "tournamentId"), req.Region)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusCreated, lobby)
}

func (h *MatchHandler) ListLobbies(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	lobbies, err := h.matchService.ListLobbies(r.Context(), actor, urlParam(r, "tournamentId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, lobbies)
}

func (h *MatchHandler) Track(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	var req trackMatchRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	details, err := h.matchService.TrackMatch(r.Context(), actor, req.LobbyId, req.ExternalMatchId)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, details)
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.matchService.GetMatch(r.Context(), urlParam(r, "matchId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, details)
}

func (h *MatchHandler) ListForTournament(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())
	matches, err := h.matchService.ListTournamentMatches(r.Context(), actor, urlParam(r, "tournamentId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, matches)
}
