package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracket-esports/bracket/common/config"
	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/auth"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

// stubTournaments embeds the interface so only the methods a test sets are
// implemented; anything else panics.
type stubTournaments struct {
	service.TournamentService
	join         func(actor service.Actor, tournamentId string, input service.JoinTournamentInput) (*models.Participant, error)
	create       func(actor service.Actor, input service.CreateTournamentInput) (*models.Tournament, error)
	list         func(actor service.Actor, filter repository.TournamentFilter, page service.PageRequest) (service.Page[models.Tournament], error)
	uploadBanner func(actor service.Actor, tournamentId string, upload service.Upload) (string, error)
	participants func(actor service.Actor, tournamentId string) ([]models.Participant, error)
}

func (s *stubTournaments) Join(_ context.Context, actor service.Actor, tournamentId string, input service.JoinTournamentInput) (*models.Participant, error) {
	return s.join(actor, tournamentId, input)
}

func (s *stubTournaments) Create(_ context.Context, actor service.Actor, input service.CreateTournamentInput) (*models.Tournament, error) {
	return s.create(actor, input)
}

func (s *stubTournaments) List(_ context.Context, actor service.Actor, filter repository.TournamentFilter, page service.PageRequest) (service.Page[models.Tournament], error) {
	return s.list(actor, filter, page)
}

func (s *stubTournaments) UploadBanner(_ context.Context, actor service.Actor, tournamentId string, upload service.Upload) (string, error) {
	return s.uploadBanner(actor, tournamentId, upload)
}

func (s *stubTournaments) ListParticipants(_ context.Context, actor service.Actor, tournamentId string) ([]models.Participant, error) {
	return s.participants(actor, tournamentId)
}

type testServer struct {
	handler     http.Handler
	tokens      *auth.TokenManager
	tournaments *stubTournaments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", TokenTTLHours: 1, Issuer: "bracket-test"})
	require.NoError(t, err)

	log := logger.Nop()
	tournaments := &stubTournaments{}
	h := Handlers{
		Users:       NewUserHandler(nil, log),
		Tournaments: NewTournamentHandler(tournaments, log),
		Teams:       NewTeamHandler(nil, log),
		Matches:     NewMatchHandler(nil, log),
		Analytics:   NewAnalyticsHandler(nil, log),
		Creators:    NewCreatorHandler(nil, log),
	}

	return &testServer{
		handler:     NewRouter(h, NewAuthenticator(tokens, log), []string{"*"}, log),
		tokens:      tokens,
		tournaments: tournaments,
	}
}

func (s *testServer) token(t *testing.T, id string, role models.Role) string {
	t.Helper()

	token, _, err := s.tokens.Issue(&models.User{UserId: id, Username: "user-" + id, Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestJoinTournament(t *testing.T) {
	s := newTestServer(t)
	s.tournaments.join = func(actor service.Actor, tournamentId string, input service.JoinTournamentInput) (*models.Participant, error) {
		assert.Equal(t, "u-1", actor.UserId)
		assert.Equal(t, "ABC123", input.InviteCode)
		return &models.Participant{TournamentId: tournamentId, UserId: actor.UserId, EntryFeePaid: 50}, nil
	}

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/t-1/join", s.token(t, "u-1", models.RolePlayer),
		strings.NewReader(`{"inviteCode":"ABC123"}`), "application/json")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "t-1", data["tournamentId"])
	assert.Equal(t, float64(50), data["entryFeePaid"])
}

func TestJoinWithoutBody(t *testing.T) {
	s := newTestServer(t)
	s.tournaments.join = func(actor service.Actor, tournamentId string, input service.JoinTournamentInput) (*models.Participant, error) {
		assert.Empty(t, input.TeamId)
		return &models.Participant{TournamentId: tournamentId, UserId: actor.UserId}, nil
	}

	rec, _ := s.do(t, http.MethodPost, "/api/tournaments/t-1/join", s.token(t, "u-1", models.RolePlayer), nil, "")

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestJoinRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/t-1/join", "", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))
}

func TestJoinRejectsForgedToken(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/t-1/join", "not-a-jwt", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apperrors.CodeUnauthorized, errorCode(body))
}

func TestListParticipantsPassesOptionalCaller(t *testing.T) {
	s := newTestServer(t)
	s.tournaments.participants = func(actor service.Actor, tournamentId string) ([]models.Participant, error) {
		if actor.UserId != "u-1" {
			return nil, tournamenterrors.TournamentDetailsHiddenError()
		}
		return []models.Participant{{TournamentId: tournamentId, UserId: actor.UserId}}, nil
	}

	rec, body := s.do(t, http.MethodGet, "/api/tournaments/t-1/participants", "", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(body))

	rec, body = s.do(t, http.MethodGet, "/api/tournaments/t-1/participants", s.token(t, "u-1", models.RolePlayer), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"full", tournamenterrors.TournamentFullError(8), http.StatusConflict, apperrors.CodeTournamentFull},
		{"funds", tournamenterrors.InsufficientFundsError(10, 50), http.StatusBadRequest, apperrors.CodeInsufficientFunds},
		{"already joined", tournamenterrors.AlreadyJoinedError(), http.StatusConflict, apperrors.CodeAlreadyJoined},
		{"missing", tournamenterrors.TournamentNotFoundError("t-1"), http.StatusNotFound, apperrors.CodeNotFound},
		{"invite", tournamenterrors.InviteRequiredError(), http.StatusForbidden, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.tournaments.join = func(service.Actor, string, service.JoinTournamentInput) (*models.Participant, error) {
				return nil, tt.err
			}

			rec, body := s.do(t, http.MethodPost, "/api/tournaments/t-1/join", s.token(t, "u-1", models.RolePlayer), nil, "")

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	s := newTestServer(t)
	s.tournaments.join = func(service.Actor, string, service.JoinTournamentInput) (*models.Participant, error) {
		return nil, errors.New("dynamodb: connection reset by peer")
	}

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/t-1/join", s.token(t, "u-1", models.RolePlayer), nil, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dynamodb")
	assert.Equal(t, apperrors.CodeInternalServer, errorCode(body))
}

func TestCreateTournamentRequiresCreatorRole(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/", s.token(t, "u-1", models.RolePlayer),
		strings.NewReader(`{}`), "application/json")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apperrors.CodeForbidden, errorCode(body))
}

func TestCreateTournamentValidation(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/", s.token(t, "c-1", models.RoleCreator),
		strings.NewReader(`{"game":"valorant","format":"ladder","entryFee":-5}`), "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeValidationFailed, errorCode(body))
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, "is required", details["title"])
	assert.Contains(t, details["format"], "must be one of")
	assert.Contains(t, details, "entryFee")
}

func TestCreateTournamentRejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/", s.token(t, "c-1", models.RoleCreator),
		strings.NewReader(`{"title":"Cup","prize":1}`), "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, errorCode(body))
}

func TestCreateTournament(t *testing.T) {
	s := newTestServer(t)
	s.tournaments.create = func(actor service.Actor, input service.CreateTournamentInput) (*models.Tournament, error) {
		assert.Equal(t, models.RoleCreator, actor.Role)
		assert.Equal(t, models.GameValorant, input.Game)
		return &models.Tournament{TournamentId: "t-9", Title: input.Title, Status: models.TournamentOpen}, nil
	}

	payload := `{
		"title": "Friday Cup",
		"game": "valorant",
		"format": "single_elimination",
		"maxParticipants": 16,
		"entryFee": 50,
		"prizePool": 500,
		"startDate": "2026-12-01T18:00:00Z",
		"registrationDeadline": "2026-12-01T17:00:00Z"
	}`
	rec, body := s.do(t, http.MethodPost, "/api/tournaments/", s.token(t, "c-1", models.RoleCreator),
		strings.NewReader(payload), "application/json")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "t-9", body["data"].(map[string]any)["id"])
}

func TestListTournamentsPagination(t *testing.T) {
	s := newTestServer(t)
	s.tournaments.list = func(actor service.Actor, filter repository.TournamentFilter, page service.PageRequest) (service.Page[models.Tournament], error) {
		assert.Empty(t, actor.UserId)
		assert.Equal(t, models.GameCS2, filter.Game)
		assert.Equal(t, 2, page.Page)
		return service.Page[models.Tournament]{
			Items:      []models.Tournament{{TournamentId: "t-3"}},
			Page:       2,
			Limit:      2,
			Total:      3,
			TotalPages: 2,
		}, nil
	}

	rec, body := s.do(t, http.MethodGet, "/api/tournaments/?game=cs2&page=2&limit=2", "", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	items := body["data"].([]any)
	require.Len(t, items, 1)
	p := body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), p["total"])
	assert.Equal(t, float64(2), p["totalPages"])
}

func TestListTournamentsRejectsBadPage(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/api/tournaments/?page=abc", "", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apperrors.CodeInvalidInput, errorCode(body))
}

func TestUploadBanner(t *testing.T) {
	s := newTestServer(t)
	s.tournaments.uploadBanner = func(_ service.Actor, tournamentId string, upload service.Upload) (string, error) {
		assert.Equal(t, "image/png", upload.ContentType)
		assert.Equal(t, int64(4), upload.Size)
		return "https://cdn.example.gg/tournaments/" + tournamentId + "/banner.png", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="banner"; filename="banner.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec, body := s.do(t, http.MethodPost, "/api/tournaments/t-1/banner", s.token(t, "c-1", models.RoleCreator),
		&buf, mw.FormDataContentType())

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, body["data"].(map[string]any)["bannerUrl"], "t-1")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/health", "", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
}
