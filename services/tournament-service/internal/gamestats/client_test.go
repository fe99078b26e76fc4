package gamestats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bracket-esports/bracket/common/cache"
	"github.com/bracket-esports/bracket/common/config"
	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, rc *cache.RedisClient) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.GameStatsConfig{
		BaseURL:        srv.URL + "/{region}",
		APIKey:         "secret-key",
		TimeoutSeconds: 5,
	}
	return NewClient(cfg, ratelimit.NewFixedWindow(100), rc, logger.Nop())
}

func TestGetValorantMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eu/val/match/v1/matches/m-42", r.URL.Path)
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(ValorantMatch{
			MatchInfo: ValorantMatchInfo{MatchId: "m-42", MapId: "/Game/Maps/Ascent", IsCompleted: true},
			Players: []ValorantPlayer{{
				PUUID:  "p-1",
				TeamId: "Red",
				Stats:  &ValorantPlayerStats{Kills: 21, Deaths: 12, Assists: 4},
			}},
			RoundResults: []ValorantRoundResult{{RoundNum: 0, WinningTeam: "Red"}},
		})
	}, nil)

	match, err := client.GetValorantMatch(context.Background(), "eu", "m-42")
	require.NoError(t, err)
	assert.True(t, match.MatchInfo.IsCompleted)
	require.Len(t, match.Players, 1)
	assert.Equal(t, 21, match.Players[0].Stats.Kills)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		wantCode string
		wantMsg  string
	}{
		{http.StatusForbidden, apperrors.CodeExternalUnavailable, "rejected the credentials"},
		{http.StatusTooManyRequests, apperrors.CodeExternalUnavailable, "rate limit exceeded"},
		{http.StatusBadGateway, apperrors.CodeExternalUnavailable, "unavailable"},
		{http.StatusNotFound, apperrors.CodeNotFound, "match not found"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}, nil)

			_, err := client.GetLeagueMatch(context.Background(), "na", "EUW1_1")
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAccountLookupIsCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := cache.Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/riot/account/v1/accounts/by-riot-id/Ace/EUW"))
		_ = json.NewEncoder(w).Encode(Account{PUUID: "p-1", GameName: "Ace", TagLine: "EUW"})
	}, rc)

	for i := 0; i < 3; i++ {
		account, err := client.GetAccountByRiotID(context.Background(), "eu", "Ace", "EUW")
		require.NoError(t, err)
		assert.Equal(t, "p-1", account.PUUID)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateLobbyCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/eu/val/tournament/v1/codes", r.URL.Path)

		var req LobbyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t-1", req.TournamentId)
		assert.Equal(t, 1, req.Count)

		_ = json.NewEncoder(w).Encode([]string{"VAL-CODE-1"})
	}, nil)

	code, err := client.CreateLobbyCode(context.Background(), models.GameValorant,
		LobbyRequest{TournamentId: "t-1", Region: "eu"})
	require.NoError(t, err)
	assert.Equal(t, "VAL-CODE-1", code)

	_, err = client.CreateLobbyCode(context.Background(), models.GameCS2, LobbyRequest{Region: "eu"})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
}
