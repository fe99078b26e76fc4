package gamestats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bracket-esports/bracket/common/cache"
	"github.com/bracket-esports/bracket/common/config"
	apperrors "github.com/bracket-esports/bracket/common/errors"
	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	tournamenterrors "github.com/bracket-esports/bracket/services/tournament-service/internal/errors"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/ratelimit"
)

const accountCacheTTL = 10 * time.Minute

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    ratelimit.Limiter
	cache      *cache.RedisClient
	logger     *logger.Logger
}

// NewClient builds the upstream client. rc may be nil, which disables the
// account lookup cache.
func NewClient(
	cfg config.GameStatsConfig,
	limiter ratelimit.Limiter,
	rc *cache.RedisClient,
	log *logger.Logger,
) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		limiter:    limiter,
		cache:      rc,
		logger:     log.With("component", "gamestats"),
	}
}

func accountCacheKey(region, gameName, tagLine string) string {
	return fmt.Sprintf("gamestats:account:%s:%s#%s",
		region, strings.ToLower(gameName), strings.ToLower(tagLine))
}

func (c *Client) GetAccountByRiotID(ctx context.Context, region, gameName, tagLine string) (*Account, error) {
	key := accountCacheKey(region, gameName, tagLine)

	var account Account
	if c.cache != nil {
		hit, err := c.cache.GetJSON(ctx, key, &account)
		if err != nil {
			c.logger.Warn("Account cache read failed", "error", err, "key", key)
		} else if hit {
			return &account, nil
		}
	}

	path := fmt.Sprintf("/riot/account/v1/accounts/by-riot-id/%s/%s",
		url.PathEscape(gameName), url.PathEscape(tagLine))
	if err := c.do(ctx, http.MethodGet, region, path, nil, &account, "account"); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, account, accountCacheTTL); err != nil {
			c.logger.Warn("Account cache write failed", "error", err, "key", key)
		}
	}
	return &account, nil
}

func (c *Client) GetValorantMatch(ctx context.Context, region, matchId string) (*ValorantMatch, error) {
	var match ValorantMatch
	path := "/val/match/v1/matches/" + url.PathEscape(matchId)
	if err := c.do(ctx, http.MethodGet, region, path, nil, &match, "match"); err != nil {
		return nil, err
	}
	return &match, nil
}

func (c *Client) GetValorantMatchList(ctx context.Context, region, puuid string) (*ValorantMatchList, error) {
	var list ValorantMatchList
	path := "/val/match/v1/matchlists/by-puuid/" + url.PathEscape(puuid)
	if err := c.do(ctx, http.MethodGet, region, path, nil, &list, "match list"); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetLeagueMatch(ctx context.Context, region, matchId string) (*LeagueMatch, error) {
	var match LeagueMatch
	path := "/lol/match/v5/matches/" + url.PathEscape(matchId)
	if err := c.do(ctx, http.MethodGet, region, path, nil, &match, "match"); err != nil {
		return nil, err
	}
	return &match, nil
}

func (c *Client) GetLeagueMatchIDs(ctx context.Context, region, puuid string, count int) ([]string, error) {
	ids := make([]string, 0)
	path := fmt.Sprintf("/lol/match/v5/matches/by-puuid/%s/ids?count=%d", url.PathEscape(puuid), count)
	if err := c.do(ctx, http.MethodGet, region, path, nil, &ids, "match list"); err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateLobbyCode asks the game API for one tournament lobby code.
func (c *Client) CreateLobbyCode(ctx context.Context, game models.Game, req LobbyRequest) (string, error) {
	family, err := gameFamily(game)
	if err != nil {
		return "", err
	}
	if req.Count == 0 {
		req.Count = 1
	}

	codes := make([]string, 0)
	path := fmt.Sprintf("/%s/tournament/v1/codes", family)
	if err := c.do(ctx, http.MethodPost, req.Region, path, req, &codes, "tournament"); err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", apperrors.New(apperrors.CodeExternalUnavailable, "game API returned no lobby code")
	}
	return codes[0], nil
}

func gameFamily(game models.Game) (string, error) {
	switch game {
	case models.GameValorant:
		return "val", nil
	case models.GameLeagueOfLegends:
		return "lol", nil
	default:
		return "", tournamenterrors.NoStatsSourceError(string(game))
	}
}

func (c *Client) endpoint(region, path string) string {
	return strings.ReplaceAll(c.baseURL, "{region}", region) + path
}

func (c *Client) do(ctx context.Context, method, region, path string, body, out any, what string) error {
	if err := c.limiter.Wait(ctx, region); err != nil {
		return apperrors.Wrap(err, apperrors.CodeRateLimited, "gave up waiting for the game API rate limiter")
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeObjectMarshalError, "failed to encode game API request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(region, path), reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternalServer, "failed to build game API request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Game API request failed", "error", err, "path", path, "region", region)
		return apperrors.Wrap(err, apperrors.CodeExternalUnavailable, "game API is unavailable")
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, what); err != nil {
		c.logger.Warn("Game API returned an error",
			"status", resp.StatusCode,
			"path", path,
			"region", region,
		)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.CodeObjectUnmarshalError, "failed to decode game API response")
	}
	return nil
}

// statusError maps upstream HTTP statuses onto domain errors.
func statusError(status int, what string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusForbidden, status == http.StatusUnauthorized:
		return tournamenterrors.GameAPIForbiddenError()
	case status == http.StatusNotFound:
		return tournamenterrors.GameAPINotFoundError(what)
	case status == http.StatusTooManyRequests:
		return tournamenterrors.GameAPIRateLimitedError()
	default:
		return tournamenterrors.GameAPIUnavailableError(status)
	}
}
