package service

import (
	"context"
	"io"
	"time"

	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/storage"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserId   string
	Username string
	Role     models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) CanCreateTournaments() bool {
	return a.Role == models.RoleCreator || a.Role == models.RoleAdmin
}

// EventPublisher receives domain events after the write that caused them
// has committed.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *models.User) error
	PublishTournamentCreated(ctx context.Context, tournament *models.Tournament) error
	PublishTournamentJoined(ctx context.Context, tournament *models.Tournament, participant *models.Participant) error
	PublishTournamentLeft(ctx context.Context, tournamentId, userId string, refund int64) error
	PublishTournamentStatusChanged(ctx context.Context, tournamentId string, from, to models.TournamentStatus) error
	PublishTournamentCompleted(ctx context.Context, tournament *models.Tournament, winner *models.User) error
	PublishTeamCreated(ctx context.Context, team *models.Team) error
	PublishTeamMemberJoined(ctx context.Context, teamId, userId string) error
	PublishTeamMemberLeft(ctx context.Context, teamId, userId string) error
	PublishTeamDisbanded(ctx context.Context, teamId string) error
	PublishMatchCompleted(ctx context.Context, match *models.Match, players []models.PlayerMatchStats) error
}

// Upload is an image sent by a client.
type Upload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageStore is the part of storage.FileUploader the services need.
type ImageStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (*storage.UploadResult, error)
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

type Page[T any] struct {
	Items      []T
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

func paginate[T any](items []T, req PageRequest) Page[T] {
	req = req.normalize()

	total := len(items)
	start := (req.Page - 1) * req.Limit
	if start > total {
		start = total
	}
	end := start + req.Limit
	if end > total {
		end = total
	}

	return Page[T]{
		Items:      items[start:end],
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: (total + req.Limit - 1) / req.Limit,
	}
}

type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
