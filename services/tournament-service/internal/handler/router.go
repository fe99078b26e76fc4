package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
)

type Handlers struct {
	Users       *UserHandler
	Tournaments *TournamentHandler
	Teams       *TeamHandler
	Matches     *MatchHandler
	Analytics   *AnalyticsHandler
	Creators    *CreatorHandler
}

func NewRouter(h Handlers, authn *Authenticator, allowedOrigins []string, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		ok(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	staff := RequireRole(log, models.RoleCreator, models.RoleAdmin)
	admin := RequireRole(log, models.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Users.Register)
			r.Post("/login", h.Users.Login)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{userId}", h.Users.Get)

			r.Group(func(r chi.Router) {
				r.Use(authn.Required)
				r.Get("/me", h.Users.Me)
				r.Get("/me/transactions", h.Users.Transactions)
				r.Post("/me/accounts", h.Users.LinkAccount)
				r.Delete("/me/accounts/{platform}", h.Users.UnlinkAccount)
				r.With(admin).Post("/{userId}/coins", h.Users.GrantCoins)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.With(authn.Optional).Get("/", h.Tournaments.List)
			r.With(authn.Optional).Get("/{tournamentId}", h.Tournaments.Get)
			r.With(authn.Optional).Get("/{tournamentId}/participants", h.Tournaments.ListParticipants)
			r.With(authn.Optional).Get("/{tournamentId}/lobbies", h.Matches.ListLobbies)
			r.With(authn.Optional).Get("/{tournamentId}/matches", h.Matches.ListForTournament)

			r.Group(func(r chi.Router) {
				r.Use(authn.Required)
				r.Post("/{tournamentId}/join", h.Tournaments.Join)
				r.Post("/{tournamentId}/leave", h.Tournaments.Leave)

				r.Group(func(r chi.Router) {
					r.Use(staff)
					r.Post("/", h.Tournaments.Create)
					r.Patch("/{tournamentId}/status", h.Tournaments.UpdateStatus)
					r.Post("/{tournamentId}/banner", h.Tournaments.UploadBanner)
					r.Post("/{tournamentId}/lobbies", h.Matches.CreateLobby)
				})
			})
		})

		r.Route("/teams", func(r chi.Router) {
			r.Get("/", h.Teams.List)

			r.Group(func(r chi.Router) {
				r.Use(authn.Required)
				r.Post("/", h.Teams.Create)
				r.Get("/mine", h.Teams.ListMine)
				r.Post("/{teamId}/join", h.Teams.Join)
				r.Post("/{teamId}/leave", h.Teams.Leave)
				r.Post("/{teamId}/captain", h.Teams.TransferCaptaincy)
				r.Post("/{teamId}/logo", h.Teams.UploadLogo)
			})

			r.Get("/{teamId}", h.Teams.Get)
		})

		r.Route("/matches", func(r chi.Router) {
			r.Get("/{matchId}", h.Matches.Get)
			r.With(authn.Required, staff).Post("/track", h.Matches.Track)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/leaderboards/earnings", h.Analytics.Earnings)
			r.Get("/leaderboards/{game}", h.Analytics.Leaderboard)
			r.Get("/overview", h.Analytics.Overview)
			r.Get("/users/{userId}", h.Analytics.User)
		})

		r.Route("/creator", func(r chi.Router) {
			r.Use(authn.Required)
			r.Post("/apply", h.Creators.Apply)
			r.With(admin).Post("/approve/{userId}", h.Creators.Approve)
			r.Get("/dashboard", h.Creators.Dashboard)
			r.Get("/tournaments", h.Creators.Tournaments)
		})
	})

	return r
}
