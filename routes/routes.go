package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mixclub/music-league/handlers"
	"github.com/mixclub/music-league/middleware"
)

type Config struct {
	JWTSecret      string
	AllowedOrigins []string

	Auth       *handlers.AuthHandler
	League     *handlers.LeagueHandler
	Round      *handlers.RoundHandler
	Submission *handlers.SubmissionHandler
	Vote       *handlers.VoteHandler
	Music      *handlers.MusicHandler
	// User и Tidal опциональны: nil, когда R2 или Tidal не сконфигурированы.
	User  *handlers.UserHandler
	Tidal *handlers.TidalHandler
}

func SetupRoutes(router *chi.Mux, cfg Config) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(cfg.JWTSecret)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", cfg.Auth.Signup)
		r.Post("/login", cfg.Auth.Login)
		r.Post("/refresh", cfg.Auth.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/me", cfg.Auth.Me)
		})
	})

	router.Route("/leagues", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", cfg.League.Create)
		r.Get("/", cfg.League.List)
		r.Post("/join", cfg.League.Join)
		r.Get("/{leagueID}", cfg.League.Get)
		r.Put("/{leagueID}", cfg.League.Update)
		r.Delete("/{leagueID}", cfg.League.Delete)
		r.Post("/{leagueID}/leave", cfg.League.Leave)
		r.Get("/{leagueID}/members", cfg.League.Members)
		r.Get("/{leagueID}/leaderboard", cfg.League.Leaderboard)
	})

	router.Route("/rounds", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", cfg.Round.Create)
		r.Get("/league/{leagueID}", cfg.Round.ListByLeague)
		r.Put("/league/{leagueID}/reorder", cfg.Round.Reorder)
		r.Get("/{roundID}", cfg.Round.Get)
		r.Put("/{roundID}", cfg.Round.Update)
		r.Delete("/{roundID}", cfg.Round.Delete)
		r.Post("/{roundID}/start", cfg.Round.Start)
		r.Post("/{roundID}/complete", cfg.Round.Complete)
		r.Get("/{roundID}/results", cfg.Round.Results)
	})

	router.Route("/submissions", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", cfg.Submission.Create)
		r.Get("/round/{roundID}/my-submission", cfg.Submission.MySubmission)
		r.Delete("/{submissionID}", cfg.Submission.Delete)
	})

	router.Route("/votes", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", cfg.Vote.Cast)
		r.Get("/round/{roundID}/my-votes", cfg.Vote.MyVotes)
		r.Put("/round/{roundID}", cfg.Vote.CastForRound)
		r.Delete("/round/{roundID}", cfg.Vote.Delete)
	})

	router.Route("/music", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/search", cfg.Music.Search)
		r.Get("/lookup", cfg.Music.Lookup)
	})

	if cfg.User != nil {
		router.Route("/users", func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/avatar", cfg.User.UploadAvatar)
			r.Delete("/avatar", cfg.User.DeleteAvatar)
		})
	}

	if cfg.Tidal != nil {
		router.Route("/tidal", func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/status", cfg.Tidal.Status)
			r.Post("/auth/start", cfg.Tidal.AuthStart)
			r.Post("/auth/poll", cfg.Tidal.AuthPoll)
			r.Delete("/disconnect", cfg.Tidal.Disconnect)
			r.Post("/playlist", cfg.Tidal.CreatePlaylist)
		})
	}
}
