package routes

import (
	"net/http"

	"github.com/Dosada05/tournament-engine/handlers"
	"github.com/Dosada05/tournament-engine/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	AllowedOrigins []string
	// RateLimiter применяется к изменяющим маршрутам; nil отключает ограничение.
	RateLimiter *middleware.RateLimiter
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limited := func(r chi.Router) chi.Router {
		if opts.RateLimiter == nil {
			return r
		}
		return r.With(opts.RateLimiter.Handler)
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		limited(r).Post("/", tournamentHandler.CreateHandler)

		r.Route("/{tournamentID}", func(r chi.Router) {
			r.Get("/", tournamentHandler.GetByIDHandler)
			r.Get("/standings", tournamentHandler.StandingsHandler)
			r.Get("/pairings", tournamentHandler.PairingsHandler)
			r.Get("/matches", matchHandler.ListHandler)

			w := limited(r)
			w.Post("/contestants", tournamentHandler.AddContestantHandler)
			w.Post("/contestants/{name}/withdraw", tournamentHandler.WithdrawContestantHandler)
			w.Post("/matches", matchHandler.SubmitResultHandler)
			w.Post("/byes", matchHandler.RegisterByeHandler)
			w.Post("/rounds/check", tournamentHandler.CheckRoundHandler)
			w.Post("/cancel", tournamentHandler.CancelHandler)
			w.Post("/finish", tournamentHandler.FinishHandler)
		})
	})

	router.Get("/ws/tournaments/{tournamentID}", webSocketHandler.ServeWs)
}
