package routes

import (
	"net/http"

	"github.com/Dosada05/tourney/handlers"
	"github.com/Dosada05/tourney/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
}

func SetupRoutes(
	router *chi.Mux,
	opts Options,
	scheduleHandler *handlers.ScheduleHandler,
	matchHandler *handlers.MatchHandler,
	standingsHandler *handlers.StandingsHandler,
	stageItemHandler *handlers.StageItemHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/api", func(r chi.Router) {
		// read-only views are public
		r.Get("/stage-items/{stageItemID}", stageItemHandler.GetStageItem)
		r.Get("/stage-items/{stageItemID}/rounds", scheduleHandler.ListRounds)
		r.Get("/rounds/{roundID}/matches", scheduleHandler.ListRoundMatches)
		r.Get("/matches/{matchID}", matchHandler.GetMatch)
		r.Get("/teams/{teamID}/matches", matchHandler.ListTeamMatches)
		r.Get("/tournaments/{tournamentID}/matches", matchHandler.ListTournamentMatches)
		r.Get("/tournaments/{tournamentID}/standings", standingsHandler.ListStandings)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(opts.JWTSecret))
			r.Use(middleware.Authorize(middleware.RoleAdmin, middleware.RoleOrganizer))

			r.Patch("/stage-items/{stageItemID}", stageItemHandler.RenameStageItem)
			r.Put("/stage-items/{stageItemID}/teams", stageItemHandler.AssignTeams)
			r.Delete("/stage-items/{stageItemID}/teams", stageItemHandler.ClearTeams)
			r.Put("/stage-items/{stageItemID}/inputs", stageItemHandler.SetInputs)
			r.Post("/stage-items/{stageItemID}/schedule", scheduleHandler.GenerateSchedule)

			r.Patch("/matches/{matchID}/score", matchHandler.UpdateScore)
			r.Post("/matches/{matchID}/end", matchHandler.EndMatch)
			r.Post("/tournaments/{tournamentID}/standings/recompute", standingsHandler.RecomputeStandings)
		})
	})
}
