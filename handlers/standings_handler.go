package handlers

import (
	"net/http"

	"github.com/Dosada05/tourney/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
}

func NewStandingsHandler(ss services.StandingsService) *StandingsHandler {
	return &StandingsHandler{
		standingsService: ss,
	}
}

func (h *StandingsHandler) ListStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.standingsService.ListStandings(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RecomputeStandings rebuilds team stats from ended matches.
func (h *StandingsHandler) RecomputeStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	standings, err := h.standingsService.RecomputeStandings(ctx, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
