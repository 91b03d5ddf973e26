package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Dosada05/tourney/models"
	"github.com/Dosada05/tourney/services"
)

type scoreRequest struct {
	Side1 *int `json:"side1" validate:"required"`
	Side2 *int `json:"side2" validate:"required"`
}

func (s *scoreRequest) toModel() models.Score {
	return models.Score{Side1: *s.Side1, Side2: *s.Side2}
}

type updateScoreRequest struct {
	Score *scoreRequest `json:"score" validate:"required"`
}

type endMatchRequest struct {
	WinnerID *int          `json:"winner_id" validate:"omitempty,gt=0"`
	Score    *scoreRequest `json:"score" validate:"required"`
}

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{
		matchService: ms,
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) UpdateScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input updateScoreRequest
	if !decodeAndValidate(w, r, &input) {
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.UpdateScore(ctx, matchID, input.Score.toModel())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) EndMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input endMatchRequest
	if !decodeAndValidate(w, r, &input) {
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	match, err := h.matchService.EndMatch(ctx, matchID, services.EndMatchInput{
		WinnerID: input.WinnerID,
		Score:    input.Score.toModel(),
	})
	if errors.Is(err, services.ErrStatsNotApplied) && match != nil {
		// the match is ended; standings need a recompute
		slog.ErrorContext(r.Context(), "match ended without stats", slog.Int("match_id", matchID), slog.Any("error", err))
		response := jsonResponse{"error": err.Error(), "match": match}
		if err := writeJSON(w, http.StatusInternalServerError, response, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTeamMatches returns a team's fixture list, earliest start first.
func (h *MatchHandler) ListTeamMatches(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListTeamMatches(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListTournamentMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListTournamentMatches(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
