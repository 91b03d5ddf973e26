package handlers

import (
	"net/http"

	"github.com/Dosada05/tourney/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(ss services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: ss,
	}
}

func (h *ScheduleHandler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	stageItemID, err := getIDFromURL(r, "stageItemID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	result, err := h.scheduleService.GenerateSchedule(ctx, stageItemID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusCreated, jsonResponse{"schedule": result}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ScheduleHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	stageItemID, err := getIDFromURL(r, "stageItemID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	rounds, err := h.scheduleService.ListRounds(r.Context(), stageItemID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"rounds": rounds}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ScheduleHandler) ListRoundMatches(w http.ResponseWriter, r *http.Request) {
	roundID, err := getIDFromURL(r, "roundID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.scheduleService.ListRoundMatches(r.Context(), roundID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	err = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
