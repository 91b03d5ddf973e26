package handlers

import (
	"net/http"
	"strings"

	"github.com/Dosada05/tourney/models"
	"github.com/Dosada05/tourney/services"
)

type renameStageItemRequest struct {
	Name string `json:"name" validate:"required,max=256"`
}

type setInputsRequest struct {
	Inputs []models.StageInput `json:"inputs" validate:"required"`
}

type StageItemHandler struct {
	stageItemService services.StageItemService
}

func NewStageItemHandler(ss services.StageItemService) *StageItemHandler {
	return &StageItemHandler{
		stageItemService: ss,
	}
}

func (h *StageItemHandler) GetStageItem(w http.ResponseWriter, r *http.Request) {
	stageItemID, err := getIDFromURL(r, "stageItemID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	item, err := h.stageItemService.GetStageItem(r.Context(), stageItemID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respond(w, r, item)
}

func (h *StageItemHandler) RenameStageItem(w http.ResponseWriter, r *http.Request) {
	stageItemID, err := getIDFromURL(r, "stageItemID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input renameStageItemRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	input.Name = strings.TrimSpace(input.Name)
	if !validStruct(w, r, &input) {
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	item, err := h.stageItemService.RenameStageItem(ctx, stageItemID, input.Name)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respond(w, r, item)
}

// AssignTeams seeds the stage item with every team of its tournament.
func (h *StageItemHandler) AssignTeams(w http.ResponseWriter, r *http.Request) {
	stageItemID, err := getIDFromURL(r, "stageItemID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	item, err := h.stageItemService.AssignTeams(ctx, stageItemID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respond(w, r, item)
}

func (h *StageItemHandler) SetInputs(w http.ResponseWriter, r *http.Request) {
	stageItemID, err := getIDFromURL(r, "stageItemID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input setInputsRequest
	if !decodeAndValidate(w, r, &input) {
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	item, err := h.stageItemService.SetInputs(ctx, stageItemID, input.Inputs)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respond(w, r, item)
}

func (h *StageItemHandler) ClearTeams(w http.ResponseWriter, r *http.Request) {
	stageItemID, err := getIDFromURL(r, "stageItemID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ctx, ok := actorContext(w, r)
	if !ok {
		return
	}

	item, err := h.stageItemService.ClearTeams(ctx, stageItemID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.respond(w, r, item)
}

func (h *StageItemHandler) respond(w http.ResponseWriter, r *http.Request, item *models.StageItem) {
	err := writeJSON(w, http.StatusOK, jsonResponse{"stage_item": item}, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}
