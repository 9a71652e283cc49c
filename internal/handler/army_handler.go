package handler

import (
	"net/http"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/service"
	"github.com/nat-prohmpiriya/travillian-games/pkg/battle"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// ArmyHandler handles army dispatch and movement endpoints.
type ArmyHandler struct {
	armySvc *service.ArmyService
}

// NewArmyHandler creates an ArmyHandler.
func NewArmyHandler(armySvc *service.ArmyService) *ArmyHandler {
	return &ArmyHandler{armySvc: armySvc}
}

// SendArmy handles POST /api/v1/villages/{id}/armies
func (h *ArmyHandler) SendArmy(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		ToX     int            `json:"to_x"`
		ToY     int            `json:"to_y"`
		Mission string         `json:"mission"`
		Troops  map[string]int `json:"troops"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	troops := battle.Troops{}
	for tt, count := range req.Troops {
		if count <= 0 {
			writeError(w, http.StatusBadRequest, "troop counts must be positive")
			return
		}
		troops[catalog.TroopType(tt)] = count
	}

	army, err := h.armySvc.Send(r.Context(), userID, r.PathValue("id"), req.ToX, req.ToY, catalog.Mission(req.Mission), troops)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, army)
}

// Outgoing handles GET /api/v1/villages/{id}/armies/outgoing
func (h *ArmyHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	armies, err := h.armySvc.Outgoing(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeArmies(w, armies)
}

// Incoming handles GET /api/v1/villages/{id}/armies/incoming
func (h *ArmyHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	armies, err := h.armySvc.Incoming(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeArmies(w, armies)
}

// Stationed handles GET /api/v1/villages/{id}/armies/stationed
func (h *ArmyHandler) Stationed(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	armies, err := h.armySvc.Stationed(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeArmies(w, armies)
}

// SupportSent handles GET /api/v1/armies/support
func (h *ArmyHandler) SupportSent(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	armies, err := h.armySvc.SupportSent(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeArmies(w, armies)
}

// Recall handles POST /api/v1/armies/{armyId}/recall
func (h *ArmyHandler) Recall(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	army, err := h.armySvc.Recall(r.Context(), userID, r.PathValue("armyId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, army)
}

func writeArmies(w http.ResponseWriter, armies []model.Army) {
	if armies == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, armies)
}
