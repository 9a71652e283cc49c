package handler

import (
	"net/http"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/service"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// TroopHandler handles troop and training queue endpoints.
type TroopHandler struct {
	troopSvc *service.TroopService
}

// NewTroopHandler creates a TroopHandler.
func NewTroopHandler(troopSvc *service.TroopService) *TroopHandler {
	return &TroopHandler{troopSvc: troopSvc}
}

// Definitions handles GET /api/v1/troops/definitions. Public reference data.
func (h *TroopHandler) Definitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.troopSvc.Definitions())
}

// ListTroops handles GET /api/v1/villages/{id}/troops
func (h *TroopHandler) ListTroops(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	troops, err := h.troopSvc.List(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if troops == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, troops)
}

// TrainQueue handles GET /api/v1/villages/{id}/troops/queue
func (h *TroopHandler) TrainQueue(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	status, err := h.troopSvc.Queue(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// Train handles POST /api/v1/villages/{id}/troops
func (h *TroopHandler) Train(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Type  string `json:"troop_type"`
		Count int    `json:"count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.troopSvc.Train(r.Context(), userID, r.PathValue("id"), catalog.TroopType(req.Type), req.Count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// CancelTraining handles DELETE /api/v1/villages/{id}/troops/queue/{orderId}
func (h *TroopHandler) CancelTraining(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.troopSvc.CancelOrder(r.Context(), userID, r.PathValue("id"), r.PathValue("orderId")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
