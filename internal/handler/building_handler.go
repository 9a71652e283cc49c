package handler

import (
	"net/http"
	"strconv"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/service"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// BuildingHandler handles construction endpoints.
type BuildingHandler struct {
	buildingSvc *service.BuildingService
}

// NewBuildingHandler creates a BuildingHandler.
func NewBuildingHandler(buildingSvc *service.BuildingService) *BuildingHandler {
	return &BuildingHandler{buildingSvc: buildingSvc}
}

// ListBuildings handles GET /api/v1/villages/{id}/buildings
func (h *BuildingHandler) ListBuildings(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	buildings, err := h.buildingSvc.List(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buildings)
}

// BuildQueue handles GET /api/v1/villages/{id}/buildings/queue
func (h *BuildingHandler) BuildQueue(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	queue, err := h.buildingSvc.Queue(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if queue == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, queue)
}

// Build handles POST /api/v1/villages/{id}/buildings/{slot}
func (h *BuildingHandler) Build(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	slot, err := slotValue(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot")
		return
	}
	var req struct {
		Type string `json:"building_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	building, err := h.buildingSvc.Build(r.Context(), userID, r.PathValue("id"), slot, catalog.BuildingType(req.Type))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, building)
}

// Upgrade handles POST /api/v1/villages/{id}/buildings/{slot}/upgrade
func (h *BuildingHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	slot, err := slotValue(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot")
		return
	}
	building, err := h.buildingSvc.Upgrade(r.Context(), userID, r.PathValue("id"), slot)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, building)
}

// Demolish handles DELETE /api/v1/villages/{id}/buildings/{slot}
func (h *BuildingHandler) Demolish(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	slot, err := slotValue(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid slot")
		return
	}
	if err := h.buildingSvc.Demolish(r.Context(), userID, r.PathValue("id"), slot); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "demolished"})
}

func slotValue(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("slot"))
}
