package handler

import (
	"net/http"
	"strconv"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/service"
)

// VillageHandler handles village and map endpoints.
type VillageHandler struct {
	villageSvc *service.VillageService
}

// NewVillageHandler creates a VillageHandler.
func NewVillageHandler(villageSvc *service.VillageService) *VillageHandler {
	return &VillageHandler{villageSvc: villageSvc}
}

// ListVillages handles GET /api/v1/villages
func (h *VillageHandler) ListVillages(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	villages, err := h.villageSvc.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if villages == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, villages)
}

// GetVillage handles GET /api/v1/villages/{id}
func (h *VillageHandler) GetVillage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	village, err := h.villageSvc.Get(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, village)
}

// CreateVillage handles POST /api/v1/villages
func (h *VillageHandler) CreateVillage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name string `json:"name"`
		X    int    `json:"x"`
		Y    int    `json:"y"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	village, err := h.villageSvc.Create(r.Context(), userID, req.Name, req.X, req.Y)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, village)
}

// RenameVillage handles PATCH /api/v1/villages/{id}
func (h *VillageHandler) RenameVillage(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.villageSvc.Rename(r.Context(), userID, r.PathValue("id"), req.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
}

// GetMap handles GET /api/v1/map?x=&y=&radius=
func (h *VillageHandler) GetMap(w http.ResponseWriter, r *http.Request) {
	x := queryInt(r, "x", 0)
	y := queryInt(r, "y", 0)
	radius := queryInt(r, "radius", 7)

	tiles, err := h.villageSvc.Map(r.Context(), x, y, radius)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"x":      x,
		"y":      y,
		"radius": radius,
		"tiles":  tiles,
	})
}

// queryInt parses an integer query parameter, falling back on a default.
func queryInt(r *http.Request, key string, fallback int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
