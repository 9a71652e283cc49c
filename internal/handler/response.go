package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/nat-prohmpiriya/travillian-games/internal/service"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error onto its HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor translates service sentinel errors into HTTP status codes.
// Unknown errors are treated as internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrVillageNotFound),
		errors.Is(err, service.ErrBuildingNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrArmyNotFound),
		errors.Is(err, service.ErrReportNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotYourVillage):
		return http.StatusForbidden
	case errors.Is(err, service.ErrCoordinateTaken),
		errors.Is(err, service.ErrSlotOccupied),
		errors.Is(err, service.ErrAlreadyUpgrading):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidName),
		errors.Is(err, service.ErrInvalidBuildingType),
		errors.Is(err, service.ErrPrereqNotMet),
		errors.Is(err, service.ErrMaxLevel),
		errors.Is(err, service.ErrCannotDemolish),
		errors.Is(err, service.ErrInsufficientResources),
		errors.Is(err, service.ErrInvalidTroopType),
		errors.Is(err, service.ErrInvalidTroopCount),
		errors.Is(err, service.ErrNotEnoughTroops),
		errors.Is(err, service.ErrInvalidMission),
		errors.Is(err, service.ErrTargetIsOwnVillage),
		errors.Is(err, service.ErrChiefRequired),
		errors.Is(err, service.ErrNoTargetVillage),
		errors.Is(err, service.ErrArmyNotStationed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
