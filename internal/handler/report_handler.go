package handler

import (
	"net/http"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/service"
)

// ReportHandler handles battle and scout report endpoints.
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a ReportHandler.
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// ListBattleReports handles GET /api/v1/reports/battles
func (h *ReportHandler) ListBattleReports(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	reports, err := h.reportSvc.BattleReports(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if reports == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// GetBattleReport handles GET /api/v1/reports/battles/{id}
func (h *ReportHandler) GetBattleReport(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	report, err := h.reportSvc.BattleReport(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MarkBattleReportRead handles POST /api/v1/reports/battles/{id}/read
func (h *ReportHandler) MarkBattleReportRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.reportSvc.MarkBattleReportRead(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// ListScoutReports handles GET /api/v1/reports/scouts
func (h *ReportHandler) ListScoutReports(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	reports, err := h.reportSvc.ScoutReports(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if reports == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// GetScoutReport handles GET /api/v1/reports/scouts/{id}
func (h *ReportHandler) GetScoutReport(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	report, err := h.reportSvc.ScoutReport(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// MarkScoutReportRead handles POST /api/v1/reports/scouts/{id}/read
func (h *ReportHandler) MarkScoutReportRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if err := h.reportSvc.MarkScoutReportRead(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

// UnreadCounts handles GET /api/v1/reports/unread
func (h *ReportHandler) UnreadCounts(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	counts, err := h.reportSvc.UnreadCounts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
