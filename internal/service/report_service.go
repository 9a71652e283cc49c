package service

import (
	"context"

	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/repository"
)

// ReportService serves battle and scout reports to their participants.
type ReportService struct {
	reports repository.ReportRepository
}

// NewReportService creates a ReportService.
func NewReportService(reports repository.ReportRepository) *ReportService {
	return &ReportService{reports: reports}
}

// BattleReports lists the user's battle reports, newest first.
func (s *ReportService) BattleReports(ctx context.Context, userID string) ([]model.BattleReport, error) {
	return s.reports.ListBattleReports(ctx, userID)
}

// BattleReport fetches one battle report. Only a participant may read it.
func (s *ReportService) BattleReport(ctx context.Context, userID, reportID string) (*model.BattleReport, error) {
	r, err := s.reports.FindBattleReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r == nil || !participates(userID, r.AttackerPlayerID, r.DefenderPlayerID) {
		return nil, ErrReportNotFound
	}
	return r, nil
}

// MarkBattleReportRead marks the caller's side of a battle report as read.
func (s *ReportService) MarkBattleReportRead(ctx context.Context, userID, reportID string) error {
	r, err := s.BattleReport(ctx, userID, reportID)
	if err != nil {
		return err
	}
	return s.reports.MarkBattleReportRead(ctx, r.ID, userID)
}

// ScoutReports lists the user's scout reports, newest first.
func (s *ReportService) ScoutReports(ctx context.Context, userID string) ([]model.ScoutReport, error) {
	return s.reports.ListScoutReports(ctx, userID)
}

// ScoutReport fetches one scout report. Only a participant may read it.
func (s *ReportService) ScoutReport(ctx context.Context, userID, reportID string) (*model.ScoutReport, error) {
	r, err := s.reports.FindScoutReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if r == nil || !participates(userID, r.AttackerPlayerID, r.DefenderPlayerID) {
		return nil, ErrReportNotFound
	}
	return r, nil
}

// MarkScoutReportRead marks the caller's side of a scout report as read.
func (s *ReportService) MarkScoutReportRead(ctx context.Context, userID, reportID string) error {
	r, err := s.ScoutReport(ctx, userID, reportID)
	if err != nil {
		return err
	}
	return s.reports.MarkScoutReportRead(ctx, r.ID, userID)
}

// UnreadCounts returns how many unread reports the user has of each kind.
func (s *ReportService) UnreadCounts(ctx context.Context, userID string) (*model.UnreadCounts, error) {
	return s.reports.UnreadCounts(ctx, userID)
}

func participates(userID, attackerID, defenderID string) bool {
	return userID == attackerID || (defenderID != "" && userID == defenderID)
}
