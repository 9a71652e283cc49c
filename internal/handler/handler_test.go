package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nat-prohmpiriya/travillian-games/internal/auth"
	"github.com/nat-prohmpiriya/travillian-games/internal/model"
	"github.com/nat-prohmpiriya/travillian-games/internal/service"
	"github.com/nat-prohmpiriya/travillian-games/pkg/catalog"
)

// --- Mock Repositories ---

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockUserRepo) FindByProviderID(_ context.Context, provider, providerID string) (*model.User, error) {
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) Upsert(_ context.Context, provider, providerID, displayName, avatarURL string, tribe catalog.Tribe) (*model.User, error) {
	for _, u := range m.users {
		if u.Provider == provider && u.ProviderID == providerID {
			u.DisplayName = displayName
			return u, nil
		}
	}
	m.seq++
	u := &model.User{
		ID:          fmt.Sprintf("user-%d", m.seq),
		Provider:    provider,
		ProviderID:  providerID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Tribe:       tribe,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserRepo) UpdateDisplayName(_ context.Context, id, displayName string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.DisplayName = displayName
	return nil
}

type mockReportRepo struct {
	battles map[string]*model.BattleReport
	scouts  map[string]*model.ScoutReport
	seq     int
}

func newMockReportRepo() *mockReportRepo {
	return &mockReportRepo{
		battles: make(map[string]*model.BattleReport),
		scouts:  make(map[string]*model.ScoutReport),
	}
}

func (m *mockReportRepo) CreateBattleReport(_ context.Context, r *model.BattleReport) (*model.BattleReport, error) {
	m.seq++
	r.ID = fmt.Sprintf("battle-%d", m.seq)
	r.CreatedAt = time.Now()
	m.battles[r.ID] = r
	return r, nil
}

func (m *mockReportRepo) FindBattleReport(_ context.Context, id string) (*model.BattleReport, error) {
	r, ok := m.battles[id]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (m *mockReportRepo) ListBattleReports(_ context.Context, playerID string) ([]model.BattleReport, error) {
	var result []model.BattleReport
	for _, r := range m.battles {
		if r.AttackerPlayerID == playerID || r.DefenderPlayerID == playerID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReportRepo) MarkBattleReportRead(_ context.Context, id, playerID string) error {
	r, ok := m.battles[id]
	if !ok {
		return nil
	}
	if r.AttackerPlayerID == playerID {
		r.ReadByAttacker = true
	}
	if r.DefenderPlayerID == playerID {
		r.ReadByDefender = true
	}
	return nil
}

func (m *mockReportRepo) CreateScoutReport(_ context.Context, r *model.ScoutReport) (*model.ScoutReport, error) {
	m.seq++
	r.ID = fmt.Sprintf("scout-%d", m.seq)
	r.CreatedAt = time.Now()
	m.scouts[r.ID] = r
	return r, nil
}

func (m *mockReportRepo) FindScoutReport(_ context.Context, id string) (*model.ScoutReport, error) {
	r, ok := m.scouts[id]
	if !ok {
		return nil, nil
	}
	return r, nil
}

func (m *mockReportRepo) ListScoutReports(_ context.Context, playerID string) ([]model.ScoutReport, error) {
	var result []model.ScoutReport
	for _, r := range m.scouts {
		if r.AttackerPlayerID == playerID || r.DefenderPlayerID == playerID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockReportRepo) MarkScoutReportRead(_ context.Context, id, playerID string) error {
	r, ok := m.scouts[id]
	if !ok {
		return nil
	}
	if r.AttackerPlayerID == playerID {
		r.ReadByAttacker = true
	}
	if r.DefenderPlayerID == playerID {
		r.ReadByDefender = true
	}
	return nil
}

func (m *mockReportRepo) UnreadCounts(_ context.Context, playerID string) (*model.UnreadCounts, error) {
	counts := &model.UnreadCounts{}
	for _, r := range m.battles {
		if (r.AttackerPlayerID == playerID && !r.ReadByAttacker) || (r.DefenderPlayerID == playerID && !r.ReadByDefender) {
			counts.Battle++
		}
	}
	for _, r := range m.scouts {
		if (r.AttackerPlayerID == playerID && !r.ReadByAttacker) || (r.DefenderPlayerID == playerID && !r.ReadByDefender) {
			counts.Scout++
		}
	}
	counts.Total = counts.Battle + counts.Scout
	return counts, nil
}

// --- Helpers ---

func reqWithUserID(method, path string, body string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	ctx := auth.WithUserID(req.Context(), userID)
	return req.WithContext(ctx)
}

// --- User Handler Tests ---

func TestGetMe(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["user-1"] = &model.User{
		ID:          "user-1",
		DisplayName: "Alice",
		Provider:    "google",
		Tribe:       catalog.TribePhasuttha,
	}
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodGet, "/users/me", "", "user-1")
	rec := httptest.NewRecorder()
	h.GetMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var user model.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.DisplayName != "Alice" {
		t.Errorf("expected Alice, got %s", user.DisplayName)
	}
	if user.Tribe != catalog.TribePhasuttha {
		t.Errorf("expected phasuttha, got %s", user.Tribe)
	}
}

func TestGetMeNotFound(t *testing.T) {
	repo := newMockUserRepo()
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodGet, "/users/me", "", "nonexistent")
	rec := httptest.NewRecorder()
	h.GetMe(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateMe(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["user-1"] = &model.User{
		ID:          "user-1",
		DisplayName: "Alice",
	}
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodPatch, "/users/me", `{"display_name":"Bob"}`, "user-1")
	rec := httptest.NewRecorder()
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var user model.User
	json.Unmarshal(rec.Body.Bytes(), &user)
	if user.DisplayName != "Bob" {
		t.Errorf("expected Bob, got %s", user.DisplayName)
	}
}

func TestUpdateMeEmptyName(t *testing.T) {
	repo := newMockUserRepo()
	repo.users["user-1"] = &model.User{ID: "user-1"}
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodPatch, "/users/me", `{"display_name":""}`, "user-1")
	rec := httptest.NewRecorder()
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateMeInvalidJSON(t *testing.T) {
	repo := newMockUserRepo()
	h := NewUserHandler(repo)

	req := reqWithUserID(http.MethodPatch, "/users/me", "not json", "user-1")
	rec := httptest.NewRecorder()
	h.UpdateMe(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// --- Auth Handler Tests ---

func TestRefreshTokenValid(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", 24)
	repo := newMockUserRepo()
	h := NewAuthHandler(nil, jwtMgr, repo, false)

	refresh, _ := jwtMgr.GenerateRefreshToken("user-1")
	body := fmt.Sprintf(`{"refresh_token":"%s"}`, refresh)
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens auth.TokenPair
	json.Unmarshal(rec.Body.Bytes(), &tokens)
	if tokens.AccessToken == "" {
		t.Error("expected non-empty access token")
	}
}

func TestRefreshTokenInvalid(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", 24)
	repo := newMockUserRepo()
	h := NewAuthHandler(nil, jwtMgr, repo, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"invalid"}`))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshTokenBadBody(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", 24)
	repo := newMockUserRepo()
	h := NewAuthHandler(nil, jwtMgr, repo, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.RefreshToken(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDevLogin(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", 24)
	repo := newMockUserRepo()
	h := NewAuthHandler(nil, jwtMgr, repo, true)

	req := httptest.NewRequest(http.MethodPost, "/auth/dev?name=alice&tribe=nava", nil)
	rec := httptest.NewRecorder()
	h.DevLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var tokens auth.TokenPair
	json.Unmarshal(rec.Body.Bytes(), &tokens)
	if tokens.AccessToken == "" {
		t.Error("expected non-empty access token")
	}

	user, _ := repo.FindByProviderID(context.Background(), "dev", "dev-alice")
	if user == nil {
		t.Fatal("expected dev user to be created")
	}
	if user.Tribe != catalog.TribeNava {
		t.Errorf("expected nava, got %s", user.Tribe)
	}
}

func TestDevLoginDisabledInProduction(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", 24)
	h := NewAuthHandler(nil, jwtMgr, newMockUserRepo(), false)

	req := httptest.NewRequest(http.MethodPost, "/auth/dev?name=alice", nil)
	rec := httptest.NewRecorder()
	h.DevLogin(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestDevLoginMissingName(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", 24)
	h := NewAuthHandler(nil, jwtMgr, newMockUserRepo(), true)

	req := httptest.NewRequest(http.MethodPost, "/auth/dev", nil)
	rec := httptest.NewRecorder()
	h.DevLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDevLoginInvalidTribe(t *testing.T) {
	jwtMgr := auth.NewJWTManager("test-secret", 24)
	h := NewAuthHandler(nil, jwtMgr, newMockUserRepo(), true)

	req := httptest.NewRequest(http.MethodPost, "/auth/dev?name=alice&tribe=atlantis", nil)
	rec := httptest.NewRecorder()
	h.DevLogin(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

// --- Report Handler Tests ---

func TestListBattleReportsEmpty(t *testing.T) {
	repo := newMockReportRepo()
	h := NewReportHandler(service.NewReportService(repo))

	req := reqWithUserID(http.MethodGet, "/reports/battles", "", "user-1")
	rec := httptest.NewRecorder()
	h.ListBattleReports(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := strings.TrimSpace(rec.Body.String())
	if body != "[]" {
		t.Errorf("expected [], got %s", body)
	}
}

func TestGetBattleReportForbiddenToStrangers(t *testing.T) {
	repo := newMockReportRepo()
	repo.CreateBattleReport(context.Background(), &model.BattleReport{
		AttackerPlayerID: "user-1",
		DefenderPlayerID: "user-2",
		Winner:           "attacker",
	})
	h := NewReportHandler(service.NewReportService(repo))

	req := reqWithUserID(http.MethodGet, "/reports/battles/battle-1", "", "user-3")
	req.SetPathValue("id", "battle-1")
	rec := httptest.NewRecorder()
	h.GetBattleReport(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-participant, got %d", rec.Code)
	}
}

func TestGetBattleReport(t *testing.T) {
	repo := newMockReportRepo()
	repo.CreateBattleReport(context.Background(), &model.BattleReport{
		AttackerPlayerID: "user-1",
		DefenderPlayerID: "user-2",
		Winner:           "attacker",
	})
	h := NewReportHandler(service.NewReportService(repo))

	req := reqWithUserID(http.MethodGet, "/reports/battles/battle-1", "", "user-2")
	req.SetPathValue("id", "battle-1")
	rec := httptest.NewRecorder()
	h.GetBattleReport(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report model.BattleReport
	json.Unmarshal(rec.Body.Bytes(), &report)
	if report.Winner != "attacker" {
		t.Errorf("expected attacker, got %s", report.Winner)
	}
}

func TestMarkBattleReportRead(t *testing.T) {
	repo := newMockReportRepo()
	repo.CreateBattleReport(context.Background(), &model.BattleReport{
		AttackerPlayerID: "user-1",
		DefenderPlayerID: "user-2",
	})
	h := NewReportHandler(service.NewReportService(repo))

	req := reqWithUserID(http.MethodPost, "/reports/battles/battle-1/read", "", "user-1")
	req.SetPathValue("id", "battle-1")
	rec := httptest.NewRecorder()
	h.MarkBattleReportRead(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !repo.battles["battle-1"].ReadByAttacker {
		t.Error("expected attacker side marked read")
	}
	if repo.battles["battle-1"].ReadByDefender {
		t.Error("defender side should stay unread")
	}
}

func TestUnreadCountsEndpoint(t *testing.T) {
	repo := newMockReportRepo()
	repo.CreateBattleReport(context.Background(), &model.BattleReport{AttackerPlayerID: "user-1"})
	repo.CreateScoutReport(context.Background(), &model.ScoutReport{AttackerPlayerID: "user-1"})
	h := NewReportHandler(service.NewReportService(repo))

	req := reqWithUserID(http.MethodGet, "/reports/unread", "", "user-1")
	rec := httptest.NewRecorder()
	h.UnreadCounts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var counts model.UnreadCounts
	json.Unmarshal(rec.Body.Bytes(), &counts)
	if counts.Battle != 1 || counts.Scout != 1 || counts.Total != 2 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}
