package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/eventman/internal/model"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	setRoleFn func(ctx context.Context, targetUserID string, role model.Role, callerUserID string) error
}

func (m *mockUserService) SetRole(ctx context.Context, targetUserID string, role model.Role, callerUserID string) error {
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, targetUserID, role, callerUserID)
	}
	return nil
}

var _ UserServiceInterface = (*mockUserService)(nil)

// --- PUT /api/users/:id/role テスト ---

func TestUserHandler_SetRole_Success(t *testing.T) {
	var gotTarget string
	var gotRole model.Role
	svc := &mockUserService{
		setRoleFn: func(_ context.Context, targetUserID string, role model.Role, callerUserID string) error {
			gotTarget = targetUserID
			gotRole = role
			if callerUserID != "admin-1" {
				t.Errorf("callerUserID = %q, want %q", callerUserID, "admin-1")
			}
			return nil
		},
	}

	h := NewUserHandler(svc)

	body := `{"role": "admin"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/user-2/role", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "admin-1")
	req = withChiURLParam(req, "id", "user-2")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotTarget != "user-2" {
		t.Errorf("target = %q, want %q", gotTarget, "user-2")
	}
	if gotRole != model.RoleAdmin {
		t.Errorf("role = %q, want %q", gotRole, model.RoleAdmin)
	}
}

func TestUserHandler_SetRole_InvalidRole_Returns400(t *testing.T) {
	svc := &mockUserService{
		setRoleFn: func(_ context.Context, _ string, _ model.Role, _ string) error {
			t.Fatal("SetRole should not be called for an invalid role")
			return nil
		},
	}

	h := NewUserHandler(svc)

	body := `{"role": "superuser"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/user-2/role", bytes.NewBufferString(body))
	req = withUserID(req, "admin-1")
	req = withChiURLParam(req, "id", "user-2")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_SetRole_NonAdmin_Returns403(t *testing.T) {
	svc := &mockUserService{
		setRoleFn: func(_ context.Context, _ string, _ model.Role, _ string) error {
			return model.NewAdminRequiredError()
		},
	}

	h := NewUserHandler(svc)

	body := `{"role": "admin"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/user-2/role", bytes.NewBufferString(body))
	req = withUserID(req, "user-1")
	req = withChiURLParam(req, "id", "user-2")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}

	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if result["code"] != model.ErrCodeAdminRequired {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeAdminRequired)
	}
}

func TestUserHandler_SetRole_TargetNotFound_Returns404(t *testing.T) {
	svc := &mockUserService{
		setRoleFn: func(_ context.Context, _ string, _ model.Role, _ string) error {
			return model.NewUserNotFoundError()
		},
	}

	h := NewUserHandler(svc)

	body := `{"role": "user"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/missing/role", bytes.NewBufferString(body))
	req = withUserID(req, "admin-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestUserHandler_SetRole_NoSession_Returns401(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	body := `{"role": "admin"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/user-2/role", bytes.NewBufferString(body))
	req = withChiURLParam(req, "id", "user-2")
	w := httptest.NewRecorder()

	h.SetRole(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
