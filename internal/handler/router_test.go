package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/gatekey/internal/model"
)

// routerResolver はテスト用のトークン表引きリゾルバ。
type routerResolver struct {
	users map[string]*model.User
}

func (r *routerResolver) Resolve(ctx context.Context, rawCredential string, meta model.SessionMetadata) (*model.User, error) {
	if rawCredential == "" {
		return nil, model.NewInvalidAuthMethodError()
	}
	if user, ok := r.users[rawCredential]; ok {
		return user, nil
	}
	return nil, model.NewInvalidCredentialsError()
}

func newTestRouter(t *testing.T, users *mockUserStore) http.Handler {
	t.Helper()
	resolver := &routerResolver{
		users: map[string]*model.User{
			"mra_normal": testUser("u1", model.RoleNormal),
			"mra_mod":    testUser("u2", model.RoleModerator),
		},
	}
	if users == nil {
		users = &mockUserStore{}
	}
	return NewRouter(&RouterDeps{
		Resolver:          resolver,
		CORSAllowedOrigin: "https://app.example.com",
		Users:             users,
	})
}

func TestRouter_Health_NoAuthRequired(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_User_RequiresAuth(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body["error"] != "invalid_auth_method" {
		t.Errorf("error = %q, want invalid_auth_method", body["error"])
	}
}

func TestRouter_User_WithValidToken(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "mra_normal")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := decodeUserBody(t, rec)
	if body["id"] != "u1" {
		t.Errorf("id = %v, want u1", body["id"])
	}

	// リクエストIDとセキュリティヘッダーが全ルートに付与されること
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected Cache-Control: no-store header")
	}
}

func TestRouter_UserByID_NormalRoleRejected(t *testing.T) {
	store := &mockUserStore{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			t.Error("store should not be reached for underprivileged caller")
			return nil, nil
		},
	}
	router := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/users/u2", nil)
	req.Header.Set("Authorization", "mra_normal")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// 権限不足は資格情報エラーと同じ応答
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body["error"] != "invalid_credentials" {
		t.Errorf("error = %q, want invalid_credentials", body["error"])
	}
}

func TestRouter_UserByID_ModeratorAllowed(t *testing.T) {
	store := &mockUserStore{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return testUser(id, model.RoleNormal), nil
		},
	}
	router := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/users/u1", nil)
	req.Header.Set("Authorization", "mra_mod")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := decodeUserBody(t, rec)
	if body["id"] != "u1" {
		t.Errorf("id = %v, want u1", body["id"])
	}
	if _, present := body["payout_data"]; present {
		t.Error("payout_data should be stripped for other-user lookup")
	}
}

func TestRouter_UnknownToken_Unauthorized(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Authorization", "mra_unknown")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
