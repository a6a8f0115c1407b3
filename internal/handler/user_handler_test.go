package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/user"
)

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	getFn           func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error)
	blockFn         func(ctx context.Context, userID, targetID string) error
	unblockFn       func(ctx context.Context, userID, targetID string) error
}

func (m *mockUserService) Get(ctx context.Context, userID string) (*model.User, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, input)
	}
	return &model.User{ID: userID}, nil
}

func (m *mockUserService) Block(ctx context.Context, userID, targetID string) error {
	if m.blockFn != nil {
		return m.blockFn(ctx, userID, targetID)
	}
	return nil
}

func (m *mockUserService) Unblock(ctx context.Context, userID, targetID string) error {
	if m.unblockFn != nil {
		return m.unblockFn(ctx, userID, targetID)
	}
	return nil
}

// --- GET /api/users/me テスト ---

func TestUserHandler_GetMe_Success(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return &model.User{
				ID:        "user-123",
				Name:      "Alice",
				Email:     "alice@example.com",
				PushToken: "ExponentPushToken[aaa]",
				Stars:     4,
				Rating:    12,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.GetMe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", resp.Email, "alice@example.com")
	}
	if resp.PushToken != "ExponentPushToken[aaa]" {
		t.Errorf("PushToken = %q", resp.PushToken)
	}
}

func TestUserHandler_GetMe_Unauthorized(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	w := httptest.NewRecorder()

	h.GetMe(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- PATCH /api/users/me テスト ---

func TestUserHandler_UpdateMe_PartialUpdate(t *testing.T) {
	var gotInput user.ProfileInput
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error) {
			gotInput = input
			return &model.User{ID: userID, Name: *input.Name}, nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"name": "Bob"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotInput.Name == nil || *gotInput.Name != "Bob" {
		t.Errorf("Name = %v, want Bob", gotInput.Name)
	}
	// ボディに無いフィールドはnilのまま渡される
	if gotInput.Photo != nil {
		t.Errorf("Photo = %v, want nil", gotInput.Photo)
	}
	if gotInput.PushToken != nil {
		t.Errorf("PushToken = %v, want nil", gotInput.PushToken)
	}
}

func TestUserHandler_UpdateMe_InvalidProfile(t *testing.T) {
	svc := &mockUserService{
		updateProfileFn: func(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error) {
			return nil, model.NewInvalidProfileError("名前が空です")
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewBufferString(`{"name": ""}`))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidProfile {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidProfile)
	}
}

func TestUserHandler_UpdateMe_InvalidJSON(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewBufferString("{not json"))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateMe(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/users/:id テスト ---

func TestUserHandler_GetUser_HidesPrivateFields(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, userID string) (*model.User, error) {
			return &model.User{
				ID:        "user-456",
				Name:      "Carol",
				Email:     "carol@example.com",
				PushToken: "ExponentPushToken[ccc]",
				Stars:     3,
				Rating:    6,
			}, nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/user-456", nil)
	req = withChiURLParam(req, "id", "user-456")
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	raw := w.Body.String()
	if strings.Contains(raw, "carol@example.com") {
		t.Error("public profile should not expose email")
	}
	if strings.Contains(raw, "ExponentPushToken") {
		t.Error("public profile should not expose push token")
	}

	var resp userSummaryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "Carol" || resp.Stars != 3 {
		t.Errorf("resp = %+v, want Carol with 3 stars", resp)
	}
}

func TestUserHandler_GetUser_NotFound(t *testing.T) {
	svc := &mockUserService{
		getFn: func(ctx context.Context, userID string) (*model.User, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/ghost", nil)
	req = withChiURLParam(req, "id", "ghost")
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- POST/DELETE /api/users/:id/block テスト ---

func TestUserHandler_BlockUser_Success(t *testing.T) {
	var gotUserID, gotTargetID string
	svc := &mockUserService{
		blockFn: func(ctx context.Context, userID, targetID string) error {
			gotUserID = userID
			gotTargetID = targetID
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/users/user-456/block", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "user-456")
	w := httptest.NewRecorder()

	h.BlockUser(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotUserID != "user-123" || gotTargetID != "user-456" {
		t.Errorf("Block called with (%q, %q), want (user-123, user-456)", gotUserID, gotTargetID)
	}
}

func TestUserHandler_BlockUser_Self(t *testing.T) {
	svc := &mockUserService{
		blockFn: func(ctx context.Context, userID, targetID string) error {
			return model.NewInvalidProfileError("自分自身はブロックできません")
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/users/user-123/block", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "user-123")
	w := httptest.NewRecorder()

	h.BlockUser(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestUserHandler_UnblockUser_Success(t *testing.T) {
	var gotTargetID string
	svc := &mockUserService{
		unblockFn: func(ctx context.Context, userID, targetID string) error {
			gotTargetID = targetID
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/user-456/block", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "user-456")
	w := httptest.NewRecorder()

	h.UnblockUser(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotTargetID != "user-456" {
		t.Errorf("Unblock target = %q, want %q", gotTargetID, "user-456")
	}
}
