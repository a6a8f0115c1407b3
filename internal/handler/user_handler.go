package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Get はユーザーを取得する。
	Get(ctx context.Context, userID string) (*model.User, error)
	// UpdateProfile はプロフィールを部分更新する。
	UpdateProfile(ctx context.Context, userID string, input user.ProfileInput) (*model.User, error)
	// Block は相手ユーザーをブロックする。
	Block(ctx context.Context, userID, targetID string) error
	// Unblock はブロックを解除する。
	Unblock(ctx context.Context, userID, targetID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// nilのフィールドは変更しない。
type updateProfileRequest struct {
	Name      *string `json:"name"`
	Photo     *string `json:"photo"`
	PushToken *string `json:"push_token"`
}

// userResponse は自分自身のユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Photo     string    `json:"photo"`
	PushToken string    `json:"push_token"`
	Stars     int       `json:"stars"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GetMe は自分のプロフィールを取得する。
// GET /api/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	found, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(found))
}

// UpdateMe は自分のプロフィールを部分更新する。
// PATCH /api/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, user.ProfileInput{
		Name:      req.Name,
		Photo:     req.Photo,
		PushToken: req.PushToken,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(updated))
}

// GetUser は他ユーザーの公開プロフィールを取得する。
// GET /api/users/:id
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "id")

	found, err := h.service.Get(r.Context(), targetID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 他人にはメールアドレスとプッシュトークンを返さない
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserSummaryResponse(found.Summary()))
}

// BlockUser は相手ユーザーをブロックする。冪等で、再ブロックもエラーにしない。
// POST /api/users/:id/block
func (h *UserHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	targetID := chi.URLParam(r, "id")

	if err := h.service.Block(r.Context(), userID, targetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnblockUser はブロックを解除する。
// DELETE /api/users/:id/block
func (h *UserHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	targetID := chi.URLParam(r, "id")

	if err := h.service.Unblock(r.Context(), userID, targetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetupUserRoutes はユーザー管理関連のルーティングを設定したchi.Routerを返す。
func SetupUserRoutes(service UserServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewUserHandler(service)

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Patch("/me", h.UpdateMe)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetUser)
			r.Post("/block", h.BlockUser)
			r.Delete("/block", h.UnblockUser)
		})
	})

	return r
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Photo:     u.Photo,
		PushToken: u.PushToken,
		Stars:     u.Stars,
		Rating:    u.Rating,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
