package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/model"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	// Post はレビューを投稿し、対象ユーザーの評価を再計算する。
	Post(ctx context.Context, authorID, targetUserID string, stars int, text string) (*model.Review, error)
}

// ReviewHandler はレビュー投稿のHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// postReviewRequest はレビュー投稿リクエストのボディ。
type postReviewRequest struct {
	UserID string `json:"user_id"`
	Stars  int    `json:"stars"`
	Text   string `json:"text"`
}

// reviewResponse はレビュー情報のAPIレスポンス。
type reviewResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	UserID    string    `json:"user_id"`
	Stars     int       `json:"stars"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostReview はレビュー投稿を処理する。同一相手への再投稿は上書きされる。
// POST /api/reviews
func (h *ReviewHandler) PostReview(w http.ResponseWriter, r *http.Request) {
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

	var req postReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.UserID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidReviewError("user_idが空です"))
		return
	}

	review, err := h.service.Post(r.Context(), userID, req.UserID, req.Stars, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toReviewResponse(review))
}

// SetupReviewRoutes はレビュー投稿のルーティングを設定したchi.Routerを返す。
func SetupReviewRoutes(service ReviewServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewReviewHandler(service)

	r.Post("/api/reviews", h.PostReview)

	return r
}

// toReviewResponse はmodel.ReviewからAPIレスポンスに変換する。
func toReviewResponse(review *model.Review) reviewResponse {
	return reviewResponse{
		ID:        review.ID,
		AuthorID:  review.AuthorID,
		UserID:    review.UserID,
		Stars:     review.Stars,
		Text:      review.Text,
		CreatedAt: review.CreatedAt,
		UpdatedAt: review.UpdatedAt,
	}
}
