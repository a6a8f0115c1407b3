package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/model"
)

// MatchServiceInterface はマッチハンドラーが必要とするサービスインターフェース。
type MatchServiceInterface interface {
	// Create はスワイプ結果からマッチを作成する。
	Create(ctx context.Context, userID, eventID string, dismissed bool) (*model.Match, error)
	// Accept はイベント作者がマッチを承認する。
	Accept(ctx context.Context, matchID, authorID string) (*model.Match, error)
	// Delete はマッチを取り消す。
	Delete(ctx context.Context, matchID, requesterID string) error
}

// MatchHandler はマッチ管理のHTTPハンドラー。
type MatchHandler struct {
	service MatchServiceInterface
}

// NewMatchHandler はMatchHandlerを生成する。
func NewMatchHandler(service MatchServiceInterface) *MatchHandler {
	return &MatchHandler{service: service}
}

// createMatchRequest はスワイプリクエストのボディ。
// dismissed=trueは「見送り」スワイプを表す。
type createMatchRequest struct {
	EventID   string `json:"event_id"`
	Dismissed bool   `json:"dismissed"`
}

// CreateMatch はスワイプ結果の登録を処理する。
// POST /api/matches
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
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

	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.EventID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "event_idが空です。",
			Category: "validation",
			Action:   "event_idを指定してください。",
		})
		return
	}

	match, err := h.service.Create(r.Context(), userID, req.EventID, req.Dismissed)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMatchResponse(match))
}

// AcceptMatch はイベント作者によるマッチ承認を処理する。
// POST /api/matches/:id/accept
func (h *MatchHandler) AcceptMatch(w http.ResponseWriter, r *http.Request) {
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

	matchID := chi.URLParam(r, "id")

	match, err := h.service.Accept(r.Context(), matchID, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMatchResponse(match))
}

// DeleteMatch はマッチの取り消しを処理する。
// DELETE /api/matches/:id
func (h *MatchHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
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

	matchID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), matchID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetupMatchRoutes はマッチ管理関連のルーティングを設定したchi.Routerを返す。
// swipeMiddleware が nil でない場合、POST /api/matches にスワイプ専用レート制限を適用する。
func SetupMatchRoutes(service MatchServiceInterface, swipeMiddleware func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	h := NewMatchHandler(service)

	r.Route("/api/matches", func(r chi.Router) {
		// POST /api/matches - スワイプ登録（スワイプ専用レート制限を適用）
		if swipeMiddleware != nil {
			r.With(swipeMiddleware).Post("/", h.CreateMatch)
		} else {
			r.Post("/", h.CreateMatch)
		}

		r.Route("/{id}", func(r chi.Router) {
			r.Post("/accept", h.AcceptMatch)
			r.Delete("/", h.DeleteMatch)
		})
	})

	return r
}
