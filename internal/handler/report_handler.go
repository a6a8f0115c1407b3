package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/security"
)

// maxReasonLength は通報理由の最大文字数。
const maxReasonLength = 1000

// ReportCreator は通報登録のためのインターフェース。
// repository.ReportRepositoryを直接変更せず、最小限のインターフェースとして定義する。
type ReportCreator interface {
	// Create は通報を作成する。
	Create(ctx context.Context, report *model.Report) error
}

// ReportHandler は通報受付のHTTPハンドラー。
type ReportHandler struct {
	creator   ReportCreator
	sanitizer security.TextSanitizerService
}

// NewReportHandler はReportHandlerを生成する。
func NewReportHandler(creator ReportCreator, sanitizer security.TextSanitizerService) *ReportHandler {
	return &ReportHandler{
		creator:   creator,
		sanitizer: sanitizer,
	}
}

// reportEventRequest はイベント通報リクエストのボディ。
type reportEventRequest struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

// reportUserRequest はユーザー通報リクエストのボディ。
type reportUserRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// reportResponse は通報受付のAPIレスポンス。
type reportResponse struct {
	ID string `json:"id"`
}

// ReportEvent はイベントへの通報を受け付ける。
// POST /api/report/event
func (h *ReportHandler) ReportEvent(w http.ResponseWriter, r *http.Request) {
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

	var req reportEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	h.submitReport(w, r, userID, model.ReportTargetEvent, req.EventID, req.Reason)
}

// ReportUser はユーザーへの通報を受け付ける。
// POST /api/report/user
func (h *ReportHandler) ReportUser(w http.ResponseWriter, r *http.Request) {
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

	var req reportUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	h.submitReport(w, r, userID, model.ReportTargetUser, req.UserID, req.Reason)
}

// submitReport は通報の検証と保存を行う共通処理。
func (h *ReportHandler) submitReport(w http.ResponseWriter, r *http.Request, reporterID string, targetType model.ReportTargetType, targetID, reason string) {
	if targetID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "通報対象のIDが空です。",
			Category: "validation",
			Action:   "通報対象のIDを指定してください。",
		})
		return
	}

	reason = h.sanitizer.Sanitize(reason)
	if reason == "" || utf8.RuneCountInString(reason) > maxReasonLength {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "通報理由が空か長すぎます。",
			Category: "validation",
			Action:   "通報理由を1000文字以内で入力してください。",
		})
		return
	}

	report := &model.Report{
		ID:         uuid.New().String(),
		ReporterID: reporterID,
		TargetType: targetType,
		TargetID:   targetID,
		Reason:     reason,
		CreatedAt:  time.Now(),
	}

	if err := h.creator.Create(r.Context(), report); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(reportResponse{ID: report.ID})
}

// SetupReportRoutes は通報受付のルーティングを設定したchi.Routerを返す。
func SetupReportRoutes(creator ReportCreator, sanitizer security.TextSanitizerService) http.Handler {
	r := chi.NewRouter()
	h := NewReportHandler(creator, sanitizer)

	r.Route("/api/report", func(r chi.Router) {
		r.Post("/event", h.ReportEvent)
		r.Post("/user", h.ReportUser)
	})

	return r
}
