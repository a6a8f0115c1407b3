package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/woogie/woogie-server/internal/event"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/model"
)

// EventServiceInterface はイベントハンドラーが必要とするサービスインターフェース。
type EventServiceInterface interface {
	// Create はイベントを作成する。
	Create(ctx context.Context, authorID string, input event.CreateInput) (*model.Event, error)
	// Get はイベント詳細を取得する。
	Get(ctx context.Context, eventID string) (*model.Event, error)
	// Delete はイベントを削除する。作者本人のみ削除できる。
	Delete(ctx context.Context, eventID, requesterID string) error
	// LastEvent は作者の最新イベントをマッチ付きで取得する。無い場合はnilを返す。
	LastEvent(ctx context.Context, authorID string) (*model.EventWithGraph, error)
}

// EventHandler はイベント管理のHTTPハンドラー。
type EventHandler struct {
	service EventServiceInterface
}

// NewEventHandler はEventHandlerを生成する。
func NewEventHandler(service EventServiceInterface) *EventHandler {
	return &EventHandler{service: service}
}

// createEventRequest はイベント作成リクエストのボディ。
type createEventRequest struct {
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Photo     string    `json:"photo"`
	Time      time.Time `json:"time"`
	Slots     int       `json:"slots"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// eventResponse はイベント情報のAPIレスポンス。
type eventResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Photo     string    `json:"photo"`
	Time      time.Time `json:"time"`
	Slots     int       `json:"slots"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// lastEventResponse は最新イベント取得のAPIレスポンス。
// イベントが無い場合はeventがnullになる。
type lastEventResponse struct {
	Event   *eventResponse  `json:"event"`
	Matches []matchResponse `json:"matches,omitempty"`
}

// CreateEvent はイベント作成を処理する。
// POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
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

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	created, err := h.service.Create(r.Context(), userID, event.CreateInput{
		Title:     req.Title,
		Text:      req.Text,
		Photo:     req.Photo,
		Time:      req.Time,
		Slots:     req.Slots,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toEventResponse(created))
}

// GetEvent はイベント詳細を取得する。
// GET /api/events/:id
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	found, err := h.service.Get(r.Context(), eventID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toEventResponse(found))
}

// DeleteEvent はイベントを削除する。
// DELETE /api/events/:id
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
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

	eventID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), eventID, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetLastEvent は自分の最新イベントを未承認マッチ付きで取得する。
// 作者の承認画面で使用する。
// GET /api/events/last
func (h *EventHandler) GetLastEvent(w http.ResponseWriter, r *http.Request) {
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

	last, err := h.service.LastEvent(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := lastEventResponse{}
	if last != nil {
		ev := toEventResponse(&last.Event)
		resp.Event = &ev
		resp.Matches = toMatchResponses(last.Matches)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SetupEventRoutes はイベント管理関連のルーティングを設定したchi.Routerを返す。
func SetupEventRoutes(service EventServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewEventHandler(service)

	r.Route("/api/events", func(r chi.Router) {
		r.Post("/", h.CreateEvent)

		// /api/events/last は /{id} より先に登録する
		r.Get("/last", h.GetLastEvent)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetEvent)
			r.Delete("/", h.DeleteEvent)
		})
	})

	return r
}

// toEventResponse はmodel.EventからAPIレスポンスに変換する。
func toEventResponse(ev *model.Event) eventResponse {
	return eventResponse{
		ID:        ev.ID,
		AuthorID:  ev.AuthorID,
		Title:     ev.Title,
		Text:      ev.Text,
		Photo:     ev.Photo,
		Time:      ev.Time,
		Slots:     ev.Slots,
		Latitude:  ev.Latitude,
		Longitude: ev.Longitude,
		CreatedAt: ev.CreatedAt,
	}
}
