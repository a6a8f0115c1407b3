package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/woogie/woogie-server/internal/middleware"
	"github.com/woogie/woogie-server/internal/model"
)

// FeedServiceInterface はフィードハンドラーが必要とするサービスインターフェース。
type FeedServiceInterface interface {
	// Compute はリクエスト元の現在地からフィード候補を算出する。
	Compute(ctx context.Context, requesterID string, lat, lon, maxDistance float64) ([]model.Candidate, error)
}

// FeedHandler はフィード取得のHTTPハンドラー。
type FeedHandler struct {
	service FeedServiceInterface
}

// NewFeedHandler はFeedHandlerを生成する。
func NewFeedHandler(service FeedServiceInterface) *FeedHandler {
	return &FeedHandler{service: service}
}

// userSummaryResponse はフィード候補に埋め込む作者サマリのレスポンス。
type userSummaryResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Photo  string `json:"photo"`
	Stars  int    `json:"stars"`
	Rating int    `json:"rating"`
}

// matchResponse はマッチ情報のAPIレスポンス。
type matchResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventID   string    `json:"event_id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// candidateResponse はフィード候補1件分のAPIレスポンス。
type candidateResponse struct {
	ID         string              `json:"id"`
	Author     userSummaryResponse `json:"author"`
	Title      string              `json:"title"`
	Text       string              `json:"text"`
	Photo      string              `json:"photo"`
	Time       time.Time           `json:"time"`
	Slots      int                 `json:"slots"`
	Latitude   float64             `json:"latitude"`
	Longitude  float64             `json:"longitude"`
	DistanceKM int                 `json:"distance_km"`
	Matches    []matchResponse     `json:"matches"`
}

// feedResponse はフィード取得のAPIレスポンス。
type feedResponse struct {
	Events []candidateResponse `json:"events"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// GetFeed は現在地周辺のフィードを取得する。
// GET /api/feed?lat=&lon=&max_distance=
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
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

	query := r.URL.Query()

	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLocationError("latが不正です"))
		return
	}
	lon, err := strconv.ParseFloat(query.Get("lon"), 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLocationError("lonが不正です"))
		return
	}

	// max_distanceは省略可。省略時はサービス側のデフォルトに委ねる。
	var maxDistance float64
	if raw := query.Get("max_distance"); raw != "" {
		maxDistance, err = strconv.ParseFloat(raw, 64)
		if err != nil || maxDistance < 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidLocationError("max_distanceが不正です"))
			return
		}
	}

	candidates, err := h.service.Compute(r.Context(), userID, lat, lon, maxDistance)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := feedResponse{Events: make([]candidateResponse, 0, len(candidates))}
	for i := range candidates {
		resp.Events = append(resp.Events, toCandidateResponse(&candidates[i]))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// SetupFeedRoutes はフィード取得のルーティングを設定したchi.Routerを返す。
func SetupFeedRoutes(service FeedServiceInterface) http.Handler {
	r := chi.NewRouter()
	h := NewFeedHandler(service)

	r.Get("/api/feed", h.GetFeed)

	return r
}

// --- ヘルパー関数 ---

// toCandidateResponse はmodel.CandidateからAPIレスポンスに変換する。
func toCandidateResponse(c *model.Candidate) candidateResponse {
	return candidateResponse{
		ID:         c.Event.ID,
		Author:     toUserSummaryResponse(c.Author),
		Title:      c.Event.Title,
		Text:       c.Event.Text,
		Photo:      c.Event.Photo,
		Time:       c.Event.Time,
		Slots:      c.Event.Slots,
		Latitude:   c.Event.Latitude,
		Longitude:  c.Event.Longitude,
		DistanceKM: int(c.DistanceKM),
		Matches:    toMatchResponses(c.Matches),
	}
}

// toUserSummaryResponse はmodel.UserSummaryからAPIレスポンスに変換する。
func toUserSummaryResponse(s model.UserSummary) userSummaryResponse {
	return userSummaryResponse{
		ID:     s.ID,
		Name:   s.Name,
		Photo:  s.Photo,
		Stars:  s.Stars,
		Rating: s.Rating,
	}
}

// toMatchResponse はmodel.MatchからAPIレスポンスに変換する。
func toMatchResponse(m *model.Match) matchResponse {
	return matchResponse{
		ID:        m.ID,
		UserID:    m.UserID,
		EventID:   m.EventID,
		State:     string(m.State()),
		CreatedAt: m.CreatedAt,
	}
}

// toMatchResponses はマッチのスライスをAPIレスポンスに変換する。
// nilスライスでも空配列としてシリアライズされるよう必ず確保する。
func toMatchResponses(matches []model.Match) []matchResponse {
	result := make([]matchResponse, 0, len(matches))
	for i := range matches {
		result = append(result, toMatchResponse(&matches[i]))
	}
	return result
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidLocation, model.ErrCodeInvalidEvent,
		model.ErrCodeInvalidReview, model.ErrCodeInvalidProfile,
		model.ErrCodeOwnEventMatch:
		return http.StatusBadRequest
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeEventNotFound, model.ErrCodeMatchNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeDuplicateMatch, model.ErrCodeMatchAlreadyDecided,
		model.ErrCodeEventFull, model.ErrCodeEventHasMatches:
		return http.StatusConflict
	case model.ErrCodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
