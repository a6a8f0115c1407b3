package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/woogie/woogie-server/internal/event"
	"github.com/woogie/woogie-server/internal/model"
)

// mockEventService はEventServiceInterfaceのモック実装。
type mockEventService struct {
	createFn    func(ctx context.Context, authorID string, input event.CreateInput) (*model.Event, error)
	getFn       func(ctx context.Context, eventID string) (*model.Event, error)
	deleteFn    func(ctx context.Context, eventID, requesterID string) error
	lastEventFn func(ctx context.Context, authorID string) (*model.EventWithGraph, error)
}

func (m *mockEventService) Create(ctx context.Context, authorID string, input event.CreateInput) (*model.Event, error) {
	if m.createFn != nil {
		return m.createFn(ctx, authorID, input)
	}
	return nil, nil
}

func (m *mockEventService) Get(ctx context.Context, eventID string) (*model.Event, error) {
	if m.getFn != nil {
		return m.getFn(ctx, eventID)
	}
	return nil, nil
}

func (m *mockEventService) Delete(ctx context.Context, eventID, requesterID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, eventID, requesterID)
	}
	return nil
}

func (m *mockEventService) LastEvent(ctx context.Context, authorID string) (*model.EventWithGraph, error) {
	if m.lastEventFn != nil {
		return m.lastEventFn(ctx, authorID)
	}
	return nil, nil
}

// --- POST /api/events テスト ---

func TestEventHandler_CreateEvent_Success(t *testing.T) {
	eventTime := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	svc := &mockEventService{
		createFn: func(ctx context.Context, authorID string, input event.CreateInput) (*model.Event, error) {
			if authorID != "user-123" {
				t.Errorf("authorID = %q, want %q", authorID, "user-123")
			}
			if input.Title != "BBQ night" {
				t.Errorf("Title = %q, want %q", input.Title, "BBQ night")
			}
			if input.Slots != 4 {
				t.Errorf("Slots = %d, want 4", input.Slots)
			}
			return &model.Event{
				ID:        "event-1",
				AuthorID:  authorID,
				Title:     input.Title,
				Text:      input.Text,
				Time:      input.Time,
				Slots:     input.Slots,
				Latitude:  input.Latitude,
				Longitude: input.Longitude,
				CreatedAt: time.Now(),
			}, nil
		},
	}

	h := NewEventHandler(svc)

	body := fmt.Sprintf(`{"title": "BBQ night", "text": "Grill on the beach", "time": %q, "slots": 4, "latitude": 35.68, "longitude": 139.76}`,
		eventTime.Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreateEvent(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var resp eventResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "event-1" {
		t.Errorf("ID = %q, want %q", resp.ID, "event-1")
	}
	if resp.AuthorID != "user-123" {
		t.Errorf("AuthorID = %q, want %q", resp.AuthorID, "user-123")
	}
}

func TestEventHandler_CreateEvent_InvalidJSON(t *testing.T) {
	h := NewEventHandler(&mockEventService{})

	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewBufferString("{not json"))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreateEvent(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "INVALID_REQUEST" {
		t.Errorf("code = %q, want %q", errResp["code"], "INVALID_REQUEST")
	}
}

func TestEventHandler_CreateEvent_Unauthorized(t *testing.T) {
	h := NewEventHandler(&mockEventService{})

	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewBufferString(`{"title": "x"}`))
	w := httptest.NewRecorder()

	h.CreateEvent(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestEventHandler_CreateEvent_ValidationError(t *testing.T) {
	svc := &mockEventService{
		createFn: func(ctx context.Context, authorID string, input event.CreateInput) (*model.Event, error) {
			return nil, model.NewInvalidEventError("タイトルが空です")
		},
	}
	h := NewEventHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewBufferString(`{"title": ""}`))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.CreateEvent(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidEvent {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidEvent)
	}
}

// --- GET /api/events/:id テスト ---

func TestEventHandler_GetEvent_Success(t *testing.T) {
	svc := &mockEventService{
		getFn: func(ctx context.Context, eventID string) (*model.Event, error) {
			if eventID != "event-1" {
				t.Errorf("eventID = %q, want %q", eventID, "event-1")
			}
			return &model.Event{ID: "event-1", Title: "BBQ night"}, nil
		},
	}
	h := NewEventHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/events/event-1", nil)
	req = withChiURLParam(req, "id", "event-1")
	w := httptest.NewRecorder()

	h.GetEvent(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp eventResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Title != "BBQ night" {
		t.Errorf("Title = %q, want %q", resp.Title, "BBQ night")
	}
}

func TestEventHandler_GetEvent_NotFound(t *testing.T) {
	svc := &mockEventService{
		getFn: func(ctx context.Context, eventID string) (*model.Event, error) {
			return nil, model.NewEventNotFoundError(eventID)
		},
	}
	h := NewEventHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/events/ghost", nil)
	req = withChiURLParam(req, "id", "ghost")
	w := httptest.NewRecorder()

	h.GetEvent(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- DELETE /api/events/:id テスト ---

func TestEventHandler_DeleteEvent_Success(t *testing.T) {
	var deletedID, deletedBy string
	svc := &mockEventService{
		deleteFn: func(ctx context.Context, eventID, requesterID string) error {
			deletedID = eventID
			deletedBy = requesterID
			return nil
		},
	}
	h := NewEventHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/events/event-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "event-1")
	w := httptest.NewRecorder()

	h.DeleteEvent(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedID != "event-1" || deletedBy != "user-123" {
		t.Errorf("Delete called with (%q, %q), want (event-1, user-123)", deletedID, deletedBy)
	}
}

func TestEventHandler_DeleteEvent_Forbidden(t *testing.T) {
	svc := &mockEventService{
		deleteFn: func(ctx context.Context, eventID, requesterID string) error {
			return model.NewForbiddenError()
		},
	}
	h := NewEventHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/events/event-1", nil)
	req = withUserID(req, "other-user")
	req = withChiURLParam(req, "id", "event-1")
	w := httptest.NewRecorder()

	h.DeleteEvent(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

func TestEventHandler_DeleteEvent_HasMatches(t *testing.T) {
	svc := &mockEventService{
		deleteFn: func(ctx context.Context, eventID, requesterID string) error {
			return model.NewEventHasMatchesError()
		},
	}
	h := NewEventHandler(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/events/event-1", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "event-1")
	w := httptest.NewRecorder()

	h.DeleteEvent(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeEventHasMatches {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeEventHasMatches)
	}
}

// --- GET /api/events/last テスト ---

func TestEventHandler_GetLastEvent_Success(t *testing.T) {
	svc := &mockEventService{
		lastEventFn: func(ctx context.Context, authorID string) (*model.EventWithGraph, error) {
			if authorID != "user-123" {
				t.Errorf("authorID = %q, want %q", authorID, "user-123")
			}
			return &model.EventWithGraph{
				Event: model.Event{ID: "event-1", AuthorID: "user-123", Title: "BBQ night"},
				Matches: []model.Match{
					{ID: "match-1", UserID: "user-9", EventID: "event-1"},
				},
			}, nil
		},
	}
	h := NewEventHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/events/last", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.GetLastEvent(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp lastEventResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Event == nil || resp.Event.ID != "event-1" {
		t.Fatalf("Event = %+v, want event-1", resp.Event)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].State != "proposed" {
		t.Errorf("Matches = %+v, want single proposed match", resp.Matches)
	}
}

func TestEventHandler_GetLastEvent_NoEvent(t *testing.T) {
	h := NewEventHandler(&mockEventService{})

	req := httptest.NewRequest(http.MethodGet, "/api/events/last", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.GetLastEvent(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	// イベントが無い場合はeventがnullになる
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(raw["event"]) != "null" {
		t.Errorf("event = %s, want null", raw["event"])
	}
}
