package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/woogie/woogie-server/internal/model"
)

// mockNotifRepo はNotificationRepositoryのモック実装。
type mockNotifRepo struct {
	pending    []*model.Notification
	listErr    error
	sent       []string
	failed     []string
	markSentAt time.Time
}

func (m *mockNotifRepo) Enqueue(ctx context.Context, n *model.Notification) error {
	m.pending = append(m.pending, n)
	return nil
}

func (m *mockNotifRepo) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	if len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *mockNotifRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	m.sent = append(m.sent, id)
	m.markSentAt = sentAt
	return nil
}

func (m *mockNotifRepo) MarkFailed(ctx context.Context, id string) error {
	m.failed = append(m.failed, id)
	return nil
}

// mockUserRepo はUserRepositoryのモック実装。
type mockUserRepo struct {
	users   map[string]*model.User
	findErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }
func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) UpdateRating(ctx context.Context, userID string, stars, rating int) error {
	return nil
}
func (m *mockUserRepo) ListBlockedIDs(ctx context.Context, userID string) ([]string, error) {
	return nil, nil
}
func (m *mockUserRepo) Block(ctx context.Context, userID, blockedID string) error   { return nil }
func (m *mockUserRepo) Unblock(ctx context.Context, userID, blockedID string) error { return nil }

// mockSender はPushSenderのモック実装。
type mockSender struct {
	sent    [][]PushMessage
	tickets []PushTicket
	err     error
}

func (m *mockSender) Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	m.sent = append(m.sent, messages)
	if m.err != nil {
		return nil, m.err
	}
	if m.tickets != nil {
		return m.tickets, nil
	}
	return okTickets(len(messages)), nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingNotification(id, recipientID string) *model.Notification {
	return &model.Notification{
		ID:          id,
		RecipientID: recipientID,
		Title:       "You got a new match",
		Body:        "Someone wants to join BBQ",
		Status:      model.NotificationStatusPending,
		CreatedAt:   time.Now(),
	}
}

// TestRunOnce_DeliversPending は未送信通知の配送をテストする。
func TestRunOnce_DeliversPending(t *testing.T) {
	notifRepo := &mockNotifRepo{pending: []*model.Notification{
		pendingNotification("notif-1", "user-1"),
		pendingNotification("notif-2", "user-2"),
	}}
	userRepo := newMockUserRepo()
	userRepo.users["user-1"] = &model.User{ID: "user-1", PushToken: "ExponentPushToken[aaa]"}
	userRepo.users["user-2"] = &model.User{ID: "user-2", PushToken: "ExponentPushToken[bbb]"}
	sender := &mockSender{}

	d := NewDispatcher(notifRepo, userRepo, sender, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() returned error: %v", err)
	}

	if len(sender.sent) != 1 || len(sender.sent[0]) != 2 {
		t.Fatalf("sender.sent = %v, want 1 call with 2 messages", sender.sent)
	}
	if sender.sent[0][0].To != "ExponentPushToken[aaa]" {
		t.Errorf("message To = %q", sender.sent[0][0].To)
	}
	if sender.sent[0][0].Title != "You got a new match" {
		t.Errorf("message Title = %q", sender.sent[0][0].Title)
	}
	if len(notifRepo.sent) != 2 {
		t.Errorf("marked sent = %v, want 2 entries", notifRepo.sent)
	}
	if len(notifRepo.failed) != 0 {
		t.Errorf("marked failed = %v, want none", notifRepo.failed)
	}
}

// TestRunOnce_NoPending は未送信通知が無い場合に何もしないことをテストする。
func TestRunOnce_NoPending(t *testing.T) {
	notifRepo := &mockNotifRepo{}
	sender := &mockSender{}

	d := NewDispatcher(notifRepo, newMockUserRepo(), sender, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() returned error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sender should not be called, got %v", sender.sent)
	}
}

// TestRunOnce_MissingToken はトークン未登録の受信者宛てがfailedになることをテストする。
func TestRunOnce_MissingToken(t *testing.T) {
	notifRepo := &mockNotifRepo{pending: []*model.Notification{
		pendingNotification("notif-1", "user-1"),
		pendingNotification("notif-2", "user-2"),
	}}
	userRepo := newMockUserRepo()
	userRepo.users["user-1"] = &model.User{ID: "user-1"} // トークン未登録
	userRepo.users["user-2"] = &model.User{ID: "user-2", PushToken: "ExponentPushToken[bbb]"}
	sender := &mockSender{}

	d := NewDispatcher(notifRepo, userRepo, sender, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() returned error: %v", err)
	}

	if len(notifRepo.failed) != 1 || notifRepo.failed[0] != "notif-1" {
		t.Errorf("failed = %v, want [notif-1]", notifRepo.failed)
	}
	if len(notifRepo.sent) != 1 || notifRepo.sent[0] != "notif-2" {
		t.Errorf("sent = %v, want [notif-2]", notifRepo.sent)
	}
	if len(sender.sent) != 1 || len(sender.sent[0]) != 1 {
		t.Fatalf("sender.sent = %v, want 1 call with 1 message", sender.sent)
	}
}

// TestRunOnce_MalformedToken は形式不正トークンの受信者宛てがfailedになることをテストする。
func TestRunOnce_MalformedToken(t *testing.T) {
	notifRepo := &mockNotifRepo{pending: []*model.Notification{
		pendingNotification("notif-1", "user-1"),
	}}
	userRepo := newMockUserRepo()
	userRepo.users["user-1"] = &model.User{ID: "user-1", PushToken: "not-a-token"}
	sender := &mockSender{}

	d := NewDispatcher(notifRepo, userRepo, sender, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() returned error: %v", err)
	}
	if len(notifRepo.failed) != 1 {
		t.Errorf("failed = %v, want 1 entry", notifRepo.failed)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sender should not be called, got %v", sender.sent)
	}
}

// TestRunOnce_UnknownRecipient は受信者が存在しない場合にfailedになることをテストする。
func TestRunOnce_UnknownRecipient(t *testing.T) {
	notifRepo := &mockNotifRepo{pending: []*model.Notification{
		pendingNotification("notif-1", "ghost"),
	}}
	sender := &mockSender{}

	d := NewDispatcher(notifRepo, newMockUserRepo(), sender, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() returned error: %v", err)
	}
	if len(notifRepo.failed) != 1 {
		t.Errorf("failed = %v, want 1 entry", notifRepo.failed)
	}
}

// TestRunOnce_SendFailure は一括送信失敗時に全件failedになることをテストする。
func TestRunOnce_SendFailure(t *testing.T) {
	notifRepo := &mockNotifRepo{pending: []*model.Notification{
		pendingNotification("notif-1", "user-1"),
		pendingNotification("notif-2", "user-2"),
	}}
	userRepo := newMockUserRepo()
	userRepo.users["user-1"] = &model.User{ID: "user-1", PushToken: "ExponentPushToken[aaa]"}
	userRepo.users["user-2"] = &model.User{ID: "user-2", PushToken: "ExponentPushToken[bbb]"}
	sender := &mockSender{err: errors.New("接続に失敗しました")}

	d := NewDispatcher(notifRepo, userRepo, sender, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() should return error when send fails")
	}
	if len(notifRepo.failed) != 2 {
		t.Errorf("failed = %v, want 2 entries", notifRepo.failed)
	}
	if len(notifRepo.sent) != 0 {
		t.Errorf("sent = %v, want none", notifRepo.sent)
	}
}

// TestRunOnce_TicketError はチケット単位のエラーで該当通知のみfailedになることをテストする。
func TestRunOnce_TicketError(t *testing.T) {
	notifRepo := &mockNotifRepo{pending: []*model.Notification{
		pendingNotification("notif-1", "user-1"),
		pendingNotification("notif-2", "user-2"),
	}}
	userRepo := newMockUserRepo()
	userRepo.users["user-1"] = &model.User{ID: "user-1", PushToken: "ExponentPushToken[aaa]"}
	userRepo.users["user-2"] = &model.User{ID: "user-2", PushToken: "ExponentPushToken[bbb]"}
	sender := &mockSender{tickets: []PushTicket{
		{Status: "ok", ID: "t1"},
		{Status: "error", Message: "DeviceNotRegistered"},
	}}

	d := NewDispatcher(notifRepo, userRepo, sender, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() returned error: %v", err)
	}
	if len(notifRepo.sent) != 1 || notifRepo.sent[0] != "notif-1" {
		t.Errorf("sent = %v, want [notif-1]", notifRepo.sent)
	}
	if len(notifRepo.failed) != 1 || notifRepo.failed[0] != "notif-2" {
		t.Errorf("failed = %v, want [notif-2]", notifRepo.failed)
	}
}

// TestRunOnce_ListError は未送信一覧の取得失敗をテストする。
func TestRunOnce_ListError(t *testing.T) {
	notifRepo := &mockNotifRepo{listErr: errors.New("接続に失敗しました")}

	d := NewDispatcher(notifRepo, newMockUserRepo(), &mockSender{}, testLogger(), nil, 100)
	if err := d.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() should return error when listing fails")
	}
}

// TestRunOnce_RespectsBatchSize はバッチサイズ上限が適用されることをテストする。
func TestRunOnce_RespectsBatchSize(t *testing.T) {
	notifRepo := &mockNotifRepo{}
	userRepo := newMockUserRepo()
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		notifRepo.pending = append(notifRepo.pending, pendingNotification("notif-"+id, "user-"+id))
		userRepo.users["user-"+id] = &model.User{ID: "user-" + id, PushToken: "ExponentPushToken[" + id + "]"}
	}
	sender := &mockSender{}

	d := NewDispatcher(notifRepo, userRepo, sender, testLogger(), nil, 3)
	if err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() returned error: %v", err)
	}
	if len(sender.sent) != 1 || len(sender.sent[0]) != 3 {
		t.Fatalf("sender.sent = %v, want 1 call with 3 messages", sender.sent)
	}
}
