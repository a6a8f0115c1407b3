package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/woogie/woogie-server/internal/metrics"
	"github.com/woogie/woogie-server/internal/model"
	"github.com/woogie/woogie-server/internal/repository"
)

// Dispatcher はアウトボックスの未送信通知をポーリングしてExpoに配送する。
// ティッカー間隔で起動し、受信者のプッシュトークンを解決してバッチ送信する。
// 送信失敗は該当通知をfailedにするのみで、リトライは行わない。
type Dispatcher struct {
	notifRepo repository.NotificationRepository
	userRepo  repository.UserRepository
	sender    PushSender
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
	batchSize int
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
// batchSizeが0以下の場合はデフォルト値100を使用する。metricsはnilでもよい。
func NewDispatcher(
	notifRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	sender PushSender,
	logger *slog.Logger,
	collector metrics.MetricsCollector,
	batchSize int,
) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Dispatcher{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		sender:    sender,
		logger:    logger,
		metrics:   collector,
		batchSize: batchSize,
	}
}

// Start はティッカー間隔でディスパッチャを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (d *Dispatcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("通知ディスパッチャを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", d.batchSize),
	)

	// 起動直後に1回実行
	if err := d.RunOnce(ctx); err != nil {
		d.logger.Error("通知配送サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("通知ディスパッチャを停止しました")
			return
		case <-ticker.C:
			if err := d.RunOnce(ctx); err != nil {
				d.logger.Error("通知配送サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は未送信通知を1回取得し、配送を実行する。
// トークン未登録や形式不正の受信者宛ては送信せずfailedにする。
func (d *Dispatcher) RunOnce(ctx context.Context) error {
	start := time.Now()

	pending, err := d.notifRepo.ListPending(ctx, d.batchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	d.logger.Info("通知配送サイクルを開始します",
		slog.Int("notification_count", len(pending)),
	)

	// 送信可能な通知とメッセージを同じ順序で組み立てる
	deliverable := make([]*model.Notification, 0, len(pending))
	messages := make([]PushMessage, 0, len(pending))

	for _, n := range pending {
		token, err := d.resolvePushToken(ctx, n.RecipientID)
		if err != nil {
			d.logger.Error("プッシュトークンの解決に失敗しました",
				slog.String("notification_id", n.ID),
				slog.String("recipient_id", n.RecipientID),
				slog.String("error", err.Error()),
			)
			d.markFailed(ctx, n)
			continue
		}
		if token == "" {
			d.logger.Warn("プッシュトークンが未登録のため通知をスキップします",
				slog.String("notification_id", n.ID),
				slog.String("recipient_id", n.RecipientID),
			)
			d.markFailed(ctx, n)
			continue
		}

		deliverable = append(deliverable, n)
		messages = append(messages, PushMessage{
			To:    token,
			Title: n.Title,
			Body:  n.Body,
			Sound: "default",
		})
	}

	if len(messages) == 0 {
		return nil
	}

	tickets, err := d.sender.Send(ctx, messages)
	if err != nil {
		d.logger.Error("プッシュ送信に失敗しました",
			slog.Int("message_count", len(messages)),
			slog.String("error", err.Error()),
		)
		for _, n := range deliverable {
			d.markFailed(ctx, n)
		}
		return err
	}

	sent := 0
	failed := 0
	now := time.Now()
	for i, ticket := range tickets {
		n := deliverable[i]
		if ticket.Status == "ok" {
			if err := d.notifRepo.MarkSent(ctx, n.ID, now); err != nil {
				d.logger.Error("通知の送信済み更新に失敗しました",
					slog.String("notification_id", n.ID),
					slog.String("error", err.Error()),
				)
				continue
			}
			sent++
		} else {
			d.logger.Warn("プッシュ送信がチケットエラーで失敗しました",
				slog.String("notification_id", n.ID),
				slog.String("ticket_message", ticket.Message),
			)
			d.markFailed(ctx, n)
			failed++
		}
	}

	if d.metrics != nil {
		d.metrics.RecordPushSent(sent)
	}

	d.logger.Info("通知配送サイクルが完了しました",
		slog.Int("sent", sent),
		slog.Int("failed", failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// resolvePushToken は受信者のプッシュトークンを解決する。
// トークンが形式不正の場合は空文字を返す。
func (d *Dispatcher) resolvePushToken(ctx context.Context, recipientID string) (string, error) {
	user, err := d.userRepo.FindByID(ctx, recipientID)
	if err != nil {
		return "", err
	}
	if user == nil || user.PushToken == "" {
		return "", nil
	}
	if !ValidPushToken(user.PushToken) {
		d.logger.Warn("プッシュトークンの形式が不正です",
			slog.String("recipient_id", recipientID),
		)
		return "", nil
	}
	return user.PushToken, nil
}

func (d *Dispatcher) markFailed(ctx context.Context, n *model.Notification) {
	if err := d.notifRepo.MarkFailed(ctx, n.ID); err != nil {
		d.logger.Error("通知の失敗更新に失敗しました",
			slog.String("notification_id", n.ID),
			slog.String("error", err.Error()),
		)
	}
	if d.metrics != nil {
		d.metrics.RecordPushFailed(1)
	}
}
