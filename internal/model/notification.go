// Package model はドメインモデルを定義する。
package model

import "time"

// Notification はプッシュ通知のアウトボックス行を表す。
// マッチ操作のトランザクション後にpendingで積まれ、
// ディスパッチャワーカーが送信してsent/failedに遷移させる。
type Notification struct {
	ID          string
	RecipientID string
	Title       string
	Body        string
	Status      NotificationStatus
	Attempts    int
	CreatedAt   time.Time
	SentAt      time.Time // sentのときのみ有効
}

// NotificationStatus は通知の配送状態を表す。
type NotificationStatus string

const (
	// NotificationStatusPending は未送信状態。
	NotificationStatusPending NotificationStatus = "pending"
	// NotificationStatusSent は送信済み状態。
	NotificationStatusSent NotificationStatus = "sent"
	// NotificationStatusFailed は送信失敗状態。
	// 送信失敗はログに記録されるのみで、元のマッチ操作には影響しない。
	NotificationStatusFailed NotificationStatus = "failed"
)
