// Package model はドメインモデルを定義する。
package model

import "time"

// Review はマッチ成立後にユーザー間で交わされる評価を表す。
// (author_id, user_id) の組につき1件で、再投稿はUPSERTされる。
type Review struct {
	ID        string
	AuthorID  string // レビューを書いたユーザー
	UserID    string // レビュー対象のユーザー
	Stars     int    // 1〜5
	Text      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Report はイベントまたはユーザーへの通報を表す。
type Report struct {
	ID         string
	ReporterID string
	TargetType ReportTargetType
	TargetID   string
	Reason     string
	CreatedAt  time.Time
}

// ReportTargetType は通報対象の種別を表す。
type ReportTargetType string

const (
	// ReportTargetEvent はイベントへの通報。
	ReportTargetEvent ReportTargetType = "event"
	// ReportTargetUser はユーザーへの通報。
	ReportTargetUser ReportTargetType = "user"
)
