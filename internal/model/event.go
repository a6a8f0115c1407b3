// Package model はドメインモデルを定義する。
package model

import "time"

// Event はユーザーが投稿する対面イベントを表す。
// 開催時刻を過ぎたイベントはフィードの候補から外れる。
type Event struct {
	ID        string
	AuthorID  string
	Title     string
	Text      string
	Photo     string
	Time      time.Time // 開催時刻
	Slots     int       // 募集人数（1以上）
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
}

// EventWithGraph はイベントに作者サマリと全マッチを付加したスナップショット要素。
// フィードキャッシュが保持する形で、除外判定に必要なマッチを全件含む。
type EventWithGraph struct {
	Event   Event
	Author  UserSummary
	Matches []Match
}

// Candidate はフィード1リクエスト分の射影。
// キャッシュ上のイベントをコピーして距離を付加したもので、
// Matchesは承認済みのみに絞り込まれる。キャッシュの元データは変更しない。
type Candidate struct {
	Event      Event
	Author     UserSummary
	DistanceKM float64 // 整数kmに丸め済み
	Matches    []Match // accepted=trueのみ
}
