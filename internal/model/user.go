// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// StarsとRatingはレビュー投稿時に再計算される派生値。
type User struct {
	ID        string
	Name      string
	Email     string
	Photo     string
	PushToken string // Expoプッシュトークン。未登録の場合は空
	Stars     int    // レビュー星数の丸め平均
	Rating    int    // フィードの並び順に使う派生スコア
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSummary はフィード候補に埋め込むユーザーの非正規化サマリ。
type UserSummary struct {
	ID     string
	Name   string
	Photo  string
	Stars  int
	Rating int
}

// Summary はユーザーからサマリを生成する。
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:     u.ID,
		Name:   u.Name,
		Photo:  u.Photo,
		Stars:  u.Stars,
		Rating: u.Rating,
	}
}
