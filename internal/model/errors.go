// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, feed, match, event, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidLocation     = "INVALID_LOCATION"
	ErrCodeInvalidEvent        = "INVALID_EVENT"
	ErrCodeInvalidReview       = "INVALID_REVIEW"
	ErrCodeInvalidProfile      = "INVALID_PROFILE"
	ErrCodeEventNotFound       = "EVENT_NOT_FOUND"
	ErrCodeMatchNotFound       = "MATCH_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeDuplicateMatch      = "DUPLICATE_MATCH"
	ErrCodeMatchAlreadyDecided = "MATCH_ALREADY_DECIDED"
	ErrCodeOwnEventMatch       = "OWN_EVENT_MATCH"
	ErrCodeEventFull           = "EVENT_FULL"
	ErrCodeEventHasMatches     = "EVENT_HAS_MATCHES"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// NewInvalidLocationError は座標が不正な場合のエラーを生成する。
func NewInvalidLocationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLocation,
		Message:  fmt.Sprintf("無効な座標です: %s", reason),
		Category: "validation",
		Action:   "緯度は-90〜90、経度は-180〜180の範囲で指定してください。",
	}
}

// NewInvalidEventError はイベント内容が不正な場合のエラーを生成する。
func NewInvalidEventError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEvent,
		Message:  fmt.Sprintf("無効なイベントです: %s", reason),
		Category: "validation",
		Action:   "タイトル、開催時刻、募集人数、座標を確認してください。",
	}
}

// NewInvalidReviewError はレビュー内容が不正な場合のエラーを生成する。
func NewInvalidReviewError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidReview,
		Message:  fmt.Sprintf("無効なレビューです: %s", reason),
		Category: "validation",
		Action:   "星は1〜5の範囲で指定してください。",
	}
}

// NewInvalidProfileError はプロフィール内容が不正な場合のエラーを生成する。
func NewInvalidProfileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  fmt.Sprintf("無効なプロフィールです: %s", reason),
		Category: "validation",
		Action:   "名前、写真URL、プッシュトークンを確認してください。",
	}
}

// NewEventNotFoundError はイベントが見つからない場合のエラーを生成する。
func NewEventNotFoundError(eventID string) *APIError {
	return &APIError{
		Code:     ErrCodeEventNotFound,
		Message:  fmt.Sprintf("指定されたイベントが見つかりません: %s", eventID),
		Category: "event",
		Action:   "イベントIDを確認してください。",
	}
}

// NewMatchNotFoundError はマッチが見つからない場合のエラーを生成する。
func NewMatchNotFoundError(matchID string) *APIError {
	return &APIError{
		Code:     ErrCodeMatchNotFound,
		Message:  fmt.Sprintf("指定されたマッチが見つかりません: %s", matchID),
		Category: "match",
		Action:   "マッチIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewDuplicateMatchError は同一イベントへの重複スワイプエラーを生成する。
func NewDuplicateMatchError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateMatch,
		Message:  "このイベントには既にスワイプ済みです。",
		Category: "match",
		Action:   "マッチ一覧から該当イベントを確認してください。",
	}
}

// NewMatchAlreadyDecidedError は確定済みマッチへの操作エラーを生成する。
func NewMatchAlreadyDecidedError() *APIError {
	return &APIError{
		Code:     ErrCodeMatchAlreadyDecided,
		Message:  "このマッチは既に確定しています。",
		Category: "match",
		Action:   "承認は未確定のマッチに対してのみ実行できます。",
	}
}

// NewOwnEventMatchError は自分のイベントへのスワイプエラーを生成する。
func NewOwnEventMatchError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnEventMatch,
		Message:  "自分のイベントにはスワイプできません。",
		Category: "validation",
		Action:   "他のユーザーのイベントを選択してください。",
	}
}

// NewEventFullError は満員イベントへのスワイプエラーを生成する。
func NewEventFullError() *APIError {
	return &APIError{
		Code:     ErrCodeEventFull,
		Message:  "このイベントは募集人数に達しています。",
		Category: "match",
		Action:   "他のイベントを選択してください。",
	}
}

// NewEventHasMatchesError はマッチが存在するイベントの削除エラーを生成する。
func NewEventHasMatchesError() *APIError {
	return &APIError{
		Code:     ErrCodeEventHasMatches,
		Message:  "マッチが存在するイベントは削除できません。",
		Category: "event",
		Action:   "先にマッチを解除してください。",
	}
}

// NewForbiddenError は権限がない操作のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "対象の作成者のみが実行できます。",
	}
}

// NewUpstreamUnavailableError はデータストア障害時のエラーを生成する。
// リトライ可能なエラーとして503にマッピングされる。
func NewUpstreamUnavailableError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  fmt.Sprintf("データストアへのアクセスに失敗しました: %s", reason),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
