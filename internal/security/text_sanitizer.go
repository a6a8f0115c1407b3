// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はユーザー入力テキスト（イベントのタイトル・本文、
// レビュー本文など）をサニタイズし、XSS攻撃などのセキュリティリスクから
// ユーザーを保護する。bluemondayの厳格ポリシーで全HTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
// イベント・レビューの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize はテキストから全HTMLタグを除去し、前後の空白を削る。
	// script, iframe, style等のタグおよびon*イベント属性は丸ごと除去される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// bluemondayのStrictPolicy（全タグ除去）を使用する。
// タイトルや本文はプレーンテキストとして扱うため、許可タグは一切ない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストから全HTMLタグを除去し、前後の空白を削る。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
