// Package model はドメインモデルを定義する。
package model

import "time"

// Match はユーザーとイベントを結ぶスワイプ判断を表す。
// (user_id, event_id) の組につきアクティブなレコードは最大1件。
// dismissed=trueは終端状態で、フィードからの除外は解除されない。
type Match struct {
	ID        string
	UserID    string
	EventID   string
	Accepted  bool
	Dismissed bool
	CreatedAt time.Time
}

// MatchState はマッチの状態を表す。
type MatchState string

const (
	// MatchStateProposed はスワイプ直後の未確定状態。
	MatchStateProposed MatchState = "proposed"
	// MatchStateAccepted は作者が承認した状態。
	MatchStateAccepted MatchState = "accepted"
	// MatchStateDismissed はユーザーが見送った終端状態。
	MatchStateDismissed MatchState = "dismissed"
)

// State はマッチの現在状態を返す。
func (m *Match) State() MatchState {
	switch {
	case m.Dismissed:
		return MatchStateDismissed
	case m.Accepted:
		return MatchStateAccepted
	default:
		return MatchStateProposed
	}
}
