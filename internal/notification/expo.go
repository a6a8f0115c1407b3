// Package notification はプッシュ通知のアウトボックス配送を提供する。
// Expo Pushクライアントとディスパッチャワーカーを含む。
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxExpoResponseSize はExpo APIレスポンスの最大読み取りサイズ。
const maxExpoResponseSize = 1 * 1024 * 1024

// PushMessage はExpoに送る1通のプッシュメッセージ。
type PushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound,omitempty"`
}

// PushTicket はExpoからのメッセージ単位の受付結果。
type PushTicket struct {
	Status  string `json:"status"` // "ok" または "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// pushResponse はExpo Push APIのレスポンス全体。
type pushResponse struct {
	Data []PushTicket `json:"data"`
}

// SafeClientProvider はSSRF防止付きHTTPクライアントの生成インターフェース。
type SafeClientProvider interface {
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// PushSender はプッシュメッセージの一括送信インターフェース。
type PushSender interface {
	// Send はメッセージをバッチ送信し、入力と同じ順序でチケットを返す。
	Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error)
}

// ExpoClient はExpo Push APIのクライアント。
// 送信先エンドポイントは設定で差し替え可能。
type ExpoClient struct {
	endpoint  string
	client    *http.Client
	batchSize int
}

// NewExpoClient はExpoClientの新しいインスタンスを生成する。
// batchSizeが0以下の場合はデフォルト値100を使用する。
func NewExpoClient(endpoint string, guard SafeClientProvider, timeout time.Duration, batchSize int) *ExpoClient {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpoClient{
		endpoint:  endpoint,
		client:    guard.NewSafeClient(timeout, maxExpoResponseSize),
		batchSize: batchSize,
	}
}

// ValidPushToken はExpoプッシュトークンの形式を検証する。
func ValidPushToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") && strings.HasSuffix(token, "]") &&
		len(token) > len("ExponentPushToken[]")
}

// Send はメッセージをバッチ分割してExpoに送信する。
// 返り値のチケットはmessagesと同じ順序で対応する。
func (c *ExpoClient) Send(ctx context.Context, messages []PushMessage) ([]PushTicket, error) {
	tickets := make([]PushTicket, 0, len(messages))

	for start := 0; start < len(messages); start += c.batchSize {
		end := start + c.batchSize
		if end > len(messages) {
			end = len(messages)
		}

		batch, err := c.sendBatch(ctx, messages[start:end])
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, batch...)
	}

	return tickets, nil
}

func (c *ExpoClient) sendBatch(ctx context.Context, batch []PushMessage) ([]PushTicket, error) {
	payload, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("プッシュメッセージのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("プッシュ送信リクエストに失敗: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxExpoResponseSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み取りに失敗: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("プッシュ送信がHTTPステータス %d で失敗しました", resp.StatusCode)
	}

	var parsed pushResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("レスポンスのデコードに失敗しました: %w", err)
	}
	if len(parsed.Data) != len(batch) {
		return nil, fmt.Errorf("チケット数が一致しません: got %d, want %d", len(parsed.Data), len(batch))
	}

	return parsed.Data, nil
}
