package repository

import (
	"fmt"

	"github.com/woogie/woogie-server/internal/model"
)

// storeError はデータストアの失敗をUPSTREAM_UNAVAILABLEとして包む。
// サービス層のラップを経由してもerrors.Asで取り出せるため、
// ハンドラではリトライ可能なエラーとして503に変換される。
func storeError(message string, err error) error {
	return fmt.Errorf("%s: %w", message, model.NewUpstreamUnavailableError(err.Error()))
}
