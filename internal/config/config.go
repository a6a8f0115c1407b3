package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// CutoffMode はフィード候補の「新しさ」の基準時刻の算出方法を表す。
type CutoffMode string

const (
	// CutoffMidnight は当日0時以降のイベントを候補とする。
	CutoffMidnight CutoffMode = "midnight"
	// CutoffRolling は現在時刻から24時間前以降のイベントを候補とする。
	CutoffRolling CutoffMode = "rolling"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Auth
	JWTSecret string

	// Feed
	FeedCacheTTL       time.Duration
	FeedCutoffMode     CutoffMode
	FeedDefaultMaxDist float64

	// Push
	PushEndpoint      string
	PushTimeout       time.Duration
	PushBatchSize     int
	PushInterval      time.Duration
	PushMaxConcurrent int

	// Cleanup
	NotificationRetentionDays int
	EventRetentionDays        int

	// Rate Limit
	RateLimitGeneral int
	RateLimitSwipe   int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.FeedCacheTTL = getEnvDuration("FEED_CACHE_TTL", 180*time.Second)
	cfg.FeedCutoffMode = parseCutoffMode(os.Getenv("FEED_CUTOFF_MODE"))
	cfg.FeedDefaultMaxDist = getEnvFloat("FEED_DEFAULT_MAX_DISTANCE", 100)
	cfg.PushEndpoint = getEnvString("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send")
	cfg.PushTimeout = getEnvDuration("PUSH_TIMEOUT", 10*time.Second)
	cfg.PushBatchSize = getEnvInt("PUSH_BATCH_SIZE", 100)
	cfg.PushInterval = getEnvDuration("PUSH_INTERVAL", 30*time.Second)
	cfg.PushMaxConcurrent = getEnvInt("PUSH_MAX_CONCURRENT", 5)
	cfg.NotificationRetentionDays = getEnvInt("NOTIFICATION_RETENTION_DAYS", 30)
	cfg.EventRetentionDays = getEnvInt("EVENT_RETENTION_DAYS", 30)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSwipe = getEnvInt("RATE_LIMIT_SWIPE", 60)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

// parseCutoffMode はカットオフモードの環境変数値を解釈する。
// 未設定または不正な値の場合はmidnightを使用する。
func parseCutoffMode(v string) CutoffMode {
	switch CutoffMode(v) {
	case CutoffRolling:
		return CutoffRolling
	default:
		return CutoffMidnight
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
