package audit

import (
	"net/http"
	"time"
)

// DeliveryResult はWebhook応答のHTTPステータスコードに基づく分類。
type DeliveryResult int

const (
	// DeliveryOK は送信成功（2xx）。
	DeliveryOK DeliveryResult = iota
	// DeliveryRetry は再送が必要なステータス（408/429/5xx）。
	DeliveryRetry
	// DeliveryReject は再送しても成功しないステータス（その他の4xxなど）。
	DeliveryReject
)

const (
	// initialBackoff は再送間隔の初回遅延。
	initialBackoff = 200 * time.Millisecond
	// maxBackoff は再送間隔の最大値。
	maxBackoff = 5 * time.Second
	// maxAttempts はWebhook送信の最大試行回数（初回を含む）。
	maxAttempts = 3
)

// ClassifyHTTPStatus はHTTPステータスコードを送信結果に分類する。
func ClassifyHTTPStatus(statusCode int) DeliveryResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return DeliveryOK
	case statusCode == http.StatusRequestTimeout:
		return DeliveryRetry
	case statusCode == http.StatusTooManyRequests:
		return DeliveryRetry
	case statusCode >= 500:
		return DeliveryRetry
	default:
		return DeliveryReject
	}
}

// CalculateBackoff は失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回200ms、2倍ずつ増加、最大5秒。
func CalculateBackoff(failures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}
