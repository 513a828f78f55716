package audit

import (
	"testing"
	"time"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   DeliveryResult
	}{
		{200, DeliveryOK},
		{202, DeliveryOK},
		{204, DeliveryOK},
		{408, DeliveryRetry},
		{429, DeliveryRetry},
		{500, DeliveryRetry},
		{503, DeliveryRetry},
		{301, DeliveryReject},
		{400, DeliveryReject},
		{401, DeliveryReject},
		{404, DeliveryReject},
	}
	for _, tt := range tests {
		if got := ClassifyHTTPStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyHTTPStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, 200 * time.Millisecond},
		{1, 400 * time.Millisecond},
		{2, 800 * time.Millisecond},
		{4, 3200 * time.Millisecond},
		{5, 5 * time.Second},
		{20, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := CalculateBackoff(tt.failures); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}
