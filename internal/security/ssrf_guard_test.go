package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWebhookGuard_NewClient(t *testing.T) {
	guard := NewWebhookGuard()
	timeout := 3 * time.Second
	client := guard.NewClient(timeout)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Error("expected custom Transport")
	}
}

// httptestサーバーは127.0.0.1で起動されるため、safeurlが接続を拒否する。
func TestWebhookGuard_NewClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewWebhookGuard().NewClient(2 * time.Second)
	if _, err := client.Post(ts.URL, "application/json", nil); err == nil {
		t.Fatal("expected error for loopback webhook, got nil")
	}
}

func TestWebhookGuard_ValidateURL(t *testing.T) {
	guard := NewWebhookGuard()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"公開HTTPS", "https://hooks.example.com/audit", false},
		{"公開HTTP", "http://93.184.216.34/hook", false},
		{"空URL", "", true},
		{"ftpスキーム", "ftp://example.com/hook", true},
		{"ホストなし", "https:///hook", true},
		{"プライベートIP", "http://10.0.0.5/hook", true},
		{"プライベートIP 192.168", "http://192.168.1.1/hook", true},
		{"ループバック", "http://127.0.0.1:8080/hook", true},
		{"メタデータIP", "http://169.254.169.254/latest", true},
		{"IPv6ループバック", "http://[::1]/hook", true},
		{"localhost", "http://localhost/hook", true},
		{"内部ドメイン", "https://audit.internal/hook", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateURL(%q) expected error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateURL(%q) unexpected error: %v", tt.url, err)
			}
		})
	}
}

func TestWebhookGuardInterface(t *testing.T) {
	var _ WebhookGuard = NewWebhookGuard()
}
