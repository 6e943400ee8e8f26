package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func boolPtr(b bool) *bool { return &b }

func TestBlocksLocalhostByDefault(t *testing.T) {
	c := New(5*time.Second, Options{})

	_, err := c.Get("http://localhost:5001/api/v0/add")
	if err == nil {
		t.Error("Expected localhost to be blocked by default")
	}
}

func TestAllowsLocalhostWhenDisabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(5*time.Second, Options{BlockPrivateIP: boolPtr(false)})

	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("Expected request to succeed with guards disabled: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestRejectsDisallowedScheme(t *testing.T) {
	c := New(5*time.Second, Options{BlockPrivateIP: boolPtr(false)})

	_, err := c.Get("ftp://example.com/file")
	if err == nil {
		t.Error("Expected ftp scheme to be rejected")
	}
}

func TestRejectsCredentialInjection(t *testing.T) {
	c := New(5*time.Second, Options{BlockPrivateIP: boolPtr(false)})

	req, err := http.NewRequest(http.MethodGet, "http://evil.com%40example.com/", nil)
	if err == nil {
		if _, derr := c.Do(req); derr == nil {
			t.Error("Expected @-containing URL to be rejected")
		}
	}
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.1.2.3", "172.16.0.1", "192.168.1.1", "127.0.0.1", "169.254.0.5", "::1"}
	for _, s := range private {
		if !isPrivateIP(net.ParseIP(s)) {
			t.Errorf("Expected %s to be private", s)
		}
	}

	public := []string{"8.8.8.8", "1.1.1.1", "2606:4700:4700::1111"}
	for _, s := range public {
		if isPrivateIP(net.ParseIP(s)) {
			t.Errorf("Expected %s to be public", s)
		}
	}
}
