package proxyserver

import (
	"net/http"
	"testing"
)

func TestBlockResponseShape(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://ads.example.com/x", nil)
	resp := BlockResponse(req, "matched ||ads.example.com^")

	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Blocked-By") != "urlfilter" {
		t.Errorf("expected X-Blocked-By header, got %q", resp.Header.Get("X-Blocked-By"))
	}
	if resp.Request != req {
		t.Error("expected response to reference the original request")
	}
}

func TestResourceTypeFromRequest(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com/app.js", nil)
	if got := resourceTypeFromRequest(req); got != "script" {
		t.Errorf("expected script, got %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, "http://example.com/", nil)
	req.Header.Set("Accept", "text/html")
	if got := resourceTypeFromRequest(req); got != "document" {
		t.Errorf("expected document, got %q", got)
	}
}

func TestGetBindAddressDefault(t *testing.T) {
	c := &Config{}
	if got := c.GetBindAddress(); got != DefaultBindAddress {
		t.Errorf("expected default bind address, got %q", got)
	}
}
