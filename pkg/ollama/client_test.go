package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient(t *testing.T) {
	if _, err := NewClient("http://localhost:11434/api/chat"); err != nil {
		t.Errorf("expected a valid URL, got %v", err)
	}
	for _, bad := range []string{"", "localhost:11434", "://x"} {
		if _, err := NewClient(bad); err == nil {
			t.Errorf("NewClient(%q): expected error", bad)
		}
	}
}

func TestQueryJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"model":"minicpm-v4","message":{"role":"assistant","content":"` +
			"```json\\n{\\\"plates\\\":[]}\\n```" + `"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	out, err := c.QueryJSON(context.Background(), "minicpm-v4", "find plates", "aGVsbG8=")
	if err != nil {
		t.Fatalf("QueryJSON failed: %v", err)
	}
	if out != `{"plates":[]}` {
		t.Errorf("unexpected sanitized output %q", out)
	}

	opts, _ := got["options"].(map[string]any)
	if opts["temperature"] != 0.1 || opts["num_ctx"] != float64(4096) {
		t.Errorf("unexpected options %v", opts)
	}
}

func TestQueryJSONBadImage(t *testing.T) {
	c, _ := NewClient("http://localhost:1")
	if _, err := c.QueryJSON(context.Background(), "m", "p", "not base64!"); err == nil {
		t.Error("expected a base64 error")
	}
}
