package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *ChatCompletionRequest) {
	t.Helper()
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(status)
		w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestQueryJSON(t *testing.T) {
	reply := `{"choices":[{"index":0,"message":{"role":"assistant","content":"` +
		"```json\\n{\\\"fragments\\\":[{\\\"text\\\":\\\"MH01\\\",\\\"confidence\\\":0.9},]}\\n```" + `"}}]}`
	srv, req := newServer(t, http.StatusOK, reply)

	c, err := NewClient(srv.URL + "/")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	out, err := c.QueryJSON(context.Background(), "plate-model", "read it", "aGVsbG8=")
	if err != nil {
		t.Fatalf("QueryJSON failed: %v", err)
	}
	if out != `{"fragments":[{"text":"MH01","confidence":0.9}]}` {
		t.Errorf("unexpected sanitized output %q", out)
	}

	if req.Model != "plate-model" || len(req.Messages) != 1 {
		t.Fatalf("unexpected request %+v", req)
	}
	parts, ok := req.Messages[0].Content.([]interface{})
	if !ok || len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %#v", req.Messages[0].Content)
	}
	img := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})["url"].(string)
	if !strings.HasPrefix(img, "data:image/jpeg;base64,") {
		t.Errorf("unexpected image url %q", img)
	}
}

func TestSimpleQueryArrayContent(t *testing.T) {
	reply := `{"choices":[{"message":{"role":"assistant","content":[{"type":"text","text":"a car"}]}}]}`
	srv, _ := newServer(t, http.StatusOK, reply)

	c, _ := NewClient(srv.URL)
	out, err := c.SimpleQuery(context.Background(), "m", "what", "")
	if err != nil {
		t.Fatalf("SimpleQuery failed: %v", err)
	}
	if out != "a car" {
		t.Errorf("expected 'a car', got %q", out)
	}
}

func TestQueryErrors(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, "boom")
	c, _ := NewClient(srv.URL)
	if _, err := c.QueryJSON(context.Background(), "m", "p", ""); err == nil {
		t.Error("expected an error for HTTP 500")
	}

	srv, _ = newServer(t, http.StatusOK, `{"choices":[]}`)
	c, _ = NewClient(srv.URL)
	if _, err := c.SimpleQuery(context.Background(), "m", "p", ""); err == nil {
		t.Error("expected an error for empty choices")
	}
}
