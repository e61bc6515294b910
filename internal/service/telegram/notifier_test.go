package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestSendPostsHTMLMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	n := New("secret-token", WithAPIBase(srv.URL))
	if err := n.Send(context.Background(), "12345", "<b>GOLDEN</b> BTCUSDT"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/botsecret-token/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != "12345" || gotBody["parse_mode"] != "HTML" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
}

func TestSendSurfacesAPIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer srv.Close()

	n := New("secret-token", WithAPIBase(srv.URL))
	if err := n.Send(context.Background(), "0", "text"); err == nil {
		t.Fatal("expected error for rejected message")
	}
}

func TestSendRequiresToken(t *testing.T) {
	n := New("")
	if err := n.Send(context.Background(), "12345", "text"); err == nil {
		t.Fatal("expected error with empty token")
	}
}

// Token swaps arrive from the config handler while the scanner is
// sending; the two must not race on the token field.
func TestSetTokenConcurrentWithSend(t *testing.T) {
	var mu sync.Mutex
	var lastPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		lastPath = r.URL.Path
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	n := New("first-token", WithAPIBase(srv.URL))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			_ = n.Send(context.Background(), "12345", "tick")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			n.SetToken("second-token")
		}
	}()
	wg.Wait()

	if err := n.Send(context.Background(), "12345", "after swap"); err != nil {
		t.Fatalf("Send after swap: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if lastPath != "/botsecond-token/sendMessage" {
		t.Fatalf("last request path = %q, want the swapped token", lastPath)
	}
}
