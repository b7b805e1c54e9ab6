package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ono-cafeteria/api/internal/enum"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient("test-key")
	client.baseURL = srv.URL
	return client
}

func generateReply(text string) map[string]any {
	return map[string]any{
		"candidates": []any{
			map[string]any{
				"content": map[string]any{
					"parts": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func TestChatSendsContextAndHistory(t *testing.T) {
	var got generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "gemini-2.0-flash:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateReply("Hi there!"))
	})

	reply, err := client.Chat(context.Background(), enum.UserRoleStudent, []Turn{
		{Sender: "ai", Text: "How can I help?"},
		{Sender: "user", Text: "Where is the menu?"},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "Hi there!" {
		t.Errorf("reply: got %q", reply)
	}

	if len(got.Contents) != 3 {
		t.Fatalf("contents: got %d, want 3 (context + 2 turns)", len(got.Contents))
	}
	if got.Contents[0].Role != "model" {
		t.Errorf("context role: got %q, want model", got.Contents[0].Role)
	}
	if !strings.Contains(got.Contents[0].Parts[0].Text, "Student (regular user, no admin privileges)") {
		t.Error("context prompt missing student mode line")
	}
	if got.Contents[1].Role != "model" {
		t.Errorf("ai turn role: got %q, want model", got.Contents[1].Role)
	}
	if got.Contents[2].Role != "user" {
		t.Errorf("user turn role: got %q, want user", got.Contents[2].Role)
	}
}

func TestChatAdminPromptOmitsStudentRestriction(t *testing.T) {
	var got generateRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(generateReply("ok"))
	})

	if _, err := client.Chat(context.Background(), enum.UserRoleAdmin, []Turn{{Sender: "user", Text: "hi"}}); err != nil {
		t.Fatalf("chat: %v", err)
	}

	prompt := got.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "Admin (has access to admin-only pages and features)") {
		t.Error("context prompt missing admin mode line")
	}
	if strings.Contains(prompt, "never reveal, describe, or hint at any admin-only") {
		t.Error("admin prompt should not carry the student restriction")
	}
}

func TestChatStripsSelfCheckLine(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateReply("The menu is under Menu.\nIs there anything else I can help with?\ntrue"))
	})

	reply, err := client.Chat(context.Background(), enum.UserRoleStudent, []Turn{{Sender: "user", Text: "menu?"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if strings.HasSuffix(strings.ToLower(reply), "true") {
		t.Errorf("self-check line not stripped: %q", reply)
	}
	if !strings.Contains(reply, "The menu is under Menu.") {
		t.Errorf("reply content lost: %q", reply)
	}
}

func TestChatKeepsBareTrueReply(t *testing.T) {
	// A single-line "true" is the whole reply, not a self-check suffix.
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateReply("true"))
	})

	reply, err := client.Chat(context.Background(), enum.UserRoleStudent, []Turn{{Sender: "user", Text: "hm"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "true" {
		t.Errorf("reply: got %q, want true", reply)
	}
}

func TestChatRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Chat(context.Background(), enum.UserRoleStudent, []Turn{{Sender: "user", Text: "hi"}})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err: got %v, want ErrRateLimited", err)
	}
}

func TestChatEmptyCandidatesFallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	reply, err := client.Chat(context.Background(), enum.UserRoleStudent, []Turn{{Sender: "user", Text: "hi"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != fallbackReply {
		t.Errorf("reply: got %q, want fallback", reply)
	}
}

func TestChatUnconfigured(t *testing.T) {
	client := NewClient("")
	_, err := client.Chat(context.Background(), enum.UserRoleStudent, nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err: got %v, want ErrNotConfigured", err)
	}
}

func TestPing(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{"models":[]}`))
	})

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if path != "/models" {
		t.Errorf("path: got %q, want /models", path)
	}
}

func TestPingFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error for 403 response")
	}
}
