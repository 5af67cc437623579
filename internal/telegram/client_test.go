package telegram_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skimmer/internal/services"
	"skimmer/internal/telegram"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *telegram.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := telegram.NewClient(telegram.Config{
		BotToken: "test-token",
		BaseURL:  server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := telegram.NewClient(telegram.Config{}); err == nil {
		t.Fatal("expected configuration error without a token")
	}
}

func TestSendMessagePostsMarkdownPayload(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"ok": true}`)
	})

	if err := client.SendMessage(context.Background(), 42, "hello *there*"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/bottest-token/sendMessage") {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotBody["chat_id"].(float64) != 42 {
		t.Fatalf("unexpected chat_id %v", gotBody["chat_id"])
	}
	if gotBody["parse_mode"] != "Markdown" {
		t.Fatalf("unexpected parse_mode %v", gotBody["parse_mode"])
	}
}

func TestSendMessageRejectsEmptyText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("empty message must not reach the API")
	})
	if err := client.SendMessage(context.Background(), 42, "  "); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSendMessageClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		permanent bool
	}{
		{
			name:      "bot blocked",
			response:  `{"ok": false, "error_code": 403, "description": "Forbidden: bot was blocked by the user"}`,
			permanent: true,
		},
		{
			name:      "account deactivated",
			response:  `{"ok": false, "error_code": 403, "description": "Forbidden: user is deactivated"}`,
			permanent: true,
		},
		{
			name:      "chat gone",
			response:  `{"ok": false, "error_code": 400, "description": "Bad Request: chat not found"}`,
			permanent: true,
		},
		{
			name:      "rate limited",
			response:  `{"ok": false, "error_code": 429, "description": "Too Many Requests: retry after 30"}`,
			permanent: false,
		},
		{
			name:      "server error",
			response:  `{"ok": false, "error_code": 502, "description": "Bad Gateway"}`,
			permanent: false,
		},
		{
			name:      "other bad request",
			response:  `{"ok": false, "error_code": 400, "description": "Bad Request: message is too long"}`,
			permanent: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tc.response)
			})
			err := client.SendMessage(context.Background(), 42, "hello")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := services.IsPermanentRecipient(err); got != tc.permanent {
				t.Fatalf("permanent=%v, want %v (err=%v)", got, tc.permanent, err)
			}
			if !tc.permanent && !services.IsTransient(err) {
				t.Fatalf("expected transient classification, got %v", err)
			}
		})
	}
}

func TestSendMessageTransportFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client, err := telegram.NewClient(telegram.Config{BotToken: "test-token", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	sendErr := client.SendMessage(context.Background(), 42, "hello")
	if !services.IsTransient(sendErr) {
		t.Fatalf("expected transient transport error, got %v", sendErr)
	}
}
