package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"companion-server/services/chat-api/internal/domain/chat"
)

func TestRunTurn(t *testing.T) {
	var captured chat.TurnRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/turn" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chat.TurnResult{
			Response:   "fine, thanks",
			IntentType: "smalltalk",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	result, err := client.RunTurn(context.Background(), chat.TurnRequest{
		UserID:    "user_1",
		Input:     []chat.ContentPart{chat.TextPart("how are you?")},
		PlainText: "how are you?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Response != "fine, thanks" || result.IntentType != "smalltalk" {
		t.Errorf("unexpected result: %+v", result)
	}
	if captured.UserID != "user_1" || captured.PlainText != "how are you?" {
		t.Errorf("request not forwarded faithfully: %+v", captured)
	}
}

func TestRunTurnEngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)

	if _, err := client.RunTurn(context.Background(), chat.TurnRequest{UserID: "u"}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestRunTurnHonoursContext(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background read and
		// can observe the client disconnect via the request context.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	if _, err := client.RunTurn(ctx, chat.TurnRequest{UserID: "u"}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestReady(t *testing.T) {
	if NewClient("", time.Second).Ready() {
		t.Error("client without endpoint reported ready")
	}
	if !NewClient("http://localhost:8090", time.Second).Ready() {
		t.Error("configured client reported not ready")
	}
}
