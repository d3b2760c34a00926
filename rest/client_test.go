package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/ratelimit"
	"github.com/goliatone/go-interactions/transport"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := transport.NewRESTAdapter(server.Client())
	adapter.Signer = core.BotTokenSigner{Token: "token-abc"}
	return NewClient(server.URL+"/api/v10", adapter), server
}

func TestClient_BulkOverwriteCommandsPutsOrderedList(t *testing.T) {
	var gotPath, gotMethod, gotAuth string
	var gotBody []map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod, gotAuth = r.URL.Path, r.Method, r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"900","application_id":"123","name":"ping","type":1,"description":"Ping"}]`))
	})

	registered, err := client.BulkOverwriteCommands(context.Background(), "123", "", []core.SyncCommand{
		{Name: "ping", Type: core.CommandTypeChatInput, Description: "Ping"},
		{Name: "Inspect", Type: core.CommandTypeUser},
	})
	if err != nil {
		t.Fatalf("bulk overwrite: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/v10/applications/123/commands" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if gotAuth != "Bot token-abc" {
		t.Fatalf("expected bot authorization, got %q", gotAuth)
	}
	if len(gotBody) != 2 || gotBody[0]["name"] != "ping" || gotBody[1]["name"] != "Inspect" {
		t.Fatalf("expected ordered command list, got %#v", gotBody)
	}
	if len(registered) != 1 || registered[0].ID != "900" || registered[0].Name != "ping" {
		t.Fatalf("unexpected registered commands %+v", registered)
	}
}

func TestClient_GuildScopedCommandPaths(t *testing.T) {
	if got := CommandsPath("1", "2"); got != "applications/1/guilds/2/commands" {
		t.Fatalf("unexpected guild path %q", got)
	}
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})
	if err := client.DeleteCommand(context.Background(), "1", "2", "77"); err != nil {
		t.Fatalf("delete command: %v", err)
	}
	if gotPath != "DELETE /api/v10/applications/1/guilds/2/commands/77" {
		t.Fatalf("unexpected delete request %q", gotPath)
	}
}

func TestClient_CreateMessageSendsMultipart(t *testing.T) {
	type part struct {
		name     string
		filename string
		body     string
	}
	var parts []part
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v10/channels/42/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("parse content type: %v", err)
			return
		}
		reader := multipart.NewReader(r.Body, params["boundary"])
		for {
			next, err := reader.NextPart()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Errorf("next part: %v", err)
				return
			}
			data, _ := io.ReadAll(next)
			parts = append(parts, part{name: next.FormName(), filename: next.FileName(), body: string(data)})
		}
		_, _ = w.Write([]byte(`{"id":"5","channel_id":"42","content":"report"}`))
	})

	message, err := client.CreateMessage(context.Background(), "42", core.Reply{
		ResponseData: core.ResponseData{Content: "report"},
		Files: []core.Attachment{
			{ID: "0", Filename: "a.csv", Data: []byte("a,b")},
			{ID: "1", Filename: "b.txt", Data: []byte("hello")},
		},
	})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	if message.ID != "5" {
		t.Fatalf("unexpected message %+v", message)
	}
	if len(parts) != 3 {
		t.Fatalf("expected payload and two files, got %d parts", len(parts))
	}
	if parts[0].name != core.PayloadJSONField {
		t.Fatalf("expected payload_json first, got %q", parts[0].name)
	}
	var payload struct {
		Content     string `json:"content"`
		Attachments []struct {
			ID       string `json:"id"`
			Filename string `json:"filename"`
		} `json:"attachments"`
	}
	if err := json.Unmarshal([]byte(parts[0].body), &payload); err != nil {
		t.Fatalf("decode payload_json: %v", err)
	}
	if payload.Content != "report" || len(payload.Attachments) != 2 || payload.Attachments[1].Filename != "b.txt" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if parts[1].name != "files[0]" || parts[1].filename != "a.csv" || parts[1].body != "a,b" {
		t.Fatalf("unexpected first file part %+v", parts[1])
	}
	if parts[2].name != "files[1]" || parts[2].filename != "b.txt" || parts[2].body != "hello" {
		t.Fatalf("unexpected second file part %+v", parts[2])
	}
}

func TestClient_StatusErrorsCarryEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":10003,"message":"Unknown Channel"}`))
	})

	_, err := client.CreateMessage(context.Background(), "1", core.Reply{ResponseData: core.ResponseData{Content: "x"}})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryNotFound || rich.Code != http.StatusNotFound {
		t.Fatalf("unexpected envelope %q/%d", rich.Category, rich.Code)
	}
	if rich.Metadata["api_code"] != 10003 {
		t.Fatalf("expected api code metadata, got %#v", rich.Metadata)
	}
}

func TestClient_RateLimitedResponseBlocksNextCall(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You are being rate limited.","retry_after":30,"global":false}`))
	})
	client.RateLimit = ratelimit.NewAdaptivePolicy(ratelimit.NewMemoryStateStore())

	err := client.Delete(context.Background(), "channels/1/messages/2")
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.ErrorRateLimited {
		t.Fatalf("expected rate limited envelope, got %v", err)
	}

	err = client.Delete(context.Background(), "channels/1/messages/3")
	var throttled ratelimit.ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected local throttle, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected throttled call to stay local, got %d calls", calls)
	}
}

func TestRouteKey(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPut, "applications/123/commands", "applications/123/commands"},
		{http.MethodDelete, "applications/123/commands/456", "applications/123/commands/:id"},
		{http.MethodPost, "channels/42/messages", "channels/42/messages"},
		{http.MethodDelete, "channels/42/messages/9", "DELETE channels/42/messages/:id"},
		{http.MethodGet, "/guilds/7/members/8/", "guilds/7/members/:id"},
		{http.MethodPost, "webhooks/123/aW50ZXJhY3Rpb24", "webhooks/123/:token"},
		{http.MethodPatch, "webhooks/123/aW50ZXJhY3Rpb24/messages/@original", "webhooks/123/:token/messages/@original"},
		{http.MethodPost, "interactions/55/aW50ZXJhY3Rpb24/callback", "interactions/55/:token/callback"},
	}
	for _, tc := range cases {
		if got := RouteKey(tc.method, tc.path); got != tc.want {
			t.Fatalf("RouteKey(%s, %s) = %q, want %q", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestClient_RequiresTransportAndPath(t *testing.T) {
	var client *Client
	if _, err := client.Do(context.Background(), Request{Path: "x"}); err == nil {
		t.Fatalf("expected nil client error")
	}
	client = NewClient("", transport.NewDryRunAdapter())
	if client.BaseURL != core.DefaultAPIBaseURL {
		t.Fatalf("expected default base url, got %q", client.BaseURL)
	}
	if _, err := client.Do(context.Background(), Request{Path: " / "}); err == nil {
		t.Fatalf("expected path validation error")
	}
}

type recordingStateStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *recordingStateStore) Get(context.Context, core.RateLimitKey) (ratelimit.State, error) {
	return ratelimit.State{}, ratelimit.ErrStateNotFound
}

func (s *recordingStateStore) Upsert(_ context.Context, state ratelimit.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, ratelimit.StateKey(state.Key))
	return nil
}

type lineLogger struct {
	mu    *sync.Mutex
	lines *[]string
}

func newLineLogger() lineLogger {
	return lineLogger{mu: &sync.Mutex{}, lines: &[]string{}}
}

func (l lineLogger) record(msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.lines = append(*l.lines, fmt.Sprint(append([]any{msg}, args...)...))
}

func (l lineLogger) Trace(msg string, args ...any)           { l.record(msg, args...) }
func (l lineLogger) Debug(msg string, args ...any)           { l.record(msg, args...) }
func (l lineLogger) Info(msg string, args ...any)            { l.record(msg, args...) }
func (l lineLogger) Warn(msg string, args ...any)            { l.record(msg, args...) }
func (l lineLogger) Error(msg string, args ...any)           { l.record(msg, args...) }
func (l lineLogger) Fatal(msg string, args ...any)           { l.record(msg, args...) }
func (l lineLogger) WithContext(context.Context) core.Logger { return l }

func (l lineLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(*l.lines, "\n")
}

func TestClient_FollowupTokenNeverLeaks(t *testing.T) {
	const token = "aW50ZXJhY3Rpb246c2VjcmV0LXRva2Vu"
	adapter := transport.NewDryRunAdapter()
	adapter.Status = http.StatusUnauthorized
	adapter.Body = []byte(`{"code":50027,"message":"Invalid Webhook Token"}`)

	store := &recordingStateStore{}
	logger := newLineLogger()
	client := NewClient("https://discord.test/api/v10", adapter)
	client.RateLimit = ratelimit.NewAdaptivePolicy(store)
	client.Observer = core.NewObserver("interactions", logger, nil)

	_, err := client.CreateFollowup(context.Background(), "123", token, core.Reply{ResponseData: core.ResponseData{Content: "late"}})
	if err == nil {
		t.Fatalf("expected unauthorized error")
	}
	if strings.Contains(err.Error(), token) {
		t.Fatalf("error leaks interaction token: %v", err)
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Metadata["route"] != "webhooks/123/:token" {
		t.Fatalf("expected sanitized route metadata, got %v", err)
	}
	if strings.Contains(fmt.Sprint(rich.Metadata), token) {
		t.Fatalf("error metadata leaks interaction token: %#v", rich.Metadata)
	}

	store.mu.Lock()
	keys := append([]string(nil), store.keys...)
	store.mu.Unlock()
	if len(keys) == 0 {
		t.Fatalf("expected rate limit state to be recorded")
	}
	for _, key := range keys {
		if strings.Contains(key, token) {
			t.Fatalf("rate limit key leaks interaction token: %q", key)
		}
	}

	logged := logger.joined()
	if logged == "" {
		t.Fatalf("expected the request to be logged")
	}
	if strings.Contains(logged, token) {
		t.Fatalf("log leaks interaction token: %s", logged)
	}

	requests := adapter.Requests()
	if len(requests) != 1 || !strings.HasSuffix(requests[0].URL, "/webhooks/123/"+token) {
		t.Fatalf("expected the real token in the outbound url, got %+v", requests)
	}
}
