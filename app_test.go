package interactions

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/followup"
	"github.com/goliatone/go-interactions/security"
	"github.com/goliatone/go-interactions/transport"
)

const testApplicationID = "123456789012345678"

type testKeys struct {
	private ed25519.PrivateKey
	public  string
}

func newTestKeys() testKeys {
	seed := make([]byte, ed25519.SeedSize)
	for index := range seed {
		seed[index] = byte(index*7 + 1)
	}
	private := ed25519.NewKeyFromSeed(seed)
	return testKeys{
		private: private,
		public:  hex.EncodeToString(private.Public().(ed25519.PublicKey)),
	}
}

func (k testKeys) sign(timestamp string, body []byte) string {
	return hex.EncodeToString(ed25519.Sign(k.private, append([]byte(timestamp), body...)))
}

func testBotToken() string {
	return base64.RawStdEncoding.EncodeToString([]byte(testApplicationID)) + ".GhIjKl.secret"
}

type recordingDoer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	status   int
	body     string
}

func (d *recordingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var payload []byte
	if req.Body != nil {
		payload, _ = io.ReadAll(req.Body)
	}
	d.requests = append(d.requests, req)
	d.bodies = append(d.bodies, string(payload))
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	body := d.body
	if body == "" {
		body = "[]"
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func newTestApp(t *testing.T, keys testKeys, opts ...Option) *App {
	t.Helper()
	app, err := New(Config{PublicKey: keys.public, BotToken: testBotToken()}, opts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app
}

func TestNew_ResolvesApplicationIDFromToken(t *testing.T) {
	app := newTestApp(t, newTestKeys(), WithTransport(transport.NewDryRunAdapter()))
	if app.ApplicationID() != testApplicationID {
		t.Fatalf("expected application id %q, got %q", testApplicationID, app.ApplicationID())
	}
	if app.Config().Server.Path != core.DefaultInteractionsPath {
		t.Fatalf("expected default path, got %q", app.Config().Server.Path)
	}
}

func TestNew_RejectsInvalidSecrets(t *testing.T) {
	if _, err := New(Config{PublicKey: "zz", BotToken: testBotToken()}); err == nil {
		t.Fatalf("expected invalid public key error")
	}
	if _, err := New(Config{PublicKey: newTestKeys().public}); err == nil {
		t.Fatalf("expected missing bot token error")
	}
	if _, err := New(Config{PublicKey: newTestKeys().public, BotToken: "!!!.x.y"}); err == nil {
		t.Fatalf("expected undecodable token error")
	}
}

func TestNew_UnsealsBotTokenWithAppKey(t *testing.T) {
	const appKey = "0123456789abcdef0123456789abcdef"
	provider, err := security.NewAppKeySecretProviderFromString(appKey)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	sealed, err := security.SealString(context.Background(), provider, testBotToken())
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	doer := &recordingDoer{}
	app, err := New(Config{PublicKey: newTestKeys().public, BotToken: sealed, AppKey: appKey}, WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if app.ApplicationID() != testApplicationID {
		t.Fatalf("expected id from unsealed token, got %q", app.ApplicationID())
	}

	if _, err := New(Config{PublicKey: newTestKeys().public, BotToken: sealed}); err == nil {
		t.Fatalf("expected sealed token without app key to fail")
	}
}

func TestApp_HandlerServesSignedCommands(t *testing.T) {
	keys := newTestKeys()
	app := newTestApp(t, keys, WithTransport(transport.NewDryRunAdapter()))
	if err := app.Command("ping", core.CommandSpec{Description: "Replies with pong"}, func(context.Context, core.Interaction) (core.Response, error) {
		return core.ReplyText("pong"), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	server := httptest.NewServer(app.Server().Handler)
	defer server.Close()

	body := []byte(`{"id":"1","application_id":"` + testApplicationID + `","type":2,"token":"tok","data":{"id":"9","name":"ping","type":1}}`)
	timestamp := "1700000000"
	send := func(signature string) *http.Response {
		req, err := http.NewRequest(http.MethodPost, server.URL+core.DefaultInteractionsPath, bytes.NewReader(body))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		req.Header.Set("X-Signature-Ed25519", signature)
		req.Header.Set("X-Signature-Timestamp", timestamp)
		res, err := server.Client().Do(req)
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		return res
	}

	res := send(keys.sign(timestamp, body))
	raw, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(string(raw), `"content":"pong"`) || !strings.Contains(string(raw), `"type":4`) {
		t.Fatalf("expected pong channel message, got %s", raw)
	}

	res = send(strings.Repeat("00", ed25519.SignatureSize))
	raw, _ = io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized || len(raw) != 0 {
		t.Fatalf("expected empty 401, got %d %q", res.StatusCode, raw)
	}
}

func TestApp_SyncCommandsUsesBotAuthorization(t *testing.T) {
	doer := &recordingDoer{}
	app := newTestApp(t, newTestKeys(), WithHTTPClient(doer))
	if err := app.Command("ping", core.CommandSpec{Description: "Replies with pong"}, func(context.Context, core.Interaction) (core.Response, error) {
		return core.ReplyText("pong"), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	result, err := app.SyncCommands(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !result.Published {
		t.Fatalf("expected publish, got %+v", result)
	}
	if len(doer.requests) != 1 {
		t.Fatalf("expected one request, got %d", len(doer.requests))
	}
	req := doer.requests[0]
	if req.Method != http.MethodPut {
		t.Fatalf("expected PUT, got %s", req.Method)
	}
	if !strings.HasSuffix(req.URL.Path, "/applications/"+testApplicationID+"/commands") {
		t.Fatalf("unexpected path %s", req.URL.Path)
	}
	if req.Header.Get("Authorization") != "Bot "+testBotToken() {
		t.Fatalf("unexpected authorization %q", req.Header.Get("Authorization"))
	}
	if !strings.Contains(doer.bodies[0], `"name":"ping"`) {
		t.Fatalf("expected ping in body, got %s", doer.bodies[0])
	}

	again, err := app.SyncCommands(context.Background(), SyncOptions{})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if again.Published || len(doer.requests) != 1 {
		t.Fatalf("expected unchanged command set to skip publish")
	}

	status, err := app.SyncStatus(context.Background(), "")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.InSync || status.CommandCount != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestApp_DeferredReplyIsDeliveredByWorker(t *testing.T) {
	doer := &recordingDoer{body: `{"id":"m1","channel_id":"c1","content":"slow"}`}
	app := newTestApp(t, newTestKeys(), WithHTTPClient(doer), WithWorkerConfig(followup.WorkerConfig{MaxAttempts: 1}))

	handler := app.Deferred(true, func(context.Context, core.Interaction) (core.Reply, error) {
		return core.Reply{ResponseData: core.ResponseData{Content: "slow"}}, nil
	})
	response, err := handler(context.Background(), core.Interaction{ID: "i1", ApplicationID: testApplicationID, Token: "tok"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if response.Envelope.Type != core.ResponseTypeDeferredChannelMessageWithSource {
		t.Fatalf("expected deferred ack, got %d", response.Envelope.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.Worker().ProcessOne(ctx); err != nil {
		t.Fatalf("process follow-up: %v", err)
	}
	doer.mu.Lock()
	defer doer.mu.Unlock()
	if len(doer.requests) != 1 {
		t.Fatalf("expected one follow-up request, got %d", len(doer.requests))
	}
	req := doer.requests[0]
	if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/webhooks/"+testApplicationID+"/tok") {
		t.Fatalf("unexpected follow-up request %s %s", req.Method, req.URL.Path)
	}
	if !strings.Contains(doer.bodies[0], "slow") {
		t.Fatalf("expected reply content in body, got %s", doer.bodies[0])
	}
}

func TestApp_NilIsSafe(t *testing.T) {
	var app *App
	if app.ApplicationID() != "" || app.Handler() != nil || app.REST() != nil {
		t.Fatalf("expected zero values from nil app")
	}
	if err := app.Command("x", core.CommandSpec{}, nil); err == nil {
		t.Fatalf("expected nil app error")
	}
	if err := app.RunWorker(context.Background()); err == nil {
		t.Fatalf("expected nil worker error")
	}
	if app.Server() != nil {
		t.Fatalf("expected no server from nil app")
	}
	if err := app.Shutdown(context.Background(), app.Server()); err != nil {
		t.Fatalf("expected nil shutdown to succeed, got %v", err)
	}
}

func TestNew_ResolvesTransportByConfiguredKind(t *testing.T) {
	doer := &recordingDoer{}
	cfg := Config{PublicKey: newTestKeys().public, BotToken: testBotToken()}
	cfg.REST.Transport = transport.KindDryRun
	app, err := New(cfg, WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if app.transport.Kind() != transport.KindDryRun {
		t.Fatalf("expected dry run adapter, got %q", app.transport.Kind())
	}
	if err := app.Command("ping", core.CommandSpec{Description: "Replies with pong"}, func(context.Context, core.Interaction) (core.Response, error) {
		return core.ReplyText("pong"), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := app.SyncCommands(context.Background(), SyncOptions{}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(doer.requests) != 0 {
		t.Fatalf("expected dry run to skip the network, got %d requests", len(doer.requests))
	}
	recorded := app.transport.(*transport.DryRunAdapter).Requests()
	if len(recorded) != 1 || recorded[0].Method != http.MethodPut {
		t.Fatalf("expected one recorded bulk overwrite, got %+v", recorded)
	}

	rest := Config{PublicKey: newTestKeys().public, BotToken: testBotToken()}
	app, err = New(rest, WithHTTPClient(doer))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if app.transport.Kind() != transport.KindREST {
		t.Fatalf("expected rest adapter by default, got %q", app.transport.Kind())
	}

	unknown := Config{PublicKey: newTestKeys().public, BotToken: testBotToken()}
	unknown.REST.Transport = "carrier-pigeon"
	if _, err := New(unknown, WithHTTPClient(doer)); err == nil {
		t.Fatalf("expected unknown transport kind to fail")
	}

	custom := transport.NewRegistry()
	if err := custom.Register(transport.NewDryRunAdapter()); err != nil {
		t.Fatalf("register adapter: %v", err)
	}
	if _, err := New(Config{PublicKey: newTestKeys().public, BotToken: testBotToken()}, WithTransportRegistry(custom)); err == nil {
		t.Fatalf("expected registry without rest to fail for the default kind")
	}
}
