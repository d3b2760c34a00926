package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

func TestRESTAdapter_ResponseLimitReturnsRichError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.MaxResponseBodyBytes = 4

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	if err == nil {
		t.Fatalf("expected response body limit error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category, got %q", rich.Category)
	}
	if rich.TextCode != core.ErrorUpstreamFailed {
		t.Fatalf("expected %q text code, got %q", core.ErrorUpstreamFailed, rich.TextCode)
	}
	if rich.Code != http.StatusBadGateway {
		t.Fatalf("expected %d code, got %d", http.StatusBadGateway, rich.Code)
	}
}

type failingSigner struct{}

func (failingSigner) Sign(context.Context, *http.Request) error {
	return errors.New("no token")
}

func TestRESTAdapter_SignerFailureReturnsAuthError(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client())
	adapter.Signer = failingSigner{}

	_, err := adapter.Do(context.Background(), core.TransportRequest{Method: http.MethodGet, URL: server.URL})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryAuth || rich.TextCode != core.ErrorUnauthorized {
		t.Fatalf("expected auth envelope, got %q/%q", rich.Category, rich.TextCode)
	}
	if called {
		t.Fatalf("request must not be sent when signing fails")
	}
}

type unreachableDoer struct{}

func (unreachableDoer) Do(req *http.Request) (*http.Response, error) {
	return nil, &url.Error{Op: "Post", URL: req.URL.String(), Err: errors.New("connection refused")}
}

func TestRESTAdapter_ExecuteFailureReportsRouteNotURL(t *testing.T) {
	const token = "aW50ZXJhY3Rpb24tdG9rZW4"
	adapter := NewRESTAdapter(unreachableDoer{})

	_, err := adapter.Do(context.Background(), core.TransportRequest{
		Method:   http.MethodPost,
		URL:      "https://discord.test/api/v10/webhooks/123/" + token,
		Metadata: map[string]any{"route": "webhooks/123/:token"},
	})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external envelope, got %v", err)
	}
	if strings.Contains(err.Error(), token) {
		t.Fatalf("error leaks request path: %v", err)
	}
	if rich.Metadata["route"] != "webhooks/123/:token" {
		t.Fatalf("expected route metadata, got %#v", rich.Metadata)
	}
	if _, ok := rich.Metadata["url"]; ok {
		t.Fatalf("url must not be reported, got %#v", rich.Metadata)
	}

	_, err = adapter.Do(context.Background(), core.TransportRequest{
		Method: http.MethodPost,
		URL:    "https://discord.test/api/v10/webhooks/123/" + token,
	})
	if err == nil || strings.Contains(err.Error(), token) {
		t.Fatalf("expected error without path, got %v", err)
	}
}
