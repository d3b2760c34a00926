package inbound

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/webhooks"
)

func TestHandler_RejectsNonPost(t *testing.T) {
	handler := NewHandler(NewDispatcher(stubInboundVerifier{}, nil, nil), 0)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/interactions", nil))

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
	if recorder.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("expected Allow header, got %q", recorder.Header().Get("Allow"))
	}
}

func TestHandler_RejectsOversizedBody(t *testing.T) {
	handler := NewHandler(NewDispatcher(stubInboundVerifier{}, nil, nil), 8)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(`{"type":1,"padding":"xxxx"}`))
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", recorder.Code)
	}
}

func TestHandler_UnauthorizedHasEmptyBody(t *testing.T) {
	handler := NewHandler(NewDispatcher(stubInboundVerifier{err: webhooks.ErrInvalidSignature}, nil, nil), 0)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/interactions", strings.NewReader(`{"type":1}`)))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if recorder.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", recorder.Body.String())
	}
}

func TestHandler_WritesMultipartReply(t *testing.T) {
	handler := NewHandler(NewDispatcher(stubInboundVerifier{}, nil, nil), 0)
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/interactions", bytes.NewReader([]byte(`{"type":1}`)))
	request.Header.Set("X-Signature-Ed25519", "ignored")
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}
	contentType := recorder.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		t.Fatalf("expected multipart content type, got %q", contentType)
	}
	envelope := payloadOf(t, core.InboundResult{ContentType: contentType, Body: recorder.Body.Bytes()})
	if envelope.Type != int(core.ResponseTypePong) {
		t.Fatalf("expected pong, got %d", envelope.Type)
	}
}

func TestFlattenHeaders_LowercasesKeys(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Signature-Timestamp", "123")
	flat := flattenHeaders(headers)
	if flat["x-signature-timestamp"] != "123" {
		t.Fatalf("expected lowercased header, got %#v", flat)
	}
}
