package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type InboundRequest struct {
	Method   string
	Path     string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

// InboundResult is the terminal HTTP answer for one inbound request. Body is
// empty for rejected requests.
type InboundResult struct {
	Accepted    bool
	StatusCode  int
	ContentType string
	Body        []byte
	Metadata    map[string]any
}

type TransportRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Query       map[string]string
	Body        []byte
	Metadata    map[string]any
	Timeout     time.Duration
	Idempotency string
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// RateLimitKey identifies a rate limit bucket. Route is the major route the
// counterpart buckets by (for example applications/{id}/commands).
type RateLimitKey struct {
	Route     string
	BucketKey string
}

type ResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res ResponseMeta) error
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Signer authenticates outbound REST requests.
type Signer interface {
	Sign(ctx context.Context, req *http.Request) error
}
