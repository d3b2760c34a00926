package transport

import (
	"context"
	"net/http"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

const KindDryRun = "dry_run"

// DryRunAdapter records outbound requests instead of sending them. Every
// request is answered with Status and Body.
type DryRunAdapter struct {
	Status int
	Body   []byte

	mu       sync.Mutex
	requests []core.TransportRequest
}

func NewDryRunAdapter() *DryRunAdapter {
	return &DryRunAdapter{Status: http.StatusOK, Body: []byte("[]")}
}

func (*DryRunAdapter) Kind() string {
	return KindDryRun
}

func (a *DryRunAdapter) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil {
		return core.TransportResponse{}, transportError(
			"transport: dry run adapter is nil",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	recorded := req
	recorded.Body = append([]byte(nil), req.Body...)

	a.mu.Lock()
	a.requests = append(a.requests, recorded)
	a.mu.Unlock()

	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	return core.TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       append([]byte(nil), a.Body...),
		Metadata: map[string]any{
			"kind":    KindDryRun,
			"method":  strings.ToUpper(strings.TrimSpace(req.Method)),
			"dry_run": true,
		},
	}, nil
}

// Requests returns a copy of everything sent through the adapter so far.
func (a *DryRunAdapter) Requests() []core.TransportRequest {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.TransportRequest(nil), a.requests...)
}

var _ core.TransportAdapter = (*DryRunAdapter)(nil)
