package inbound

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

// Handler exposes a Dispatcher over net/http. The body is read once and the
// same bytes feed both verification and decoding.
type Handler struct {
	Dispatcher   *Dispatcher
	MaxBodyBytes int64
	Observer     *core.Observer
}

func NewHandler(dispatcher *Dispatcher, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = core.DefaultMaxBodyBytes
	}
	var observer *core.Observer
	if dispatcher != nil {
		observer = dispatcher.Observer
	}
	return &Handler{
		Dispatcher:   dispatcher,
		MaxBodyBytes: maxBodyBytes,
		Observer:     observer,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.reject(r.Context(), w, inboundError(
			"inbound: method not allowed",
			goerrors.CategoryMethodNotAllowed,
			http.StatusMethodNotAllowed,
			core.ErrorBadInput,
			map[string]any{"method": r.Method},
		), http.StatusMethodNotAllowed)
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = core.DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		h.reject(r.Context(), w, inboundBadInput(err, "inbound: read request body", nil), http.StatusBadRequest)
		return
	}
	if int64(len(body)) > limit {
		h.reject(r.Context(), w, inboundError(
			"inbound: request body too large",
			goerrors.CategoryBadInput,
			http.StatusRequestEntityTooLarge,
			core.ErrorBadInput,
			map[string]any{"limit": limit},
		), http.StatusRequestEntityTooLarge)
		return
	}

	result, err := h.Dispatcher.Dispatch(r.Context(), core.InboundRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: flattenHeaders(r.Header),
		Body:    body,
	})
	if err != nil && result.StatusCode == http.StatusOK {
		h.Observer.LogWarn(r.Context(), "interaction answered with error reply", map[string]any{
			"error": err.Error(),
		})
	}

	status := result.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
		if mapped := core.MapError(err); mapped != nil && mapped.Code != 0 {
			status = mapped.Code
		}
	}
	if status != http.StatusOK || len(result.Body) == 0 {
		w.WriteHeader(status)
		return
	}
	if result.ContentType != "" {
		w.Header().Set("Content-Type", result.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Body)))
	w.WriteHeader(status)
	_, _ = w.Write(result.Body)
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, err error, status int) {
	h.Observer.LogWarn(ctx, "interaction request rejected", map[string]any{
		"error":       err.Error(),
		"status_code": status,
	})
	w.WriteHeader(status)
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(strings.TrimSpace(key))] = values[0]
	}
	return out
}
