package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/ratelimit"
)

// Client talks to the counterpart's REST API through a transport adapter.
// Authentication is the adapter's concern; the client only builds requests,
// consults the rate limit policy and decodes responses.
type Client struct {
	BaseURL   string
	Transport core.TransportAdapter
	RateLimit core.RateLimitPolicy
	Observer  *core.Observer
	Timeout   time.Duration
}

func NewClient(baseURL string, transport core.TransportAdapter) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = core.DefaultAPIBaseURL
	}
	return &Client{
		BaseURL:   baseURL,
		Transport: transport,
		Timeout:   core.DefaultRequestTimeout,
	}
}

// Request is one outbound call. Body is sent as is with ContentType.
type Request struct {
	Method      string
	Path        string
	Query       map[string]string
	Body        []byte
	ContentType string
	Reason      string
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	res, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path})
	if err != nil {
		return err
	}
	return decodeBody(res, out)
}

// Post sends payload as JSON.
func (c *Client) Post(ctx context.Context, path string, payload any, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, payload, out)
}

// PostMultipart sends payload as payload_json followed by one part per file.
func (c *Client) PostMultipart(ctx context.Context, path string, payload any, files []core.Attachment, out any) error {
	body, contentType, err := core.EncodeMultipart(payload, files)
	if err != nil {
		return restWrapError(err, goerrors.CategoryBadInput, "rest: encode multipart body", http.StatusBadRequest, map[string]any{"route": RouteKey(http.MethodPost, path)})
	}
	res, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body, ContentType: contentType})
	if err != nil {
		return err
	}
	return decodeBody(res, out)
}

func (c *Client) Put(ctx context.Context, path string, payload any, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, payload, out)
}

func (c *Client) Patch(ctx context.Context, path string, payload any, out any) error {
	return c.sendJSON(ctx, http.MethodPatch, path, payload, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, Request{Method: http.MethodDelete, Path: path})
	return err
}

func (c *Client) sendJSON(ctx context.Context, method string, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return restWrapError(err, goerrors.CategoryBadInput, "rest: encode json body", http.StatusBadRequest, map[string]any{"route": RouteKey(method, path)})
		}
		body = encoded
	}
	res, err := c.Do(ctx, Request{Method: method, Path: path, Body: body, ContentType: "application/json"})
	if err != nil {
		return err
	}
	return decodeBody(res, out)
}

// Do executes req. Non-2xx answers are returned as go-errors envelopes that
// carry the status code and the counterpart's error body.
func (c *Client) Do(ctx context.Context, req Request) (res core.TransportResponse, err error) {
	if c == nil || c.Transport == nil {
		return core.TransportResponse{}, restError("rest: client requires a transport", goerrors.CategoryInternal, http.StatusInternalServerError, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.Trim(strings.TrimSpace(req.Path), "/")
	if path == "" {
		return core.TransportResponse{}, restError("rest: request path is required", goerrors.CategoryBadInput, http.StatusBadRequest, nil)
	}
	key := core.RateLimitKey{Route: RouteKey(method, path)}

	startedAt := time.Now()
	fields := map[string]any{"route": key.Route, "method": method}
	defer func() {
		if res.StatusCode > 0 {
			fields["status_code"] = res.StatusCode
		}
		c.Observer.ObserveOperation(ctx, startedAt, core.OperationRESTRequest, err, fields)
	}()

	if c.RateLimit != nil {
		if limitErr := c.RateLimit.BeforeCall(ctx, key); limitErr != nil {
			var throttled ratelimit.ThrottledError
			if errors.As(limitErr, &throttled) {
				return core.TransportResponse{}, throttled.ToServiceError()
			}
			return core.TransportResponse{}, limitErr
		}
	}

	headers := map[string]string{}
	if contentType := strings.TrimSpace(req.ContentType); contentType != "" && req.Body != nil {
		headers["Content-Type"] = contentType
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		headers["X-Audit-Log-Reason"] = reason
	}

	res, err = c.Transport.Do(ctx, core.TransportRequest{
		Method:  method,
		URL:     joinURL(c.BaseURL, path),
		Headers: headers,
		Query:   req.Query,
		Body:    req.Body,
		Timeout: c.Timeout,
		Metadata: map[string]any{
			"route": key.Route,
		},
	})
	if err != nil {
		return core.TransportResponse{}, err
	}

	if c.RateLimit != nil {
		if limitErr := c.RateLimit.AfterCall(ctx, key, responseMeta(res)); limitErr != nil {
			c.Observer.LogWarn(ctx, "rest rate limit state update failed", map[string]any{
				"route": key.Route,
				"error": limitErr.Error(),
			})
		}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, statusError(method, key.Route, res)
	}
	return res, nil
}

// APIError is the counterpart's JSON error body.
type APIError struct {
	Code       int             `json:"code"`
	Message    string          `json:"message"`
	Errors     json.RawMessage `json:"errors,omitempty"`
	RetryAfter float64         `json:"retry_after,omitempty"`
	Global     bool            `json:"global,omitempty"`
}

func statusError(method string, route string, res core.TransportResponse) error {
	var apiErr APIError
	_ = json.Unmarshal(res.Body, &apiErr)

	metadata := map[string]any{
		"method":      method,
		"route":       route,
		"status_code": res.StatusCode,
	}
	if apiErr.Code != 0 {
		metadata["api_code"] = apiErr.Code
	}
	if len(apiErr.Errors) > 0 {
		metadata["api_errors"] = string(apiErr.Errors)
	}
	message := fmt.Sprintf("rest: %s %s returned %d", method, route, res.StatusCode)
	if strings.TrimSpace(apiErr.Message) != "" {
		message += ": " + apiErr.Message
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		if apiErr.RetryAfter > 0 {
			metadata["retry_after_ms"] = int64(apiErr.RetryAfter * 1000)
		}
		metadata["global"] = apiErr.Global
		return restError(message, goerrors.CategoryRateLimit, http.StatusTooManyRequests, metadata)
	case res.StatusCode == http.StatusUnauthorized:
		return restError(message, goerrors.CategoryAuth, http.StatusUnauthorized, metadata)
	case res.StatusCode == http.StatusNotFound:
		return restError(message, goerrors.CategoryNotFound, http.StatusNotFound, metadata)
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return restError(message, goerrors.CategoryBadInput, res.StatusCode, metadata)
	default:
		return restError(message, goerrors.CategoryExternal, http.StatusBadGateway, metadata)
	}
}

func responseMeta(res core.TransportResponse) core.ResponseMeta {
	meta := core.ResponseMeta{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Metadata:   map[string]any{},
	}
	if res.StatusCode != http.StatusTooManyRequests {
		return meta
	}
	var apiErr APIError
	if err := json.Unmarshal(res.Body, &apiErr); err != nil {
		return meta
	}
	if apiErr.RetryAfter > 0 {
		retryAfter := time.Duration(apiErr.RetryAfter * float64(time.Second))
		meta.RetryAfter = &retryAfter
	}
	if apiErr.Global {
		meta.Metadata["global"] = true
	}
	return meta
}

func decodeBody(res core.TransportResponse, out any) error {
	if out == nil || len(res.Body) == 0 || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return restWrapError(err, goerrors.CategoryExternal, "rest: decode response body", http.StatusBadGateway, map[string]any{
			"status_code": res.StatusCode,
		})
	}
	return nil
}

func joinURL(baseURL string, path string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/" + strings.TrimLeft(path, "/")
}

// RouteKey collapses a request path to the bucket the counterpart rate
// limits by. Ids are kept only after a major parameter (channels, guilds,
// webhooks, applications) so one channel's bucket never blocks another's.
// Interaction tokens never survive into the key: it is logged, stored and
// reported in errors.
func RouteKey(method string, path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	out := make([]string, 0, len(segments))
	for index, segment := range segments {
		if isTokenSegment(segments, index) {
			out = append(out, ":token")
			continue
		}
		if index > 0 && isID(segment) && !isMajorParameter(segments[index-1]) {
			out = append(out, ":id")
			continue
		}
		out = append(out, segment)
	}
	route := strings.Join(out, "/")
	// Message deletes have their own bucket.
	if method == http.MethodDelete && strings.Contains(route, "/messages/") {
		return http.MethodDelete + " " + route
	}
	return route
}

// isTokenSegment reports whether segments[index] is the token in
// webhooks/{application_id}/{token} or interactions/{id}/{token}.
func isTokenSegment(segments []string, index int) bool {
	if index < 2 || segments[index] == "" {
		return false
	}
	switch segments[index-2] {
	case "webhooks", "interactions":
		return true
	default:
		return false
	}
}

func isMajorParameter(segment string) bool {
	switch segment {
	case "channels", "guilds", "webhooks", "applications":
		return true
	default:
		return false
	}
}

func isID(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
