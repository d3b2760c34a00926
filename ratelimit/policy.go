package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

// GlobalRoute is the bucket a global 429 is recorded under. It blocks every
// route until it expires.
const GlobalRoute = "global"

const (
	headerLimit      = "x-ratelimit-limit"
	headerRemaining  = "x-ratelimit-remaining"
	headerReset      = "x-ratelimit-reset"
	headerResetAfter = "x-ratelimit-reset-after"
	headerBucket     = "x-ratelimit-bucket"
	headerGlobal     = "x-ratelimit-global"
	headerScope      = "x-ratelimit-scope"
	headerRetryAfter = "retry-after"
)

type State struct {
	Key            core.RateLimitKey
	Bucket         string
	Scope          string
	Limit          int
	Remaining      int
	ResetAt        *time.Time
	RetryAfter     *time.Duration
	ThrottledUntil *time.Time
	LastStatus     int
	Attempts       int
	UpdatedAt      time.Time
	Metadata       map[string]any
}

type StateStore interface {
	Get(ctx context.Context, key core.RateLimitKey) (State, error)
	Upsert(ctx context.Context, state State) error
}

type ThrottledError struct {
	Route      string
	Bucket     string
	Global     bool
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	if e.Global {
		return fmt.Sprintf("ratelimit: global limit active for %s", e.RetryAfter)
	}
	return fmt.Sprintf(
		"ratelimit: route %q bucket %q throttled for %s",
		strings.TrimSpace(e.Route),
		strings.TrimSpace(e.Bucket),
		e.RetryAfter,
	)
}

// ToServiceError maps the throttle onto the rate limit envelope.
func (e ThrottledError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{
		"route":  strings.TrimSpace(e.Route),
		"bucket": strings.TrimSpace(e.Bucket),
		"global": e.Global,
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return core.NewError(e, goerrors.CategoryRateLimit, e.Error(), http.StatusTooManyRequests, core.ErrorRateLimited, metadata)
}

// AdaptivePolicy tracks X-RateLimit-* headers per route. It refuses calls
// while a bucket is exhausted or a 429 window is open, and backs off
// exponentially when the counterpart throttles without a hint. Remaining is
// -1 when the last response carried no bucket headers.
type AdaptivePolicy struct {
	Store            StateStore
	Now              func() time.Time
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	DefaultRetryHint time.Duration
}

func NewAdaptivePolicy(store StateStore) *AdaptivePolicy {
	return &AdaptivePolicy{
		Store:            store,
		Now:              func() time.Time { return time.Now().UTC() },
		InitialBackoff:   time.Second,
		MaxBackoff:       time.Minute,
		DefaultRetryHint: 5 * time.Second,
	}
}

func (p *AdaptivePolicy) BeforeCall(ctx context.Context, key core.RateLimitKey) error {
	if p == nil || p.Store == nil {
		return nil
	}
	now := p.now()

	global, err := p.Store.Get(ctx, core.RateLimitKey{Route: GlobalRoute})
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return err
	}
	if err == nil && global.ThrottledUntil != nil && now.Before(*global.ThrottledUntil) {
		return ThrottledError{Route: GlobalRoute, Global: true, RetryAfter: global.ThrottledUntil.Sub(now)}
	}

	state, err := p.Store.Get(ctx, normalizeKey(key))
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil
		}
		return err
	}
	if until := state.ThrottledUntil; until != nil && now.Before(*until) {
		return ThrottledError{Route: state.Key.Route, Bucket: state.Bucket, RetryAfter: until.Sub(now)}
	}
	if state.Remaining == 0 && state.ResetAt != nil && now.Before(*state.ResetAt) {
		return ThrottledError{Route: state.Key.Route, Bucket: state.Bucket, RetryAfter: state.ResetAt.Sub(now)}
	}
	return nil
}

func (p *AdaptivePolicy) AfterCall(ctx context.Context, key core.RateLimitKey, res core.ResponseMeta) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	now := p.now()

	retryAfter, hasRetryAfter := parseRetryAfter(res, now)
	if res.StatusCode == http.StatusTooManyRequests && isGlobal(res) {
		return p.recordGlobal(ctx, now, retryAfter, hasRetryAfter)
	}

	state, err := p.Store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return err
	}
	if errors.Is(err, ErrStateNotFound) {
		state = State{Key: key}
	}

	state.LastStatus = res.StatusCode
	state.UpdatedAt = now
	state.Metadata = cloneMap(state.Metadata)
	for k, v := range res.Metadata {
		state.Metadata[k] = v
	}
	if bucket := headerValue(res.Headers, headerBucket); bucket != "" {
		state.Bucket = bucket
	}
	if scope := headerValue(res.Headers, headerScope); scope != "" {
		state.Scope = scope
	}

	if limit, ok := parseHeaderInt(res.Headers, headerLimit); ok {
		state.Limit = limit
	}
	if remaining, ok := parseHeaderInt(res.Headers, headerRemaining); ok {
		state.Remaining = remaining
	} else {
		state.Remaining = -1
	}
	if resetAt, ok := parseResetAt(res.Headers, now); ok {
		state.ResetAt = &resetAt
	}
	if hasRetryAfter {
		state.RetryAfter = &retryAfter
	} else {
		state.RetryAfter = nil
	}

	if res.StatusCode == http.StatusTooManyRequests {
		state.Attempts++
		delay := retryAfter
		if !hasRetryAfter {
			delay = p.nextBackoff(state.Attempts)
		}
		until := now.Add(delay)
		state.ThrottledUntil = &until
		return p.Store.Upsert(ctx, state)
	}

	// An exhausted bucket is enforced through ResetAt in BeforeCall.
	state.Attempts = 0
	state.ThrottledUntil = nil
	return p.Store.Upsert(ctx, state)
}

func (p *AdaptivePolicy) recordGlobal(ctx context.Context, now time.Time, retryAfter time.Duration, hasRetryAfter bool) error {
	key := core.RateLimitKey{Route: GlobalRoute}
	state, err := p.Store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return err
	}
	if errors.Is(err, ErrStateNotFound) {
		state = State{Key: key}
	}
	state.Attempts++
	state.LastStatus = http.StatusTooManyRequests
	state.UpdatedAt = now
	if !hasRetryAfter {
		retryAfter = p.nextBackoff(state.Attempts)
	}
	state.RetryAfter = &retryAfter
	until := now.Add(retryAfter)
	state.ThrottledUntil = &until
	return p.Store.Upsert(ctx, state)
}

func (p *AdaptivePolicy) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *AdaptivePolicy) nextBackoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = p.defaultRetryHint()
	}
	maximum := p.MaxBackoff
	if maximum <= 0 {
		maximum = time.Minute
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

func (p *AdaptivePolicy) defaultRetryHint() time.Duration {
	if p != nil && p.DefaultRetryHint > 0 {
		return p.DefaultRetryHint
	}
	return 5 * time.Second
}

func isGlobal(res core.ResponseMeta) bool {
	if strings.EqualFold(headerValue(res.Headers, headerGlobal), "true") {
		return true
	}
	if strings.EqualFold(headerValue(res.Headers, headerScope), "global") {
		return true
	}
	global, _ := res.Metadata["global"].(bool)
	return global
}

// parseRetryAfter prefers an explicit hint, then Retry-After, then
// X-RateLimit-Reset-After on a 429. Values are fractional seconds.
func parseRetryAfter(res core.ResponseMeta, now time.Time) (time.Duration, bool) {
	if res.RetryAfter != nil && *res.RetryAfter > 0 {
		return *res.RetryAfter, true
	}
	if delay, ok := parseSeconds(headerValue(res.Headers, headerRetryAfter)); ok {
		return delay, true
	}
	if raw := headerValue(res.Headers, headerRetryAfter); raw != "" {
		if retryAt, err := http.ParseTime(raw); err == nil && retryAt.After(now) {
			return retryAt.Sub(now), true
		}
	}
	if res.StatusCode == http.StatusTooManyRequests {
		if delay, ok := parseSeconds(headerValue(res.Headers, headerResetAfter)); ok {
			return delay, true
		}
	}
	return 0, false
}

func parseResetAt(headers map[string]string, now time.Time) (time.Time, bool) {
	if delay, ok := parseSeconds(headerValue(headers, headerResetAfter)); ok {
		return now.Add(delay), true
	}
	value := headerValue(headers, headerReset)
	if value == "" {
		return time.Time{}, false
	}
	epoch, err := strconv.ParseFloat(value, 64)
	if err != nil || epoch <= 0 {
		return time.Time{}, false
	}
	seconds, fraction := math.Modf(epoch)
	return time.Unix(int64(seconds), int64(fraction*float64(time.Second))).UTC(), true
}

func parseSeconds(value string) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func parseHeaderInt(headers map[string]string, key string) (int, bool) {
	value := headerValue(headers, key)
	if value == "" {
		return 0, false
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	if value, ok := headers[key]; ok {
		return strings.TrimSpace(value)
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func normalizeKey(key core.RateLimitKey) core.RateLimitKey {
	return core.RateLimitKey{
		Route:     strings.Trim(strings.TrimSpace(key.Route), "/"),
		BucketKey: strings.TrimSpace(strings.ToLower(key.BucketKey)),
	}
}

func cloneMap(input map[string]any) map[string]any {
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

var _ core.RateLimitPolicy = (*AdaptivePolicy)(nil)
