package followup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/rest"
)

// Sender delivers a follow-up message. *rest.Client satisfies it.
type Sender interface {
	CreateFollowup(ctx context.Context, applicationID string, token string, reply core.Reply) (rest.Message, error)
}

type WorkerConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// TokenLifetime is the age after which a job is dead lettered without
	// being sent.
	TokenLifetime time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     time.Minute,
		TokenLifetime:  TokenLifetime,
	}
}

// attemptNacker is implemented by deliveries that bound retries themselves,
// such as the go-job delivery adapter.
type attemptNacker interface {
	NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error
}

// Worker drains follow-up jobs from a queue and posts them.
type Worker struct {
	dequeuer core.JobDequeuer
	sender   Sender
	hook     core.JobWorkerHook
	observer *core.Observer
	config   WorkerConfig
	now      func() time.Time

	mu       sync.Mutex
	attempts map[string]int
}

type WorkerOption func(*Worker)

func WithWorkerHook(hook core.JobWorkerHook) WorkerOption {
	return func(w *Worker) {
		w.hook = hook
	}
}

func WithWorkerObserver(observer *core.Observer) WorkerOption {
	return func(w *Worker) {
		if observer != nil {
			w.observer = observer
		}
	}
}

// WithWorkerClock replaces the clock used to age jobs.
func WithWorkerClock(now func() time.Time) WorkerOption {
	return func(w *Worker) {
		if now != nil {
			w.now = now
		}
	}
}

func NewWorker(dequeuer core.JobDequeuer, sender Sender, config WorkerConfig, opts ...WorkerOption) (*Worker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("followup: dequeuer is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("followup: sender is required")
	}
	defaults := DefaultWorkerConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaults.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaults.MaxBackoff
	}
	if config.TokenLifetime <= 0 || config.TokenLifetime > defaults.TokenLifetime {
		config.TokenLifetime = defaults.TokenLifetime
	}
	worker := &Worker{
		dequeuer: dequeuer,
		sender:   sender,
		observer: core.NewObserver("interactions.followup", nil, nil),
		config:   config,
		now:      time.Now,
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(worker)
		}
	}
	return worker, nil
}

// Run processes deliveries until ctx is cancelled or the queue fails.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("followup: worker is nil")
	}
	for {
		delivery, err := w.dequeuer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		_ = w.Handle(ctx, delivery)
	}
}

// ProcessOne dequeues and handles a single delivery.
func (w *Worker) ProcessOne(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("followup: worker is nil")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	return w.Handle(ctx, delivery)
}

// Handle sends one delivery. Success acks. Failures are requeued with
// backoff until MaxAttempts, then dead lettered; input errors and jobs older
// than the token lifetime are dead lettered at once.
func (w *Worker) Handle(ctx context.Context, delivery core.JobDelivery) error {
	if delivery == nil {
		return fmt.Errorf("followup: delivery is required")
	}
	msg := delivery.Message()
	key := attemptKey(msg)
	attempt := w.nextAttempt(key)
	startedAt := time.Now()
	event := core.JobWorkerEvent{Message: msg, Attempt: attempt, StartedAt: startedAt}
	w.onStart(ctx, event)

	job, err := FromMessage(msg)
	decoded := err == nil
	if decoded {
		err = w.checkExpiry(job)
	}
	if err == nil {
		_, err = w.sender.CreateFollowup(ctx, job.ApplicationID, job.Token, job.Reply)
	}
	event.Duration = time.Since(startedAt)
	fields := map[string]any{
		"interaction_id": job.InteractionID,
		"attempt":        attempt,
	}

	if err == nil {
		w.forget(key)
		ackErr := delivery.Ack(ctx)
		w.onSuccess(ctx, event)
		w.observer.ObserveOperation(ctx, startedAt, core.OperationDeliver, ackErr, fields)
		return ackErr
	}

	event.Err = err
	opts := core.JobNackOptions{Reason: err.Error()}
	if !decoded || !retryable(err) || attempt >= w.config.MaxAttempts {
		opts.DeadLetter = true
		w.forget(key)
		w.onFailure(ctx, event)
	} else {
		opts.Requeue = true
		opts.Delay = w.retryDelay(err, attempt)
		event.Delay = opts.Delay
		fields["retry_in_ms"] = opts.Delay.Milliseconds()
		w.onRetry(ctx, event)
	}
	fields["dead_letter"] = opts.DeadLetter

	var nackErr error
	if nacker, ok := delivery.(attemptNacker); ok {
		nackErr = nacker.NackForAttempt(ctx, opts, attempt)
	} else {
		nackErr = delivery.Nack(ctx, opts)
	}
	w.observer.ObserveOperation(ctx, startedAt, core.OperationDeliver, err, fields)
	if nackErr != nil {
		return errors.Join(err, nackErr)
	}
	return err
}

func (w *Worker) checkExpiry(job Job) error {
	if job.EnqueuedAt.IsZero() {
		return nil
	}
	age := w.now().Sub(job.EnqueuedAt)
	if age < w.config.TokenLifetime {
		return nil
	}
	return core.NewError(nil, goerrors.CategoryBadInput, "followup: interaction token expired", http.StatusGone, core.ErrorBadInput, map[string]any{
		"interaction_id": job.InteractionID,
		"age_ms":         age.Milliseconds(),
	})
}

func (w *Worker) retryDelay(err error, attempt int) time.Duration {
	if wait, ok := retryAfter(err); ok {
		if wait > w.config.MaxBackoff {
			return w.config.MaxBackoff
		}
		return wait
	}
	if attempt < 1 {
		attempt = 1
	}
	next := time.Duration(float64(w.config.InitialBackoff) * math.Pow(2, float64(attempt-1)))
	if next <= 0 || next > w.config.MaxBackoff {
		return w.config.MaxBackoff
	}
	return next
}

func (w *Worker) nextAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *Worker) forget(key string) {
	w.mu.Lock()
	delete(w.attempts, key)
	w.mu.Unlock()
}

func (w *Worker) onStart(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnStart(ctx, event)
	}
}

func (w *Worker) onSuccess(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnSuccess(ctx, event)
	}
}

func (w *Worker) onFailure(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnFailure(ctx, event)
	}
}

func (w *Worker) onRetry(ctx context.Context, event core.JobWorkerEvent) {
	if w.hook != nil {
		w.hook.OnRetry(ctx, event)
	}
}

func attemptKey(msg *core.JobExecutionMessage) string {
	if msg == nil {
		return ""
	}
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return key
	}
	return msg.JobID + ":" + stringParam(msg.Parameters, paramToken)
}

// retryable reports whether the counterpart might accept the same request
// later. Rejected input and expired tokens never will.
func retryable(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return true
	}
	switch richErr.Category {
	case goerrors.CategoryBadInput,
		goerrors.CategoryValidation,
		goerrors.CategoryAuth,
		goerrors.CategoryNotFound:
		return false
	default:
		return true
	}
}

func retryAfter(err error) (time.Duration, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.Category != goerrors.CategoryRateLimit {
		return 0, false
	}
	switch typed := richErr.Metadata["retry_after_ms"].(type) {
	case int64:
		return time.Duration(typed) * time.Millisecond, typed > 0
	case int:
		return time.Duration(typed) * time.Millisecond, typed > 0
	case float64:
		return time.Duration(typed * float64(time.Millisecond)), typed > 0
	}
	return 0, false
}
