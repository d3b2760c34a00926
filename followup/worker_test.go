package followup

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
	"github.com/goliatone/go-interactions/rest"
)

type recordingSender struct {
	mu      sync.Mutex
	replies []core.Reply
	tokens  []string
	errs    []error
}

func (s *recordingSender) CreateFollowup(_ context.Context, _ string, token string, reply core.Reply) (rest.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, token)
	s.replies = append(s.replies, reply)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return rest.Message{}, err
		}
	}
	return rest.Message{ID: "m1", Content: reply.Content}, nil
}

type recordingHook struct {
	mu     sync.Mutex
	events []string
	last   core.JobWorkerEvent
}

func (h *recordingHook) record(name string, event core.JobWorkerEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, name)
	h.last = event
}

func (h *recordingHook) OnStart(_ context.Context, event core.JobWorkerEvent) {
	h.record("start", event)
}

func (h *recordingHook) OnSuccess(_ context.Context, event core.JobWorkerEvent) {
	h.record("success", event)
}

func (h *recordingHook) OnFailure(_ context.Context, event core.JobWorkerEvent) {
	h.record("failure", event)
}

func (h *recordingHook) OnRetry(_ context.Context, event core.JobWorkerEvent) {
	h.record("retry", event)
}

type recordingDelivery struct {
	msg    *core.JobExecutionMessage
	acked  bool
	nacked *core.JobNackOptions
}

func (d *recordingDelivery) Message() *core.JobExecutionMessage { return d.msg }

func (d *recordingDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *recordingDelivery) Nack(_ context.Context, opts core.JobNackOptions) error {
	d.nacked = &opts
	return nil
}

func followupMessage(t *testing.T) *core.JobExecutionMessage {
	t.Helper()
	msg, err := Job{
		ApplicationID: "app",
		Token:         "tok",
		InteractionID: "i-1",
		Reply:         core.Reply{ResponseData: core.ResponseData{Content: "done"}},
	}.ToMessage()
	if err != nil {
		t.Fatalf("to message: %v", err)
	}
	return msg
}

func rateLimited(retryAfterMS int64) error {
	return core.NewError(nil, goerrors.CategoryRateLimit, "rate limited", http.StatusTooManyRequests, core.ErrorRateLimited, map[string]any{
		"retry_after_ms": retryAfterMS,
	})
}

func TestWorker_DeliversAndAcks(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	hook := &recordingHook{}
	worker, err := NewWorker(queue, sender, WorkerConfig{}, WithWorkerHook(hook))
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if err := queue.Enqueue(ctx, followupMessage(t)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := worker.ProcessOne(ctx); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(sender.replies) != 1 || sender.replies[0].Content != "done" || sender.tokens[0] != "tok" {
		t.Fatalf("unexpected sends %+v", sender.replies)
	}
	if got := hook.events; len(got) != 2 || got[0] != "start" || got[1] != "success" {
		t.Fatalf("unexpected hook events %v", got)
	}
	if hook.last.Attempt != 1 {
		t.Fatalf("expected first attempt, got %d", hook.last.Attempt)
	}
}

func TestWorker_RateLimitRetriesWithRetryAfter(t *testing.T) {
	sender := &recordingSender{errs: []error{rateLimited(1500)}}
	hook := &recordingHook{}
	worker, err := NewWorker(NewMemoryQueue(1), sender, WorkerConfig{MaxAttempts: 3}, WithWorkerHook(hook))
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	delivery := &recordingDelivery{msg: followupMessage(t)}

	if err := worker.Handle(context.Background(), delivery); err == nil {
		t.Fatalf("expected send error")
	}
	if delivery.acked || delivery.nacked == nil {
		t.Fatalf("expected nack")
	}
	if !delivery.nacked.Requeue || delivery.nacked.DeadLetter {
		t.Fatalf("expected requeue, got %+v", delivery.nacked)
	}
	if delivery.nacked.Delay != 1500*time.Millisecond {
		t.Fatalf("expected retry-after delay, got %s", delivery.nacked.Delay)
	}
	if hook.events[len(hook.events)-1] != "retry" {
		t.Fatalf("expected retry hook, got %v", hook.events)
	}
}

func TestWorker_DeadLettersAfterMaxAttempts(t *testing.T) {
	transient := errors.New("connection reset")
	sender := &recordingSender{errs: []error{transient, transient}}
	worker, err := NewWorker(NewMemoryQueue(1), sender, WorkerConfig{MaxAttempts: 2, InitialBackoff: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	msg := followupMessage(t)

	first := &recordingDelivery{msg: msg}
	_ = worker.Handle(context.Background(), first)
	if first.nacked == nil || !first.nacked.Requeue || first.nacked.Delay != 10*time.Millisecond {
		t.Fatalf("expected first failure to requeue with backoff, got %+v", first.nacked)
	}

	second := &recordingDelivery{msg: msg}
	err = worker.Handle(context.Background(), second)
	if !errors.Is(err, transient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if second.nacked == nil || !second.nacked.DeadLetter {
		t.Fatalf("expected dead letter on last attempt, got %+v", second.nacked)
	}
}

func TestWorker_BadInputIsNotRetried(t *testing.T) {
	rejected := core.NewError(nil, goerrors.CategoryAuth, "unknown webhook", http.StatusUnauthorized, core.ErrorUnauthorized, nil)
	sender := &recordingSender{errs: []error{rejected}}
	worker, err := NewWorker(NewMemoryQueue(1), sender, WorkerConfig{MaxAttempts: 5})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	delivery := &recordingDelivery{msg: followupMessage(t)}
	_ = worker.Handle(context.Background(), delivery)
	if delivery.nacked == nil || !delivery.nacked.DeadLetter {
		t.Fatalf("expected dead letter, got %+v", delivery.nacked)
	}

	undecodable := &recordingDelivery{msg: &core.JobExecutionMessage{JobID: "other"}}
	_ = worker.Handle(context.Background(), undecodable)
	if undecodable.nacked == nil || !undecodable.nacked.DeadLetter {
		t.Fatalf("expected undecodable message to be dead lettered")
	}
	if len(sender.replies) != 1 {
		t.Fatalf("expected undecodable message not to be sent")
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	queue := NewMemoryQueue(4)
	sender := &recordingSender{}
	worker, err := NewWorker(queue, sender, WorkerConfig{})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := queue.Enqueue(ctx, followupMessage(t)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		sender.mu.Lock()
		sent := len(sender.replies)
		sender.mu.Unlock()
		if sent == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for delivery")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

func TestScheduler_DeferQueuesReply(t *testing.T) {
	queue := NewMemoryQueue(4)
	scheduler, err := NewScheduler(queue)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	interaction := core.Interaction{ID: "i-9", ApplicationID: "app", Token: "tok", Type: core.InteractionTypeApplicationCommand}

	response, err := scheduler.DeferWait(context.Background(), interaction, true, func(context.Context) (core.Reply, error) {
		return core.Reply{ResponseData: core.ResponseData{Content: "slow answer"}}, nil
	})
	if err != nil {
		t.Fatalf("defer: %v", err)
	}
	if response.Envelope.Type != core.ResponseTypeDeferredChannelMessageWithSource {
		t.Fatalf("expected deferred response type, got %d", response.Envelope.Type)
	}
	data, ok := response.Envelope.MessageData()
	if !ok || !data.Flags.Has(core.MessageFlagEphemeral) {
		t.Fatalf("expected ephemeral deferred ack")
	}

	delivery, err := queue.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	job, err := FromMessage(delivery.Message())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Reply.Content != "slow answer" || !job.Reply.Flags.Has(core.MessageFlagEphemeral) {
		t.Fatalf("unexpected queued reply %+v", job.Reply)
	}
}

func TestScheduler_FailingReplyQueuesErrorMessage(t *testing.T) {
	queue := NewMemoryQueue(4)
	scheduler, err := NewScheduler(queue, WithErrorMessage("could not finish"))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	interaction := core.Interaction{ID: "i-10", ApplicationID: "app", Token: "tok"}

	_, err = scheduler.DeferWait(context.Background(), interaction, false, func(context.Context) (core.Reply, error) {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("defer: %v", err)
	}
	delivery, err := queue.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	job, err := FromMessage(delivery.Message())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Reply.Content != "could not finish" || !job.Reply.Flags.Has(core.MessageFlagEphemeral) {
		t.Fatalf("expected ephemeral error follow-up, got %+v", job.Reply)
	}
}

func TestScheduler_DeferRunsInBackground(t *testing.T) {
	queue := NewMemoryQueue(4)
	scheduler, err := NewScheduler(queue)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	response := scheduler.Defer(ctx, core.Interaction{ID: "i-11", ApplicationID: "app", Token: "tok"}, false, func(ctx context.Context) (core.Reply, error) {
		<-release
		return core.Reply{ResponseData: core.ResponseData{Content: "later"}}, ctx.Err()
	})
	if response.Envelope.Type != core.ResponseTypeDeferredChannelMessageWithSource {
		t.Fatalf("expected deferred response")
	}
	cancel()
	close(release)

	waitCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	delivery, err := queue.Dequeue(waitCtx)
	if err != nil {
		t.Fatalf("expected queued follow-up: %v", err)
	}
	job, err := FromMessage(delivery.Message())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Reply.Content != "later" {
		t.Fatalf("expected request cancellation not to reach the reply func, got %+v", job.Reply)
	}
}

func TestWorker_DeadLettersExpiredJobsWithoutSending(t *testing.T) {
	enqueuedAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	now := enqueuedAt.Add(TokenLifetime)
	msg, err := Job{
		ApplicationID: "app",
		Token:         "tok",
		InteractionID: "i-2",
		Reply:         core.Reply{ResponseData: core.ResponseData{Content: "too late"}},
		EnqueuedAt:    enqueuedAt,
	}.ToMessage()
	if err != nil {
		t.Fatalf("to message: %v", err)
	}

	sender := &recordingSender{}
	hook := &recordingHook{}
	worker, err := NewWorker(NewMemoryQueue(1), sender, WorkerConfig{MaxAttempts: 5},
		WithWorkerHook(hook),
		WithWorkerClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	delivery := &recordingDelivery{msg: msg}
	err = worker.Handle(context.Background(), delivery)
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Code != http.StatusGone {
		t.Fatalf("expected expired token error, got %v", err)
	}
	if len(sender.replies) != 0 {
		t.Fatalf("expired jobs must not be sent, got %d sends", len(sender.replies))
	}
	if delivery.nacked == nil || !delivery.nacked.DeadLetter || delivery.nacked.Requeue {
		t.Fatalf("expected dead letter, got %+v", delivery.nacked)
	}
	if hook.events[len(hook.events)-1] != "failure" {
		t.Fatalf("expected failure hook, got %v", hook.events)
	}

	now = enqueuedAt.Add(TokenLifetime - time.Second)
	fresh := &recordingDelivery{msg: msg}
	if err := worker.Handle(context.Background(), fresh); err != nil {
		t.Fatalf("expected job inside the lifetime to send: %v", err)
	}
	if !fresh.acked || len(sender.replies) != 1 {
		t.Fatalf("expected delivery before expiry")
	}
}
