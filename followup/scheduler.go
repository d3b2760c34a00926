package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-interactions/core"
)

// ReplyFunc produces the follow-up content after the interaction was
// acknowledged.
type ReplyFunc func(ctx context.Context) (core.Reply, error)

// Scheduler acknowledges interactions with a deferred response and queues
// the real reply once it is ready.
type Scheduler struct {
	enqueuer core.JobEnqueuer
	observer *core.Observer
	timeout  time.Duration
	errorMsg string
}

type SchedulerOption func(*Scheduler)

func WithSchedulerObserver(observer *core.Observer) SchedulerOption {
	return func(s *Scheduler) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithTimeout bounds how long a ReplyFunc may run. Interaction tokens expire
// after fifteen minutes, so longer values are clamped.
func WithTimeout(timeout time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if timeout > 0 && timeout < TokenLifetime {
			s.timeout = timeout
		}
	}
}

// WithErrorMessage sets the ephemeral follow-up sent when a ReplyFunc fails.
func WithErrorMessage(message string) SchedulerOption {
	return func(s *Scheduler) {
		if trimmed := strings.TrimSpace(message); trimmed != "" {
			s.errorMsg = trimmed
		}
	}
}

// TokenLifetime is how long an interaction token accepts follow-ups.
const TokenLifetime = 15 * time.Minute

func NewScheduler(enqueuer core.JobEnqueuer, opts ...SchedulerOption) (*Scheduler, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("followup: enqueuer is required")
	}
	scheduler := &Scheduler{
		enqueuer: enqueuer,
		observer: core.NewObserver("interactions.followup", nil, nil),
		timeout:  time.Minute,
		errorMsg: "Something went wrong while preparing this reply.",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(scheduler)
		}
	}
	return scheduler, nil
}

// Defer returns the deferred acknowledgement for interaction and runs fn in
// the background. The result is queued as a follow-up; a failing fn queues
// an ephemeral error message instead.
func (s *Scheduler) Defer(ctx context.Context, interaction core.Interaction, ephemeral bool, fn ReplyFunc) core.Response {
	go func() {
		_ = s.run(context.WithoutCancel(ctx), interaction, ephemeral, fn)
	}()
	return core.Defer(ephemeral)
}

// DeferWait is Defer for callers that need to know when the follow-up was
// queued, such as tests and one-shot CLIs.
func (s *Scheduler) DeferWait(ctx context.Context, interaction core.Interaction, ephemeral bool, fn ReplyFunc) (core.Response, error) {
	return core.Defer(ephemeral), s.run(ctx, interaction, ephemeral, fn)
}

func (s *Scheduler) run(ctx context.Context, interaction core.Interaction, ephemeral bool, fn ReplyFunc) (err error) {
	if s == nil || s.enqueuer == nil {
		return fmt.Errorf("followup: scheduler is not configured")
	}
	startedAt := time.Now()
	fields := map[string]any{
		"interaction_id":   interaction.ID,
		"interaction_type": interaction.Type.String(),
	}
	defer func() {
		s.observer.ObserveOperation(ctx, startedAt, core.OperationSchedule, err, fields)
	}()
	if fn == nil {
		return fmt.Errorf("followup: reply func is required")
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, fnErr := s.produce(runCtx, fn)
	if fnErr != nil {
		fields["reply_error"] = fnErr.Error()
		reply = core.Reply{
			ResponseData: core.ResponseData{Content: s.errorMsg},
			Ephemeral:    true,
		}
	} else if ephemeral {
		reply.Ephemeral = true
	}

	msg, err := Job{
		ApplicationID: interaction.ApplicationID,
		Token:         interaction.Token,
		InteractionID: interaction.ID,
		Reply:         reply,
		EnqueuedAt:    startedAt,
	}.ToMessage()
	if err != nil {
		return err
	}
	return s.enqueuer.Enqueue(ctx, msg)
}

func (s *Scheduler) produce(ctx context.Context, fn ReplyFunc) (reply core.Reply, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("followup: reply func panicked: %v", recovered)
		}
	}()
	return fn(ctx)
}
