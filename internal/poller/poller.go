// Package poller tracks a batch of video generation tasks by polling the
// backend's batch status endpoint until every task is terminal.
//
// A Session owns its batch. One goroutine issues requests strictly one after
// another: the first immediately, each later one a full interval after the
// previous response. Results are merged into the batch with
// task.TaskBatch.Reconcile; failed requests leave the batch untouched.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/taleyport/internal/errors"
	"github.com/felixgeelhaar/taleyport/internal/log"
	"github.com/felixgeelhaar/taleyport/internal/metrics"
	"github.com/felixgeelhaar/taleyport/internal/task"
	"github.com/felixgeelhaar/taleyport/internal/telemetry"
)

var (
	// ErrStopped is returned by Session.Err after Stop ended the session.
	ErrStopped = errors.New(errors.ErrCodePollStopped, "polling stopped")

	// ErrMaxAttempts is returned by Session.Err when the attempt cap was hit
	// before every task finished.
	ErrMaxAttempts = errors.New(errors.ErrCodePollMaxAttempts, "gave up before all videos finished").
			WithSuggestion("Resume later with 'taleyport watch --resume <session-id>'")
)

// Fetcher resolves the current status of a batch.
type Fetcher interface {
	FetchStatus(ctx context.Context, storyID string, tasks []task.SceneTask) ([]task.StatusUpdate, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, storyID string, tasks []task.SceneTask) ([]task.StatusUpdate, error)

// FetchStatus calls f.
func (f FetcherFunc) FetchStatus(ctx context.Context, storyID string, tasks []task.SceneTask) ([]task.StatusUpdate, error) {
	return f(ctx, storyID, tasks)
}

// Event is published after every poll.
type Event struct {
	// Batch is a snapshot taken right after the poll was applied.
	Batch task.TaskBatch
	// Attempt is the 1-based request number.
	Attempt int
	// Changed is the number of tasks the poll updated.
	Changed int
	// Err is the poll error, if the request failed.
	Err error
	// Done is set once every task is terminal.
	Done bool
}

// Poller starts poll sessions.
type Poller struct {
	fetcher Fetcher
	policy  Policy
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option configures a Poller.
type Option func(*Poller)

// WithPolicy replaces the default policy.
func WithPolicy(p Policy) Option {
	return func(pl *Poller) {
		pl.policy = p
	}
}

// WithInterval sets the fixed poll interval.
func WithInterval(d time.Duration) Option {
	return func(pl *Poller) {
		pl.policy.Interval = d
	}
}

// WithMaxAttempts caps the number of requests per session.
func WithMaxAttempts(n int) Option {
	return func(pl *Poller) {
		pl.policy.MaxAttempts = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(pl *Poller) {
		if l != nil {
			pl.logger = l
		}
	}
}

// WithMetrics records poll metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(pl *Poller) {
		pl.metrics = m
	}
}

// New creates a Poller.
func New(fetcher Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		policy:  DefaultPolicy(),
		logger:  log.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.policy.Interval <= 0 {
		p.policy.Interval = DefaultInterval
	}
	if p.policy.BackoffMultiplier < 1.0 {
		p.policy.BackoffMultiplier = 1.0
	}
	return p
}

// Policy returns the effective policy.
func (p *Poller) Policy() Policy {
	return p.policy
}

// Start begins polling batch and returns its session. The session takes
// ownership of batch; callers read it through Session.Snapshot.
//
// An empty batch, or one whose tasks are all terminal already, ends the
// session immediately without any request.
func (p *Poller) Start(ctx context.Context, batch *task.TaskBatch) *Session {
	if batch == nil {
		batch = &task.TaskBatch{}
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		poller:  p,
		parent:  ctx,
		cancel:  cancel,
		batch:   batch,
		done:    make(chan struct{}),
		updates: make(chan Event, 1),
	}
	s.alive.Store(true)

	if len(batch.Tasks) == 0 || batch.Done() {
		s.finish(nil)
		return s
	}

	if p.metrics != nil {
		p.metrics.ActivePolls.Inc()
		s.tracked = true
	}
	go s.run(sctx)
	return s
}

// Session is one running poll loop over a batch.
type Session struct {
	poller *Poller
	parent context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	batch    *task.TaskBatch
	attempts int
	err      error

	tracked  bool
	alive    atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once

	done    chan struct{}
	updates chan Event
}

// Stop cancels the pending timer and any in-flight request and waits for
// the loop to exit. Responses that arrive afterwards are discarded. Stop is
// idempotent and a no-op once the session has ended. It must not be called
// from inside Fetcher.FetchStatus.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.alive.Store(false)
		s.cancel()
	})
	<-s.done
}

// Done is closed when the loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends or ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports why the loop ended: nil when every task is terminal,
// ErrStopped, ErrMaxAttempts or the parent context's error. It is nil while
// the session is running.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Snapshot returns a deep copy of the batch.
func (s *Session) Snapshot() task.TaskBatch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batch.Clone()
}

// Attempts returns the number of status requests issued so far.
func (s *Session) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

// Updates delivers an Event after every poll. Only the latest event is
// buffered; a slow reader skips intermediate ones. The channel is closed
// when the session ends.
func (s *Session) Updates() <-chan Event {
	return s.updates
}

func (s *Session) run(ctx context.Context) {
	p := s.poller
	interval := p.policy.Interval
	for {
		ev, ok := s.poll(ctx)
		if !ok {
			s.finish(s.cancelReason())
			return
		}
		s.publish(ev)

		if ev.Done {
			p.logger.Info("all tasks finished", "story_id", ev.Batch.StoryID, "attempts", ev.Attempt)
			s.finish(nil)
			return
		}

		if p.policy.MaxAttempts > 0 && ev.Attempt >= p.policy.MaxAttempts {
			p.logger.Warn("poll attempts exhausted", "story_id", ev.Batch.StoryID, "attempts", ev.Attempt)
			s.finish(ErrMaxAttempts)
			return
		}

		interval = p.policy.next(interval, ev.Err)
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.finish(s.cancelReason())
			return
		case <-timer.C:
		}
	}
}

// poll issues one request and applies its result. It returns false when the
// session died while the request was in flight.
func (s *Session) poll(ctx context.Context) (Event, bool) {
	p := s.poller

	s.mu.Lock()
	s.attempts++
	attempt := s.attempts
	req := s.batch.Clone()
	before := s.batch.Counts()
	s.mu.Unlock()

	ctx, span := telemetry.StartPollSpan(ctx, req.StoryID, attempt, len(req.Tasks)-before.Terminal())
	defer span.End()

	start := time.Now()
	updates, err := p.fetcher.FetchStatus(ctx, req.StoryID, req.Tasks)
	elapsed := time.Since(start)
	telemetry.RecordDuration(span, "fetch", elapsed)

	if !s.alive.Load() || ctx.Err() != nil {
		return Event{}, false
	}

	s.mu.Lock()
	changed := 0
	if err == nil {
		changed = s.batch.Reconcile(updates)
	}
	snap := s.batch.Clone()
	s.mu.Unlock()

	after := snap.Counts()
	if err != nil {
		code, _ := errors.CodeOf(err)
		if code == "" {
			code = "UNKNOWN"
		}
		p.metrics.ObservePoll(elapsed, string(code))
		telemetry.RecordError(span, err)
		p.logger.WithAttempt(attempt).WithError(err).Warn("task status poll failed", "story_id", req.StoryID)
	} else {
		p.metrics.ObservePoll(elapsed, "")
		telemetry.RecordSuccess(span, attribute.Int("changed_tasks", changed))
		p.logger.WithAttempt(attempt).Debug("task status poll",
			"story_id", req.StoryID,
			"changed", changed,
			"progress", after.String(),
		)
	}
	for i := before.Completed; i < after.Completed; i++ {
		p.metrics.ObserveTerminal(string(task.StatusCompleted))
	}
	for i := before.Failed; i < after.Failed; i++ {
		p.metrics.ObserveTerminal(string(task.StatusFailed))
	}

	return Event{
		Batch:   snap,
		Attempt: attempt,
		Changed: changed,
		Err:     err,
		Done:    snap.Done(),
	}, true
}

// publish delivers ev, replacing an unread older event.
func (s *Session) publish(ev Event) {
	for {
		select {
		case s.updates <- ev:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *Session) cancelReason() error {
	if s.stopped.Load() {
		return ErrStopped
	}
	if err := s.parent.Err(); err != nil {
		return err
	}
	return ErrStopped
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()

	s.alive.Store(false)
	s.cancel()
	if s.tracked {
		s.poller.metrics.ActivePolls.Dec()
	}
	close(s.updates)
	close(s.done)
}
