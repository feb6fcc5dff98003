package poller

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taleyport/internal/log"
	"github.com/felixgeelhaar/taleyport/internal/metrics"
	"github.com/felixgeelhaar/taleyport/internal/task"
)

const (
	testInterval = 5 * time.Millisecond
	waitTimeout  = 2 * time.Second
)

type response struct {
	updates []task.StatusUpdate
	err     error
}

// scriptedFetcher answers the n-th request with script[n]; once the script
// is exhausted it repeats the last entry.
type scriptedFetcher struct {
	mu       sync.Mutex
	script   []response
	requests [][]task.SceneTask
	stories  []string
}

func (f *scriptedFetcher) FetchStatus(_ context.Context, storyID string, tasks []task.SceneTask) ([]task.StatusUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, tasks)
	f.stories = append(f.stories, storyID)

	i := len(f.requests) - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	if i < 0 {
		return nil, nil
	}
	return f.script[i].updates, f.script[i].err
}

func (f *scriptedFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newBatch(t *testing.T, scenes ...string) *task.TaskBatch {
	t.Helper()
	tasks := make([]task.SceneTask, 0, len(scenes))
	for _, s := range scenes {
		tasks = append(tasks, task.SceneTask{SceneID: s, TaskID: "t" + s, Status: task.StatusPending})
	}
	b, err := task.NewBatch("story-1", tasks)
	require.NoError(t, err)
	return b
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: log.LevelError, Output: &bytes.Buffer{}})
}

func newTestPoller(f Fetcher, opts ...Option) *Poller {
	base := []Option{WithInterval(testInterval), WithLogger(quietLogger())}
	return New(f, append(base, opts...)...)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session did not finish in time")
	}
}

func upd(scene string, status task.Status, url string) task.StatusUpdate {
	return task.StatusUpdate{SceneID: scene, Status: status, VideoURL: url}
}

func TestEmptyBatchEndsImmediately(t *testing.T) {
	f := &scriptedFetcher{}
	s := newTestPoller(f).Start(context.Background(), &task.TaskBatch{StoryID: "story-1"})

	waitDone(t, s)
	assert.NoError(t, s.Err())
	assert.Equal(t, 0, s.Attempts())
	assert.Equal(t, 0, f.calls())

	_, open := <-s.Updates()
	assert.False(t, open, "updates channel should be closed")
}

func TestAlreadyTerminalBatchEndsImmediately(t *testing.T) {
	b := newBatch(t, "1")
	b.Reconcile([]task.StatusUpdate{upd("1", task.StatusCompleted, "v1")})

	f := &scriptedFetcher{}
	s := newTestPoller(f).Start(context.Background(), b)

	waitDone(t, s)
	assert.NoError(t, s.Err())
	assert.Equal(t, 0, f.calls())
}

func TestFirstPollIsImmediate(t *testing.T) {
	f := &scriptedFetcher{script: []response{{updates: nil}}}
	s := New(f, WithInterval(time.Hour), WithLogger(quietLogger())).Start(context.Background(), newBatch(t, "1"))
	defer s.Stop()

	require.Eventually(t, func() bool { return f.calls() == 1 }, waitTimeout, time.Millisecond)
}

func TestPollsUntilAllTerminal(t *testing.T) {
	f := &scriptedFetcher{script: []response{
		{updates: []task.StatusUpdate{upd("1", task.StatusPending, ""), upd("2", task.StatusPending, ""), upd("3", task.StatusPending, "")}},
		{updates: []task.StatusUpdate{upd("1", task.StatusCompleted, "v1")}},
		{updates: []task.StatusUpdate{upd("2", task.StatusCompleted, "v2"), upd("3", task.StatusCompleted, "v3")}},
	}}

	s := newTestPoller(f).Start(context.Background(), newBatch(t, "1", "2", "3"))
	waitDone(t, s)

	assert.NoError(t, s.Err())
	assert.Equal(t, 3, f.calls())
	assert.Equal(t, 3, s.Attempts())

	snap := s.Snapshot()
	assert.True(t, snap.Done())
	assert.Equal(t, []string{"v1", "v2", "v3"}, snap.VideoURLs())

	time.Sleep(5 * testInterval)
	assert.Equal(t, 3, f.calls(), "no request after all tasks are terminal")

	s.Stop()
	assert.NoError(t, s.Err(), "Stop after completion is a no-op")
}

func TestRequestCarriesCurrentBatch(t *testing.T) {
	f := &scriptedFetcher{script: []response{
		{updates: []task.StatusUpdate{upd("1", task.StatusProcessing, "")}},
		{updates: []task.StatusUpdate{upd("1", task.StatusCompleted, "v1")}},
	}}

	s := newTestPoller(f).Start(context.Background(), newBatch(t, "1"))
	waitDone(t, s)

	require.Equal(t, 2, f.calls())
	assert.Equal(t, task.StatusPending, f.requests[0][0].Status)
	assert.Equal(t, task.StatusProcessing, f.requests[1][0].Status)
	assert.Equal(t, "t1", f.requests[1][0].TaskID)
	assert.Equal(t, []string{"story-1", "story-1"}, f.stories)
}

func TestSubsetUpdateTouchesOnlyMatchingTasks(t *testing.T) {
	f := &scriptedFetcher{script: []response{
		{updates: []task.StatusUpdate{upd("2", task.StatusProcessing, ""), upd("99", task.StatusCompleted, "x")}},
	}}

	s := New(f, WithInterval(time.Hour), WithLogger(quietLogger())).Start(context.Background(), newBatch(t, "1", "2", "3"))
	defer s.Stop()

	ev := <-s.Updates()
	assert.Equal(t, 1, ev.Attempt)
	assert.Equal(t, 1, ev.Changed)
	assert.False(t, ev.Done)
	require.Len(t, ev.Batch.Tasks, 3)
	assert.Equal(t, task.StatusPending, ev.Batch.Tasks[0].Status)
	assert.Equal(t, task.StatusProcessing, ev.Batch.Tasks[1].Status)
	assert.Equal(t, task.StatusPending, ev.Batch.Tasks[2].Status)
}

func TestPollErrorLeavesStateAndContinues(t *testing.T) {
	f := &scriptedFetcher{script: []response{
		{err: errors.New("connection refused")},
		{updates: []task.StatusUpdate{upd("1", task.StatusCompleted, "v1")}},
	}}

	s := newTestPoller(f).Start(context.Background(), newBatch(t, "1"))

	var events []Event
	for ev := range s.Updates() {
		events = append(events, ev)
	}
	waitDone(t, s)

	assert.NoError(t, s.Err())
	assert.Equal(t, 2, f.calls())
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.Done)
	assert.Equal(t, 2, last.Attempt)
}

func TestFailedPollEventKeepsBatch(t *testing.T) {
	f := &scriptedFetcher{script: []response{{err: errors.New("timeout")}}}

	s := New(f, WithInterval(time.Hour), WithLogger(quietLogger())).Start(context.Background(), newBatch(t, "1"))
	defer s.Stop()

	ev := <-s.Updates()
	assert.EqualError(t, ev.Err, "timeout")
	assert.Equal(t, 0, ev.Changed)
	assert.Equal(t, task.StatusPending, ev.Batch.Tasks[0].Status)
	assert.Equal(t, task.StatusPending, s.Snapshot().Tasks[0].Status)
}

func TestFailedStatusIsTerminal(t *testing.T) {
	f := &scriptedFetcher{script: []response{
		{updates: []task.StatusUpdate{upd("1", task.StatusCompleted, "v1"), upd("2", "error", "")}},
	}}

	s := newTestPoller(f).Start(context.Background(), newBatch(t, "1", "2"))
	waitDone(t, s)

	assert.NoError(t, s.Err())
	assert.Equal(t, 1, f.calls())
	assert.Equal(t, task.StatusFailed, s.Snapshot().Tasks[1].Status)
}

func TestStopDuringWait(t *testing.T) {
	f := &scriptedFetcher{script: []response{{updates: nil}}}

	s := New(f, WithInterval(time.Hour), WithLogger(quietLogger())).Start(context.Background(), newBatch(t, "1"))
	require.Eventually(t, func() bool { return s.Attempts() == 1 }, waitTimeout, time.Millisecond)

	s.Stop()
	s.Stop()

	assert.ErrorIs(t, s.Err(), ErrStopped)
	assert.Equal(t, 1, f.calls())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after Stop returns")
	}
}

func TestStopPreventsFurtherRequests(t *testing.T) {
	f := &scriptedFetcher{script: []response{{updates: nil}}}

	s := newTestPoller(f).Start(context.Background(), newBatch(t, "1", "2"))
	require.Eventually(t, func() bool { return f.calls() >= 2 }, waitTimeout, time.Millisecond)

	s.Stop()
	n := f.calls()
	time.Sleep(10 * testInterval)
	assert.Equal(t, n, f.calls())
}

func TestLateResponseAfterStopIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	// Ignores ctx to simulate a response that arrives after cancellation.
	fetcher := FetcherFunc(func(context.Context, string, []task.SceneTask) ([]task.StatusUpdate, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return []task.StatusUpdate{upd("1", task.StatusCompleted, "late")}, nil
	})

	s := newTestPoller(fetcher).Start(context.Background(), newBatch(t, "1"))
	<-started

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	require.Eventually(t, s.stopped.Load, waitTimeout, time.Millisecond)
	close(release)

	select {
	case <-stopped:
	case <-time.After(waitTimeout):
		t.Fatal("Stop did not return")
	}

	snap := s.Snapshot()
	assert.Equal(t, task.StatusPending, snap.Tasks[0].Status)
	assert.Empty(t, snap.Tasks[0].VideoURL)
	assert.ErrorIs(t, s.Err(), ErrStopped)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestParentContextCancel(t *testing.T) {
	f := &scriptedFetcher{script: []response{{updates: nil}}}
	ctx, cancel := context.WithCancel(context.Background())

	s := New(f, WithInterval(time.Hour), WithLogger(quietLogger())).Start(ctx, newBatch(t, "1"))
	require.Eventually(t, func() bool { return s.Attempts() == 1 }, waitTimeout, time.Millisecond)

	cancel()
	waitDone(t, s)
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

func TestMaxAttempts(t *testing.T) {
	f := &scriptedFetcher{script: []response{{updates: []task.StatusUpdate{upd("1", task.StatusProcessing, "")}}}}

	s := newTestPoller(f, WithMaxAttempts(3)).Start(context.Background(), newBatch(t, "1"))
	waitDone(t, s)

	assert.ErrorIs(t, s.Err(), ErrMaxAttempts)
	assert.Equal(t, 3, f.calls())
	assert.Equal(t, task.StatusProcessing, s.Snapshot().Tasks[0].Status)
}

func TestSnapshotIsACopy(t *testing.T) {
	f := &scriptedFetcher{script: []response{{updates: nil}}}
	s := New(f, WithInterval(time.Hour), WithLogger(quietLogger())).Start(context.Background(), newBatch(t, "1"))
	defer s.Stop()

	snap := s.Snapshot()
	snap.Tasks[0].Status = task.StatusCompleted
	assert.Equal(t, task.StatusPending, s.Snapshot().Tasks[0].Status)
}

func TestUpdatesKeepsLatestEvent(t *testing.T) {
	f := &scriptedFetcher{script: []response{
		{updates: []task.StatusUpdate{upd("1", task.StatusProcessing, "")}},
		{updates: []task.StatusUpdate{upd("1", task.StatusProcessing, "")}},
		{updates: []task.StatusUpdate{upd("1", task.StatusCompleted, "v1")}},
	}}

	s := newTestPoller(f).Start(context.Background(), newBatch(t, "1"))
	waitDone(t, s)

	ev, ok := <-s.Updates()
	require.True(t, ok, "the final event stays buffered")
	assert.Equal(t, 3, ev.Attempt)
	assert.True(t, ev.Done)

	_, ok = <-s.Updates()
	assert.False(t, ok)
}

func TestWait(t *testing.T) {
	f := &scriptedFetcher{script: []response{{updates: []task.StatusUpdate{upd("1", task.StatusCompleted, "v1")}}}}
	s := newTestPoller(f).Start(context.Background(), newBatch(t, "1"))

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	assert.NoError(t, s.Wait(ctx))
}

func TestPollMetrics(t *testing.T) {
	f := &scriptedFetcher{script: []response{
		{err: errors.New("boom")},
		{updates: []task.StatusUpdate{upd("1", task.StatusCompleted, "v1"), upd("2", task.StatusFailed, "")}},
	}}
	_, m := metrics.NewRegistry()

	s := newTestPoller(f, WithMetrics(m)).Start(context.Background(), newBatch(t, "1", "2"))
	waitDone(t, s)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollRequests.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollRequests.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollErrors.WithLabelValues("UNKNOWN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTerminal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTerminal.WithLabelValues("failed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ActivePolls))
}

// slowFetcher takes fetchTime per request and completes the batch on the
// third one.
type slowFetcher struct {
	mu        sync.Mutex
	fetchTime time.Duration
	starts    []time.Time
}

func (f *slowFetcher) FetchStatus(ctx context.Context, _ string, tasks []task.SceneTask) ([]task.StatusUpdate, error) {
	f.mu.Lock()
	f.starts = append(f.starts, time.Now())
	n := len(f.starts)
	f.mu.Unlock()

	select {
	case <-time.After(f.fetchTime):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if n < 3 {
		return nil, nil
	}
	out := make([]task.StatusUpdate, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, upd(t.SceneID, task.StatusCompleted, "v"+t.SceneID))
	}
	return out, nil
}

func TestIntervalStartsAfterResponse(t *testing.T) {
	const interval = 20 * time.Millisecond
	f := &slowFetcher{fetchTime: interval}
	s := newTestPoller(f, WithInterval(interval)).Start(context.Background(), newBatch(t, "1"))

	waitDone(t, s)
	require.NoError(t, s.Err())

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.starts, 3)
	for i := 1; i < len(f.starts); i++ {
		gap := f.starts[i].Sub(f.starts[i-1])
		assert.GreaterOrEqual(t, gap, f.fetchTime+interval, "request %d started %v after the previous one", i+1, gap)
	}
}
