package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/model"
)

// fakeFetcher replays a scripted status sequence per task; the last status
// repeats once the script is exhausted.
type fakeFetcher struct {
	mu     sync.Mutex
	script map[string][]model.TaskStatus
	errs   map[string]error
	calls  map[string]int
}

var _ StatusFetcher = (*fakeFetcher)(nil)

func newFake(script map[string][]model.TaskStatus) *fakeFetcher {
	return &fakeFetcher{script: script, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeFetcher) TaskStatus(_ context.Context, id string) (model.TaskStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls[id]
	f.calls[id]++
	if err := f.errs[id]; err != nil {
		return "", err
	}
	s := f.script[id]
	if n >= len(s) {
		return s[len(s)-1], nil
	}
	return s[n], nil
}

func (f *fakeFetcher) count(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestPoll_LifecycleStopsAtTerminal(t *testing.T) {
	t.Parallel()
	f := newFake(map[string][]model.TaskStatus{
		"a": {model.TaskPending, model.TaskStarted, model.TaskSuccess},
		"b": {model.TaskFailure},
	})
	var success []string
	p := New(f, Options{OnSuccess: func(t model.UploadTask) { success = append(success, t.TaskID) }})
	p.Track(model.UploadTask{TaskID: "a", Filename: "a.pdf"})
	p.Track(model.UploadTask{TaskID: "b", Filename: "b.pdf"})

	snap := p.Snapshot()
	require.Equal(t, "b", snap[0].TaskID, "newest first")
	require.Equal(t, model.TaskPending, snap[1].Status)

	ctx := context.Background()
	changed, err := p.Poll(ctx)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 1, p.Active())

	for i := 0; i < 5; i++ {
		_, err = p.Poll(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 0, p.Active())
	require.Equal(t, 3, f.count("a"))
	require.Equal(t, 1, f.count("b"))
	require.Equal(t, []string{"a"}, success)

	changed, err = p.Poll(ctx)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 3, f.count("a"))
}

func TestPoll_ErrorKeepsTaskActive(t *testing.T) {
	t.Parallel()
	f := newFake(map[string][]model.TaskStatus{"a": {model.TaskSuccess}})
	f.errs["a"] = errors.New("boom")
	p := New(f, Options{})
	p.Track(model.UploadTask{TaskID: "a"})

	changed, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 1, p.Active())
}

func TestPoll_UnauthorizedAborts(t *testing.T) {
	t.Parallel()
	f := newFake(map[string][]model.TaskStatus{"a": {model.TaskPending}})
	f.errs["a"] = errs.ErrUnauthorized
	p := New(f, Options{Interval: time.Millisecond})
	p.Track(model.UploadTask{TaskID: "a"})

	err := p.Run(context.Background())
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestPoll_MaxAttempts(t *testing.T) {
	t.Parallel()
	f := newFake(map[string][]model.TaskStatus{"a": {model.TaskStarted}})
	p := New(f, Options{MaxAttempts: 2})
	p.Track(model.UploadTask{TaskID: "a"})

	ctx := context.Background()
	_, _ = p.Poll(ctx)
	_, _ = p.Poll(ctx)
	got := p.Snapshot()[0]
	require.Equal(t, model.TaskFailure, got.Status)
	require.Contains(t, got.Note, "2 status checks")

	_, _ = p.Poll(ctx)
	require.Equal(t, 2, f.count("a"))
}

func TestRun_StopWhenIdle(t *testing.T) {
	t.Parallel()
	f := newFake(map[string][]model.TaskStatus{"a": {model.TaskStarted, model.TaskSuccess}})
	var mu sync.Mutex
	var changes int
	p := New(f, Options{
		Interval:     time.Millisecond,
		MaxInterval:  5 * time.Millisecond,
		StopWhenIdle: true,
		OnChange: func([]model.UploadTask) {
			mu.Lock()
			changes++
			mu.Unlock()
		},
	})
	p.Track(model.UploadTask{TaskID: "a"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	require.Equal(t, model.TaskSuccess, p.Snapshot()[0].Status)
	mu.Lock()
	require.Equal(t, 3, changes)
	mu.Unlock()
}

func TestRun_Cancel(t *testing.T) {
	t.Parallel()
	f := newFake(map[string][]model.TaskStatus{"a": {model.TaskPending}})
	p := New(f, Options{Interval: time.Millisecond, MaxInterval: 2 * time.Millisecond})
	p.Track(model.UploadTask{TaskID: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return f.count("a") >= 3 }, 2*time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBackoffCapped(t *testing.T) {
	t.Parallel()
	p := New(newFake(nil), Options{Interval: 10 * time.Millisecond, MaxInterval: 35 * time.Millisecond})
	b := p.backoff()
	var got []time.Duration
	for i := 0; i < 4; i++ {
		d, stop := b.Next()
		require.False(t, stop)
		got = append(got, d)
	}
	require.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond, 35 * time.Millisecond}, got)
}
