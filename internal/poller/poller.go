// Package poller tracks upload ingestion tasks until they reach a terminal
// state.
//
// A Poller owns its task list. Run checks every active task each round and
// overwrites its status in place; SUCCESS and FAILURE are never polled again.
// While rounds observe no change the interval grows up to a cap, and any change
// or newly tracked task resets it. Run ends with its context, on 401, or when
// StopWhenIdle is set and nothing is active.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/and161185/fastcite/internal/errs"
	"github.com/and161185/fastcite/internal/model"
)

// StatusFetcher reads the current status of one task.
type StatusFetcher interface {
	TaskStatus(ctx context.Context, taskID string) (model.TaskStatus, error)
}

// Options tune a Poller. Zero values select defaults.
type Options struct {
	Interval     time.Duration
	MaxInterval  time.Duration
	MaxAttempts  int
	StopWhenIdle bool
	OnSuccess    func(model.UploadTask)
	OnChange     func([]model.UploadTask)
	Logger       *zap.Logger
}

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxInterval = 30 * time.Second
)

type entry struct {
	task     model.UploadTask
	attempts int
}

// Poller polls upload tasks.
type Poller struct {
	fetch StatusFetcher
	opts  Options
	log   *zap.Logger

	mu    sync.Mutex
	tasks []*entry
	wake  chan struct{}
}

// New creates a poller.
func New(fetch StatusFetcher, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.MaxInterval < opts.Interval {
		opts.MaxInterval = max(DefaultMaxInterval, opts.Interval)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{fetch: fetch, opts: opts, log: log, wake: make(chan struct{}, 1)}
}

// Track registers a task; the newest task is listed first.
func (p *Poller) Track(t model.UploadTask) {
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	p.mu.Lock()
	p.tasks = append([]*entry{{task: t}}, p.tasks...)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.changed()
}

// Snapshot returns a copy of all tasks, newest first.
func (p *Poller) Snapshot() []model.UploadTask {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.UploadTask, len(p.tasks))
	for i, e := range p.tasks {
		out[i] = e.task
	}
	return out
}

// Active counts tasks still PENDING or STARTED.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.tasks {
		if e.task.Status.Active() {
			n++
		}
	}
	return n
}

func (p *Poller) backoff() retry.Backoff {
	return retry.WithCappedDuration(p.opts.MaxInterval, retry.NewExponential(p.opts.Interval))
}

// Run polls until ctx is done. It returns nil when it stopped because nothing
// was left to poll and StopWhenIdle is set.
func (p *Poller) Run(ctx context.Context) error {
	b := p.backoff()
	for {
		if p.opts.StopWhenIdle && p.Active() == 0 {
			return nil
		}
		wait, _ := b.Next()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-p.wake:
			timer.Stop()
			b = p.backoff()
			continue
		case <-timer.C:
		}

		changed, err := p.Poll(ctx)
		if err != nil {
			return err
		}
		if changed {
			b = p.backoff()
		}
	}
}

// Poll runs one round over the active tasks and reports whether any status
// changed. Only an authentication failure or cancellation is returned; other
// fetch errors leave the task active for the next round.
func (p *Poller) Poll(ctx context.Context) (bool, error) {
	p.mu.Lock()
	ids := make([]string, 0, len(p.tasks))
	for _, e := range p.tasks {
		if e.task.Status.Active() {
			ids = append(ids, e.task.TaskID)
		}
	}
	p.mu.Unlock()

	var (
		changed   bool
		succeeded []model.UploadTask
	)
	for _, id := range ids {
		st, err := p.fetch.TaskStatus(ctx, id)
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		if err != nil && (errors.Is(err, errs.ErrUnauthorized) || errors.Is(err, errs.ErrNoSession)) {
			return changed, err
		}

		p.mu.Lock()
		e := p.find(id)
		if e == nil || !e.task.Status.Active() {
			p.mu.Unlock()
			continue
		}
		e.attempts++
		switch {
		case err != nil:
			p.log.Warn("task status", zap.String("task_id", id), zap.Error(err))
		case st != e.task.Status:
			p.log.Debug("task status changed", zap.String("task_id", id),
				zap.String("from", string(e.task.Status)), zap.String("to", string(st)))
			e.task.Status = st
			changed = true
			if st == model.TaskSuccess {
				succeeded = append(succeeded, e.task)
			}
		}
		if e.task.Status.Active() && p.opts.MaxAttempts > 0 && e.attempts >= p.opts.MaxAttempts {
			e.task.Status = model.TaskFailure
			e.task.Note = fmt.Sprintf("gave up after %d status checks", e.attempts)
			changed = true
		}
		p.mu.Unlock()
	}

	for _, t := range succeeded {
		if p.opts.OnSuccess != nil {
			p.opts.OnSuccess(t)
		}
	}
	if changed {
		p.changed()
	}
	return changed, nil
}

func (p *Poller) find(id string) *entry {
	for _, e := range p.tasks {
		if e.task.TaskID == id {
			return e
		}
	}
	return nil
}

func (p *Poller) changed() {
	if p.opts.OnChange != nil {
		p.opts.OnChange(p.Snapshot())
	}
}
