package syncer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// pushKind discriminates outbox tasks.
type pushKind int

const (
	pushReport pushKind = iota
	pushModules
)

// pushTask is one staged fire-and-forget push.
type pushTask struct {
	kind pushKind
	id   string // report id; empty for the modules blob
}

// Outbox stages per-record pushes triggered by local mutations and
// drains them sequentially on a single worker goroutine, so two pushes
// never interleave on the same remote name. Push failures are swallowed
// and logged by design: the next full sync cycle re-pushes everything.
type Outbox struct {
	syncer *Syncer
	logger *log.Logger

	mu      sync.Mutex
	tasks   chan pushTask
	running bool
	wg      sync.WaitGroup

	// PushTimeout bounds each archive call (default 30s).
	PushTimeout time.Duration
}

// NewOutbox creates an outbox bound to a syncer.
// If logger is nil, the syncer's logger is used.
func NewOutbox(s *Syncer, logger *log.Logger) *Outbox {
	if logger == nil {
		logger = s.logger
	}
	return &Outbox{
		syncer:      s,
		logger:      logger,
		PushTimeout: 30 * time.Second,
	}
}

// Start launches the worker. Safe to call on a running outbox.
func (o *Outbox) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}
	o.tasks = make(chan pushTask, 256)
	o.running = true
	o.wg.Add(1)
	go o.drain(o.tasks)
}

// Stop closes the queue and waits for the worker to drain what is
// already staged. Safe to call on a stopped outbox.
func (o *Outbox) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.running = false
	close(o.tasks)
	o.mu.Unlock()

	o.wg.Wait()
}

// EnqueueReport stages a push of one report. If the queue is full or
// the outbox is stopped, the task is dropped: the next full cycle
// covers it.
func (o *Outbox) EnqueueReport(id string) {
	o.enqueue(pushTask{kind: pushReport, id: id})
}

// EnqueueModules stages a push of the whole modules blob.
func (o *Outbox) EnqueueModules() {
	o.enqueue(pushTask{kind: pushModules})
}

func (o *Outbox) enqueue(task pushTask) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	select {
	case o.tasks <- task:
	default:
		o.logger.Printf("WARNING: outbox full, dropping push (next cycle covers it)")
	}
}

// drain processes tasks until the queue closes.
func (o *Outbox) drain(tasks <-chan pushTask) {
	defer o.wg.Done()

	for task := range tasks {
		if err := o.push(task); err != nil {
			// Swallowed by design. The record is still local; the
			// next full sync cycle will push it again.
			o.logger.Printf("WARNING: outbox push failed: %v", err)
		}
	}
}

func (o *Outbox) push(task pushTask) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.PushTimeout)
	defer cancel()

	switch task.kind {
	case pushReport:
		r, err := o.syncer.store.GetReportContext(ctx, task.id)
		if err != nil {
			// Deleted between enqueue and drain; nothing to push.
			return nil
		}
		return o.syncer.pushReport(ctx, r)

	case pushModules:
		mods, err := o.syncer.store.ListModulesContext(ctx)
		if err != nil {
			return err
		}
		return o.syncer.pushModules(ctx, mods)
	}
	return errors.New("unknown push task")
}
