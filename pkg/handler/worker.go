package handler

import (
	"context"
	"errors"

	"github.com/ArionMiles/chatledger/pkg/reply"
)

// ErrWorkerStopped is returned by Submit once the worker is no longer running.
var ErrWorkerStopped = errors.New("worker stopped")

// Result is what Submit hands back for one message.
type Result struct {
	Reply reply.Reply
	// Handled is false when the message was dropped as unauthorized.
	Handled bool
}

type job struct {
	ctx    context.Context
	msg    Message
	result chan Result
}

// Worker serializes message handling through a single goroutine, so no two
// messages touch the ledger at the same time.
type Worker struct {
	handler *Handler
	jobs    chan job
	done    chan struct{}
}

// NewWorker creates a worker with room for queue pending messages.
func NewWorker(h *Handler, queue int) *Worker {
	if queue < 0 {
		queue = 0
	}
	return &Worker{
		handler: h,
		jobs:    make(chan job, queue),
		done:    make(chan struct{}),
	}
}

// Run processes messages until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	defer close(w.done)
	w.handler.logger.Info("message worker started")

	for {
		select {
		case <-ctx.Done():
			w.handler.logger.Info("message worker stopped")
			return ctx.Err()
		case j := <-w.jobs:
			if j.ctx.Err() != nil {
				continue
			}
			r, handled := w.handler.Handle(j.ctx, j.msg)
			j.result <- Result{Reply: r, Handled: handled}
		}
	}
}

// Submit queues msg and waits for its result.
func (w *Worker) Submit(ctx context.Context, msg Message) (Result, error) {
	j := job{ctx: ctx, msg: msg, result: make(chan Result, 1)}

	select {
	case w.jobs <- j:
	case <-w.done:
		return Result{}, ErrWorkerStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-j.result:
		return r, nil
	case <-w.done:
		return Result{}, ErrWorkerStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
