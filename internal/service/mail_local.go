package service

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// LocalQueue is an in process MailQueue backed by a buffered channel and
// a pool of workers
type LocalQueue struct {
	mails   chan VerificationMail
	sender  MailSender
	workers int
	queued  atomic.Int32
	wg      sync.WaitGroup

	// guards sends against the close of mails
	mu     sync.RWMutex
	closed bool
}

func NewLocalQueue(workers, size int, sender MailSender) *LocalQueue {
	zap.L().Debug("Initializing mail queue", zap.Int("workers", workers), zap.Int("size", size))

	return &LocalQueue{
		mails:   make(chan VerificationMail, size),
		sender:  sender,
		workers: workers,
	}
}

func (q *LocalQueue) StartWorkerPool() {
	for range q.workers {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()

	for m := range q.mails {
		q.queued.Add(-1)

		if err := q.sender.Send(context.Background(), m); err != nil {
			zap.L().Error("Failed to send verification mail", zap.String("to", m.To), zap.Error(err))
			continue
		}

		zap.L().Debug("Verification mail sent", zap.String("to", m.To))
	}
}

func (q *LocalQueue) Enqueue(_ context.Context, m VerificationMail) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.mails <- m:
		q.queued.Add(1)
		zap.L().Debug("New mail enqueued", zap.Int32("enqueued", q.queued.Load()))
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting mails and waits for the workers to drain the queue
func (q *LocalQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.mails)
	q.mu.Unlock()

	q.wg.Wait()
}
