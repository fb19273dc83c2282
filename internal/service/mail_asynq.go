package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TypeVerificationMail = "mail:verification"

// AsynqQueue stores mails as asynq tasks in redis. A separate worker
// process started with --mail-worker delivers them.
type AsynqQueue struct {
	client *asynq.Client
}

func NewAsynqQueue(opt asynq.RedisConnOpt) *AsynqQueue {
	return &AsynqQueue{client: asynq.NewClient(opt)}
}

func NewVerificationMailTask(m VerificationMail) (*asynq.Task, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mail task, %w", err)
	}

	return asynq.NewTask(TypeVerificationMail, payload, asynq.MaxRetry(0)), nil
}

func (q *AsynqQueue) Enqueue(ctx context.Context, m VerificationMail) error {
	task, err := NewVerificationMailTask(m)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue mail task, %w", err)
	}

	zap.L().Debug("New mail task enqueued", zap.String("task_id", info.ID), zap.String("queue", info.Queue))
	return nil
}

func (q *AsynqQueue) Close() error {
	return q.client.Close()
}

// HandleVerificationMail returns the asynq handler delivering mail tasks
func HandleVerificationMail(sender MailSender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var m VerificationMail
		if err := json.Unmarshal(t.Payload(), &m); err != nil {
			return fmt.Errorf("failed to decode mail task, %w", asynq.SkipRetry)
		}

		if err := sender.Send(ctx, m); err != nil {
			zap.L().Error("Failed to send verification mail", zap.String("to", m.To), zap.Error(err))
			return err
		}

		return nil
	}
}

func NewMailMux(sender MailSender) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeVerificationMail, HandleVerificationMail(sender))

	return mux
}

func NewMailServer(opt asynq.RedisConnOpt, concurrency int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
	})
}
