// Package redisq submits and receives queue envelopes through a Redis list.
// Redis is the external broker: at-least-once delivery and the overall job
// timeout ceiling are its responsibility, not the core's.
package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/veldtops/fieldhand/internal/core/ports"
)

// receiveBlock keeps BRPOP short so a shutting-down worker notices its
// cancelled context between polls.
const receiveBlock = 5 * time.Second

type Queue struct {
	client *goredis.Client
	key    string
	logger *slog.Logger
}

var _ ports.Queue = (*Queue)(nil)

func New(client *goredis.Client, key string, logger *slog.Logger) *Queue {
	return &Queue{client: client, key: key, logger: logger}
}

func (q *Queue) Submit(ctx context.Context, task ports.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("redisq: marshal task: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redisq: submit task: %w", err)
	}
	q.logger.Info("task submitted", "job_id", task.JobID, "operation", task.Operation, "queue", q.key)
	return nil
}

func (q *Queue) Receive(ctx context.Context) (ports.Task, error) {
	values, err := q.client.BRPop(ctx, receiveBlock, q.key).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return ports.Task{}, ports.ErrNoTask
		}
		return ports.Task{}, fmt.Errorf("redisq: receive task: %w", err)
	}
	// BRPOP replies [key, value].
	if len(values) != 2 {
		return ports.Task{}, fmt.Errorf("redisq: unexpected brpop reply length %d", len(values))
	}

	var task ports.Task
	if err := json.Unmarshal([]byte(values[1]), &task); err != nil {
		return ports.Task{}, fmt.Errorf("redisq: decode task: %w", err)
	}
	return task, nil
}
