package memory

import (
	"context"

	"github.com/veldtops/fieldhand/internal/core/ports"
)

// Queue is a channel-backed ports.Queue.
type Queue struct {
	tasks chan ports.Task
}

var _ ports.Queue = (*Queue)(nil)

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{tasks: make(chan ports.Task, size)}
}

func (q *Queue) Submit(ctx context.Context, task ports.Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Receive(ctx context.Context) (ports.Task, error) {
	select {
	case <-ctx.Done():
		return ports.Task{}, ctx.Err()
	case task := <-q.tasks:
		return task, nil
	}
}

// Len reports the number of buffered tasks.
func (q *Queue) Len() int {
	return len(q.tasks)
}
