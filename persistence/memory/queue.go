package memory

import (
	"context"
	"sync"

	"github.com/mohitkumar/pollster/persistence"
)

var _ persistence.Queue = new(memoryQueue)

type memoryQueue struct {
	mu     sync.Mutex
	queues map[string][]string
}

func NewMemoryQueue() *memoryQueue {
	return &memoryQueue{
		queues: make(map[string][]string),
	}
}

func (q *memoryQueue) Push(ctx context.Context, queueName string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[queueName] = append(q.queues[queueName], string(message))
	return nil
}

func (q *memoryQueue) Pop(ctx context.Context, queueName string, batchSize int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.queues[queueName]
	n := min(batchSize, len(pending))
	out := make([]string, n)
	copy(out, pending[:n])
	q.queues[queueName] = pending[n:]
	return out, nil
}
