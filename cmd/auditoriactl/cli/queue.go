package cli

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/auditoria360/auditoria360/jobs"
)

// Inspector is the subset of asynq.Inspector the queue helpers use.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	RunAllArchivedTasks(queue string) (int, error)
	Close() error
}

// QueueCLI wraps manual management helpers for the change-log queue.
type QueueCLI struct {
	inspector Inspector
}

// NewQueueCLI initialises the helpers against the given Redis settings.
func NewQueueCLI(opt asynq.RedisClientOpt) *QueueCLI {
	return &QueueCLI{inspector: asynq.NewInspector(opt)}
}

// Close releases underlying resources.
func (c *QueueCLI) Close() error {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector.Close()
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
}

// Stats reports counts for the default queue.
func (c *QueueCLI) Stats(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("queue cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return QueueStats{}, err
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// RequeueArchived moves change tasks that exhausted their retries back to
// pending and returns how many were moved.
func (c *QueueCLI) RequeueArchived(ctx context.Context) (int, error) {
	if c == nil || c.inspector == nil {
		return 0, errors.New("queue cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.inspector.RunAllArchivedTasks(jobs.QueueDefault)
}
