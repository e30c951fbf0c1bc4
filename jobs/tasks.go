package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/auditoria360/auditoria360/internal/audit"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskParametroChange carries one audit.Entry to the change-log sink.
	TaskParametroChange = "parametros:change"
)

// NewParametroChangeTask constructs an Asynq task for entry. The entry id is
// used as task id so a replayed enqueue is rejected by the broker.
func NewParametroChangeTask(entry audit.Entry) (*asynq.Task, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskParametroChange, data, asynq.TaskID(entry.ID), asynq.MaxRetry(10)), nil
}

// Enqueuer is the subset of *asynq.Client used by QueueLog.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueLog is an audit.Log that defers writes to the worker.
type QueueLog struct {
	client Enqueuer
}

// NewQueueLog returns a QueueLog enqueuing through client.
func NewQueueLog(client Enqueuer) *QueueLog {
	return &QueueLog{client: client}
}

// Append implements audit.Log.
func (q *QueueLog) Append(ctx context.Context, entry audit.Entry) error {
	if q == nil || q.client == nil {
		return errors.New("jobs: queue log not initialised")
	}
	task, err := NewParametroChangeTask(entry)
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault)); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("jobs: enqueue %s: %w", TaskParametroChange, err)
	}
	return nil
}

// ChangeHandler drains TaskParametroChange into a durable sink.
type ChangeHandler struct {
	sink   audit.Log
	logger *slog.Logger
}

// NewChangeHandler constructs a ChangeHandler.
func NewChangeHandler(sink audit.Log, logger *slog.Logger) *ChangeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeHandler{sink: sink, logger: logger}
}

// ProcessTask implements asynq.Handler.
func (h *ChangeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var entry audit.Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		h.logger.Error("decode parameter change", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := entry.Validate(); err != nil {
		h.logger.Error("invalid parameter change", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if err := h.sink.Append(ctx, entry); err != nil {
		return fmt.Errorf("jobs: persist change %s: %w", entry.ID, err)
	}
	h.logger.Debug("parameter change persisted",
		slog.String("id", entry.ID),
		slog.String("kind", entry.Kind),
		slog.String("action", string(entry.Action)))
	return nil
}
