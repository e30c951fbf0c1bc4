// Package audit records an append-only log of tax-parameter changes.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Action names a mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AnonymousActor is recorded when the request carried no identity.
const AnonymousActor = "anonymous"

// Entry is one change-log record.
type Entry struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	Kind      string          `json:"kind"`
	RecordID  string          `json:"record_id"`
	Version   int64           `json:"version"`
	Fields    json.RawMessage `json:"fields,omitempty"`
	Actor     string          `json:"actor"`
	RequestID string          `json:"request_id,omitempty"`
	At        time.Time       `json:"at"`
}

// Validate checks the attributes every sink relies on.
func (e Entry) Validate() error {
	if e.ID == "" || e.Action == "" || e.Kind == "" || e.RecordID == "" {
		return errors.New("audit entry requires id/action/kind/record_id")
	}
	return nil
}

// Log is the append-only change-log collaborator.
type Log interface {
	Append(ctx context.Context, entry Entry) error
}

// NopLog discards entries.
type NopLog struct{}

// Append implements Log.
func (NopLog) Append(context.Context, Entry) error { return nil }

// NewEntry stamps an entry with a fresh id, the request actor and request id.
func NewEntry(ctx context.Context, action Action, kind, recordID string, version int64, fields json.RawMessage) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Action:    action,
		Kind:      kind,
		RecordID:  recordID,
		Version:   version,
		Fields:    fields,
		Actor:     ActorFromContext(ctx),
		RequestID: chimw.GetReqID(ctx),
		At:        time.Now().UTC(),
	}
}

type actorKey struct{}

// WithActor stores the authenticated subject on ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the subject stored by WithActor.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return AnonymousActor
}
