package parametros

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/auditoria360/auditoria360/internal/audit"
	"github.com/auditoria360/auditoria360/internal/observability"
)

// Service validates CRUD operations and applies them to the Repository.
type Service struct {
	repo     Repository
	changes  audit.Log
	metrics  *observability.Metrics
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService wires the controller. changes and metrics may be nil.
func NewService(repo Repository, changes audit.Log, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if changes == nil {
		changes = audit.NopLog{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		changes:  changes,
		metrics:  metrics,
		logger:   logger,
		validate: newValidator(),
		now:      time.Now,
	}
}

// List returns every record of kind.
func (s *Service) List(ctx context.Context, kind Kind) ([]Record, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.repo.GetAll(ctx, kind)
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, kind Kind, id string) (Record, error) {
	if err := checkKind(kind); err != nil {
		return Record{}, err
	}
	key, ok := canonicalID(id)
	if !ok {
		return Record{}, notFound(kind, id)
	}
	return s.repo.Get(ctx, kind, key)
}

// Create validates req and stores it under a fresh id at version 1.
func (s *Service) Create(ctx context.Context, kind Kind, req CreateRequest) (Record, error) {
	if err := checkKind(kind); err != nil {
		return Record{}, err
	}
	verr := &ValidationError{}
	if err := structErrors(s.validate, req, verr); err != nil {
		return Record{}, err
	}
	checkBodyKind(kind, req.Kind, verr)
	if req.Fields != nil {
		validateFields(kind, req.Fields, verr)
	}
	validatePeriod(req.EffectivePeriod, verr)
	if verr.HasErrors() {
		s.observe(kind, audit.ActionCreate, verr)
		return Record{}, verr
	}

	now := s.now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		Fields:    req.Fields.Clone(),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.EffectivePeriod != nil {
		p := req.EffectivePeriod.Clone()
		rec.EffectivePeriod = &p
	}

	stored, err := s.repo.Put(ctx, kind, rec)
	s.observe(kind, audit.ActionCreate, err)
	if err != nil {
		return Record{}, err
	}
	s.recordChange(ctx, audit.ActionCreate, stored)
	return stored, nil
}

// Update merges req into the stored record and bumps its version.
func (s *Service) Update(ctx context.Context, kind Kind, id string, req UpdateRequest) (Record, error) {
	if err := checkKind(kind); err != nil {
		return Record{}, err
	}
	verr := &ValidationError{}
	if err := structErrors(s.validate, req, verr); err != nil {
		return Record{}, err
	}
	checkBodyKind(kind, req.Kind, verr)
	key, validKey := canonicalID(id)
	if req.ID != "" && validKey {
		if bodyKey, ok := canonicalID(req.ID); !ok || bodyKey != key {
			verr.Add("id", "must match the id in the path")
		}
	}
	if len(req.Fields) == 0 && req.EffectivePeriod == nil {
		verr.Add("fields", "at least one of fields or effective_period is required")
	}
	validatePeriod(req.EffectivePeriod, verr)
	if verr.HasErrors() {
		s.observe(kind, audit.ActionUpdate, verr)
		return Record{}, verr
	}
	if !validKey {
		err := notFound(kind, id)
		s.observe(kind, audit.ActionUpdate, err)
		return Record{}, err
	}

	current, err := s.repo.Get(ctx, kind, key)
	if err != nil {
		s.observe(kind, audit.ActionUpdate, err)
		return Record{}, err
	}
	if req.Version != nil && *req.Version != current.Version {
		err := conflict(kind, key, *req.Version, current.Version)
		s.observe(kind, audit.ActionUpdate, err)
		return Record{}, err
	}

	next := current.Clone()
	next.Fields = current.Fields.Merge(req.Fields)
	validateFields(kind, next.Fields, verr)
	if verr.HasErrors() {
		s.observe(kind, audit.ActionUpdate, verr)
		return Record{}, verr
	}
	if req.EffectivePeriod != nil {
		p := req.EffectivePeriod.Clone()
		next.EffectivePeriod = &p
	}
	next.Version = current.Version + 1
	next.UpdatedAt = s.now().UTC()

	stored, err := s.repo.Put(ctx, kind, next)
	s.observe(kind, audit.ActionUpdate, err)
	if err != nil {
		return Record{}, err
	}
	s.recordChange(ctx, audit.ActionUpdate, stored)
	return stored, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, kind Kind, id string) (DeleteResult, error) {
	if err := checkKind(kind); err != nil {
		return DeleteResult{}, err
	}
	key, ok := canonicalID(id)
	if !ok {
		err := notFound(kind, id)
		s.observe(kind, audit.ActionDelete, err)
		return DeleteResult{}, err
	}
	err := s.repo.Delete(ctx, kind, key)
	s.observe(kind, audit.ActionDelete, err)
	if err != nil {
		return DeleteResult{}, err
	}
	s.recordChange(ctx, audit.ActionDelete, Record{ID: key, Kind: kind})
	return DeleteResult{ID: key, Kind: kind, Deleted: true}, nil
}

// Effective returns the records of kind in force on day.
func (s *Service) Effective(ctx context.Context, kind Kind, day time.Time) ([]Record, error) {
	all, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(all))
	for _, rec := range all {
		if rec.AppliesOn(day) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// EffectiveAll fetches the records in force on day for every kind concurrently.
func (s *Service) EffectiveAll(ctx context.Context, day time.Time) (EffectiveSet, error) {
	kinds := Kinds()
	results := make([][]Record, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			records, err := s.Effective(gctx, kind, day)
			if err != nil {
				return err
			}
			results[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return EffectiveSet{}, err
	}
	set := EffectiveSet{Date: formatDate(day), Records: make(map[Kind][]Record, len(kinds))}
	for i, kind := range kinds {
		set.Records[kind] = results[i]
	}
	return set, nil
}

// recordChange appends to the change log. The mutation is already committed,
// so a failing log is reported and swallowed.
func (s *Service) recordChange(ctx context.Context, action audit.Action, rec Record) {
	var fields json.RawMessage
	if rec.Fields != nil {
		raw, err := json.Marshal(rec.Fields)
		if err == nil {
			fields = raw
		}
	}
	entry := audit.NewEntry(ctx, action, string(rec.Kind), rec.ID, rec.Version, fields)
	if err := s.changes.Append(ctx, entry); err != nil {
		s.logger.Warn("append parameter change",
			slog.String("action", string(action)),
			slog.String("kind", string(rec.Kind)),
			slog.String("id", rec.ID),
			slog.Any("error", err))
	}
}

func (s *Service) observe(kind Kind, action audit.Action, err error) {
	s.metrics.ObserveMutation(string(kind), string(action), outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func checkKind(kind Kind) error {
	if _, ok := schemas[kind]; !ok {
		return fmt.Errorf("%w: unknown parameter kind %q", ErrNotFound, kind)
	}
	return nil
}

func checkBodyKind(kind Kind, raw string, verr *ValidationError) {
	if raw == "" {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(raw), string(kind)) {
		verr.Add("kind", "must match the kind in the path ("+string(kind)+")")
	}
}

// canonicalID returns id in the lowercase hyphenated form records are stored
// under. uuid.Parse also accepts uppercase, braced and urn:uuid: spellings.
func canonicalID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
