package stores

import (
	"context"
	"errors"

	"github.com/openfroyo/recordstore/pkg/telemetry"
)

// InstrumentedStore decorates a Store with tracing, metrics, structured
// logging, and change events. Semantics of the wrapped store are unchanged.
type InstrumentedStore struct {
	Store
	backend string
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
}

// Instrument wraps store so every record operation is observed through tel.
// A nil tel yields no-op telemetry.
func Instrument(store Store, tel *telemetry.Telemetry, backend string) *InstrumentedStore {
	if tel == nil {
		tel = telemetry.NewNop()
	}
	if backend == "" {
		backend = string(DriverSQLite)
	}
	return &InstrumentedStore{
		Store:   store,
		backend: backend,
		tel:     tel,
		logger:  tel.Logger.NewComponentLogger("stores").WithBackend(backend),
	}
}

// Backend returns the backend label used in telemetry.
func (s *InstrumentedStore) Backend() string {
	return s.backend
}

// Insert creates a record and publishes record.inserted on success.
func (s *InstrumentedStore) Insert(ctx context.Context, id int64, value string) error {
	op := s.start(ctx, "insert", id)
	err := s.Store.Insert(op.Ctx, id, value)
	s.finish(op, "insert", id, outcomeOf(err, true), err)
	if err == nil {
		s.publish(s.tel.Events.PublishRecordInserted(s.backend, id))
	}
	return err
}

// Read returns the value for id.
func (s *InstrumentedStore) Read(ctx context.Context, id int64) (string, bool, error) {
	op := s.start(ctx, "read", id)
	value, found, err := s.Store.Read(op.Ctx, id)
	s.finish(op, "read", id, outcomeOf(err, found), err)
	return value, found, err
}

// Get returns the record for id, or nil when absent.
func (s *InstrumentedStore) Get(ctx context.Context, id int64) (*Record, error) {
	op := s.start(ctx, "get", id)
	rec, err := s.Store.Get(op.Ctx, id)
	s.finish(op, "get", id, outcomeOf(err, rec != nil), err)
	return rec, err
}

// Update replaces the value for id and publishes record.updated when a row
// changed.
func (s *InstrumentedStore) Update(ctx context.Context, id int64, value string) (bool, error) {
	op := s.start(ctx, "update", id)
	updated, err := s.Store.Update(op.Ctx, id, value)
	s.finish(op, "update", id, outcomeOf(err, updated), err)
	if updated {
		s.publish(s.tel.Events.PublishRecordUpdated(s.backend, id))
	}
	return updated, err
}

// Delete removes the record for id and publishes record.deleted when a row
// was removed.
func (s *InstrumentedStore) Delete(ctx context.Context, id int64) (bool, error) {
	op := s.start(ctx, "delete", id)
	deleted, err := s.Store.Delete(op.Ctx, id)
	s.finish(op, "delete", id, outcomeOf(err, deleted), err)
	if deleted {
		s.publish(s.tel.Events.PublishRecordDeleted(s.backend, id))
	}
	return deleted, err
}

// Count returns the number of records and refreshes the records gauge.
func (s *InstrumentedStore) Count(ctx context.Context) (int64, error) {
	op := s.tel.StartOperation(ctx, "record.count", telemetry.AttrBackend.String(s.backend))
	n, err := s.Store.Count(op.Ctx)
	s.tel.Metrics.RecordOperation(s.backend, "count", outcomeOf(err, true), op.Timer.Duration())
	if err == nil {
		s.tel.Metrics.SetRecordCount(s.backend, n)
	} else {
		s.recordFailure(op, "count", 0, err)
	}
	op.End(err)
	return n, err
}

func (s *InstrumentedStore) start(ctx context.Context, operation string, id int64) *telemetry.InstrumentedContext {
	return s.tel.StartOperation(ctx, "record."+operation,
		telemetry.AttrBackend.String(s.backend),
		telemetry.AttrOperation.String(operation),
		telemetry.AttrRecordID.Int64(id),
	)
}

func (s *InstrumentedStore) finish(op *telemetry.InstrumentedContext, operation string, id int64, outcome string, err error) {
	duration := op.Timer.Duration()
	s.tel.Metrics.RecordOperation(s.backend, operation, outcome, duration)
	if op.Span != nil {
		op.Span.SetAttributes(telemetry.AttrOutcome.String(outcome))
	}

	logger := s.logger.WithRecordID(id).WithField("operation", operation)
	switch {
	case err == nil:
		logger.WithField("outcome", outcome).WithField("duration", duration).Debug("record operation completed")
	case errors.Is(err, ErrDuplicateID):
		// Caller error; the span status stays OK.
		logger.WithError(err).Warn("record already exists")
		s.tel.Metrics.RecordError(string(KindDuplicateID))
		op.End(nil)
		return
	default:
		s.recordFailure(op, operation, id, err)
	}
	op.End(err)
}

func (s *InstrumentedStore) recordFailure(op *telemetry.InstrumentedContext, operation string, id int64, err error) {
	kind := string(KindUnavailable)
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		kind = string(storeErr.Kind)
	}
	if op.Span != nil {
		op.Span.SetAttributes(telemetry.AttrErrorKind.String(kind))
	}
	s.tel.Metrics.RecordError(kind)
	s.logger.WithRecordID(id).WithField("operation", operation).WithError(err).Error("record store failure")
	s.publish(s.tel.Events.PublishStoreError(s.backend, operation, id, err))
}

func (s *InstrumentedStore) publish(err error) {
	if err != nil {
		s.logger.WithError(err).Warn("failed to publish record event")
	}
}

func outcomeOf(err error, found bool) string {
	switch {
	case errors.Is(err, ErrDuplicateID):
		return telemetry.OutcomeDuplicate
	case err != nil:
		return telemetry.OutcomeError
	case !found:
		return telemetry.OutcomeNotFound
	default:
		return telemetry.OutcomeOK
	}
}
