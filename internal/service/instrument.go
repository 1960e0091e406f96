package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/lock"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const releaseTimeout = 2 * time.Second

var tracer = otel.Tracer("storefront/internal/service")

// withLock runs fn while holding key. The lease is released with a context
// that survives cancellation of ctx.
func withLock(ctx context.Context, locker lock.Locker, logger *zap.Logger, key string, fn func(ctx context.Context) error) error {
	lease, err := locker.Obtain(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
		}
	}()

	return fn(ctx)
}

// operation tracks one service call: a span, a duration sample and an
// outcome counter
type operation struct {
	name   string
	start  time.Time
	span   trace.Span
	record func(name, outcome string)
	m      *metrics.Metrics
	logger *zap.Logger
}

func startOperation(ctx context.Context, name string, m *metrics.Metrics, record func(name, outcome string), logger *zap.Logger) (context.Context, *operation) {
	ctx, span := tracer.Start(ctx, name)
	return ctx, &operation{
		name:   name,
		start:  time.Now(),
		span:   span,
		record: record,
		m:      m,
		logger: logger,
	}
}

func (o *operation) end(err error) {
	defer o.span.End()

	o.m.ObserveDuration(o.name, time.Since(o.start))

	switch {
	case err == nil:
		o.record(o.name, metrics.OutcomeSuccess)
	case IsRejection(err):
		o.record(o.name, metrics.OutcomeRejected)
		o.logger.Debug("Operation rejected", zap.String("operation", o.name), zap.Error(err))
	case errors.Is(err, lock.ErrNotObtained), errors.Is(err, repository.ErrCartVersionConflict):
		o.record(o.name, metrics.OutcomeContended)
		o.logger.Warn("Operation contended", zap.String("operation", o.name), zap.Error(err))
	default:
		o.record(o.name, metrics.OutcomeError)
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.logger.Error("Operation failed", zap.String("operation", o.name), zap.Error(err))
	}
}
