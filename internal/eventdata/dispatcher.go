package eventdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"gorm.io/gorm"

	"proplens/internal/metrics"
)

// BackendKind selects which engine implementation serves requests. It is
// resolved once from configuration at startup and immutable afterwards.
type BackendKind string

const (
	BackendSQLite     BackendKind = "sqlite"
	BackendClickHouse BackendKind = "clickhouse"
)

// Deps carries the injected backend clients. Their lifecycle (pools,
// timeouts) belongs to the caller; the engine owns no connection state.
type Deps struct {
	DB     *gorm.DB
	Conn   driver.Conn
	Pivot  PivotConfig
	Logger *slog.Logger
}

// NewEngine resolves the configured backend kind to its implementation.
// Called once at startup; an unknown kind or a missing client is a
// deployment bug and fails fast instead of falling back.
func NewEngine(kind BackendKind, deps Deps) (Engine, error) {
	var impl Engine
	switch kind {
	case BackendSQLite:
		if deps.DB == nil {
			return nil, &UnsupportedBackendError{Kind: kind}
		}
		impl = NewRelationalEngine(deps.DB, deps.Pivot)
	case BackendClickHouse:
		if deps.Conn == nil {
			return nil, &UnsupportedBackendError{Kind: kind}
		}
		impl = NewColumnarEngine(deps.Conn, deps.Pivot)
	default:
		return nil, &UnsupportedBackendError{Kind: kind}
	}

	return &instrumentedEngine{
		inner:   impl,
		backend: string(kind),
		logger:  deps.Logger,
	}, nil
}

// instrumentedEngine wraps a backend implementation with metrics and
// logging. Shared logic never branches on backend identity; the label is
// observability only.
type instrumentedEngine struct {
	inner   Engine
	backend string
	logger  *slog.Logger
}

func (e *instrumentedEngine) ListProperties(ctx context.Context, req CatalogRequest) ([]PropertySummary, error) {
	done := e.observe("listProperties")
	results, err := e.inner.ListProperties(ctx, req)
	done(err)
	return results, err
}

func (e *instrumentedEngine) ListValues(ctx context.Context, req ValuesRequest) ([]ValueCount, error) {
	done := e.observe("listValues")
	results, err := e.inner.ListValues(ctx, req)
	done(err)
	return results, err
}

func (e *instrumentedEngine) PivotDetails(ctx context.Context, req PivotRequest) (*PivotResult, error) {
	done := e.observe("pivotDetails")
	result, err := e.inner.PivotDetails(ctx, req)
	done(err)
	return result, err
}

func (e *instrumentedEngine) observe(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		elapsed := time.Since(start)
		metrics.QueryDuration.WithLabelValues(operation, e.backend).Observe(elapsed.Seconds())
		if err != nil {
			metrics.QueryErrors.WithLabelValues(operation, e.backend).Inc()
			if e.logger != nil {
				e.logger.Error("engine query failed",
					slog.String("operation", operation),
					slog.String("backend", e.backend),
					slog.Duration("elapsed", elapsed),
					slog.Any("error", err))
			}
		}
	}
}
