package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/feedbackpulse/internal/adapter/metrics"
)

// QueryTracer records query durations and failures, labeled by SQL verb.
type QueryTracer struct {
	metrics *metrics.DatabaseMetrics
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

type queryContextKey struct{}

type queryContext struct {
	start time.Time
	verb  string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{start: time.Now(), verb: queryVerb(data.SQL)})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}

	t.metrics.QueryDuration.WithLabelValues(qctx.verb).Observe(time.Since(qctx.start).Seconds())
	if data.Err != nil && data.Err != pgx.ErrNoRows {
		t.metrics.Errors.WithLabelValues(qctx.verb).Inc()
	}
}

// queryVerb keeps label cardinality low by reducing a statement to its first keyword.
func queryVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	verb := strings.ToUpper(fields[0])
	switch verb {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "WITH", "BEGIN", "COMMIT", "ROLLBACK":
		return verb
	default:
		return "other"
	}
}
