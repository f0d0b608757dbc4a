package backlogdb

import (
	"context"
	"errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// queryDuration measures the wall time of every query issued through a Store.
	// Labels: query (logical query name), status (ok, error)
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "backlogdb",
		Subsystem: "store",
		Name:      "query_duration_seconds",
		Help:      "Graph store query latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"query", "status"})

	// queryErrors counts failed queries.
	// Labels: query, kind (constraint, other)
	queryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "backlogdb",
		Subsystem: "store",
		Name:      "query_errors_total",
		Help:      "Total graph store query failures",
	}, []string{"query", "kind"})
)

type queryNameKey struct{}

// withQueryName labels the queries issued under ctx for metrics and logs.
func withQueryName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, queryNameKey{}, name)
}

func queryName(ctx context.Context) string {
	if name, ok := ctx.Value(queryNameKey{}).(string); ok {
		return name
	}
	return "adhoc"
}

// instrumentedRunner records latency and failures of every query and turns
// constraint failures into ErrConstraintViolation.
type instrumentedRunner struct {
	next DBRunner
	log  zerolog.Logger
}

func (r instrumentedRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	name := queryName(ctx)
	start := time.Now()
	result, err := r.next.Run(ctx, query, params)
	elapsed := time.Since(start)

	if err != nil {
		err = classify(err)
		kind := "other"
		if errors.Is(err, ErrConstraintViolation) {
			kind = "constraint"
		}
		queryDuration.WithLabelValues(name, "error").Observe(elapsed.Seconds())
		queryErrors.WithLabelValues(name, kind).Inc()
		r.log.Debug().Err(err).Str("query", name).Dur("elapsed", elapsed).Msg("query failed")
		return nil, err
	}

	if result == nil {
		result = &neo4j.EagerResult{}
	}
	queryDuration.WithLabelValues(name, "ok").Observe(elapsed.Seconds())
	r.log.Debug().Str("query", name).Int("records", len(result.Records)).Dur("elapsed", elapsed).Msg("query done")
	return result, nil
}
