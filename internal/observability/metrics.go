package observability

import (
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapverse_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "snapverse_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// FollowTransitions counts follow edge state changes.
	FollowTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapverse_follow_transitions_total",
		Help: "Total follow edge transitions by kind",
	}, []string{"transition"})

	// ReactionToggles counts reaction toggle outcomes by action and kind.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapverse_reaction_toggles_total",
		Help: "Total reaction toggles by outcome",
	}, []string{"action", "kind"})

	// AccessDenials counts visibility checks that refused the viewer.
	AccessDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapverse_access_denials_total",
		Help: "Total visibility denials by operation",
	}, []string{"operation"})

	// PaymentSessions counts payment gateway interactions by outcome.
	PaymentSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snapverse_payment_sessions_total",
		Help: "Total payment sessions by outcome",
	}, []string{"outcome"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct{}

// ObserveQuery records the latency of a database query.
func (DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

const queryStartKey = "snapverse:query_start"

// InstrumentGorm registers callbacks that feed DatabaseQueryLatency for
// every statement executed through db. Repeat calls are no-ops.
func InstrumentGorm(db *gorm.DB) error {
	if db.Callback().Query().Get("metrics:before_query") != nil {
		return nil
	}
	var m DatabaseMetrics

	before := func(tx *gorm.DB) {
		tx.InstanceSet(queryStartKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			v, ok := tx.InstanceGet(queryStartKey)
			if !ok {
				return
			}
			start, ok := v.(time.Time)
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			m.ObserveQuery(operation, table, start)
		}
	}

	cb := db.Callback()
	steps := []struct {
		name   string
		before func(string) error
		after  func(string) error
	}{
		{"create", func(n string) error { return cb.Create().Before("gorm:create").Register(n, before) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, after("create")) }},
		{"query", func(n string) error { return cb.Query().Before("gorm:query").Register(n, before) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, after("query")) }},
		{"update", func(n string) error { return cb.Update().Before("gorm:update").Register(n, before) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, after("update")) }},
		{"delete", func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, before) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, after("delete")) }},
		{"row", func(n string) error { return cb.Row().Before("gorm:row").Register(n, before) },
			func(n string) error { return cb.Row().After("gorm:row").Register(n, after("row")) }},
		{"raw", func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, before) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, after("raw")) }},
	}
	for _, s := range steps {
		if err := s.before("metrics:before_" + s.name); err != nil {
			return err
		}
		if err := s.after("metrics:after_" + s.name); err != nil {
			return err
		}
	}
	return nil
}

var (
	httpMetricsOnce sync.Once
	httpMetrics     *fiberprometheus.FiberPrometheus
)

// InitMetrics returns the process-wide HTTP metrics middleware. The collectors
// live in the default registry, so repeated calls share one instance.
func InitMetrics(serviceName string) *fiberprometheus.FiberPrometheus {
	httpMetricsOnce.Do(func() {
		httpMetrics = fiberprometheus.New(serviceName)
	})
	return httpMetrics
}
