package database

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RegisterPoolMetrics exposes connection pool statistics on reg. Values are
// read from the pool at scrape time.
func RegisterPoolMetrics(reg prometheus.Registerer, db *DB) {
	factory := promauto.With(reg)

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fintrack_db_pool_acquired_conns",
		Help: "Connections currently checked out of the pool",
	}, func() float64 { return float64(db.Pool.Stat().AcquiredConns()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fintrack_db_pool_idle_conns",
		Help: "Idle connections held by the pool",
	}, func() float64 { return float64(db.Pool.Stat().IdleConns()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fintrack_db_pool_total_conns",
		Help: "Connections owned by the pool, including those being established",
	}, func() float64 { return float64(db.Pool.Stat().TotalConns()) })

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fintrack_db_pool_max_conns",
		Help: "Configured maximum pool size",
	}, func() float64 { return float64(db.Pool.Stat().MaxConns()) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "fintrack_db_pool_acquires_total",
		Help: "Successful connection acquisitions",
	}, func() float64 { return float64(db.Pool.Stat().AcquireCount()) })

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name: "fintrack_db_pool_empty_acquires_total",
		Help: "Acquisitions that had to wait for a connection",
	}, func() float64 { return float64(db.Pool.Stat().EmptyAcquireCount()) })
}
