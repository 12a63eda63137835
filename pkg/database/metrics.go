package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolStatsCollector exports pgxpool statistics and store availability.
// The pool is looked up on every scrape because the supervisor may not have
// connected yet when the collector is registered.
type PoolStatsCollector struct {
	pool      func() *pgxpool.Pool
	available func() bool
	service   string

	availableDesc  *prometheus.Desc
	acquiredConns  *prometheus.Desc
	idleConns      *prometheus.Desc
	totalConns     *prometheus.Desc
	maxConns       *prometheus.Desc
	acquireCount   *prometheus.Desc
	emptyAcquires  *prometheus.Desc
	acquireSeconds *prometheus.Desc
}

// NewPoolStatsCollector builds a collector backed by the supervisor.
func NewPoolStatsCollector(s *Supervisor, service string) *PoolStatsCollector {
	return newPoolStatsCollector(s.Pool, s.Available, service)
}

func newPoolStatsCollector(pool func() *pgxpool.Pool, available func() bool, service string) *PoolStatsCollector {
	labels := []string{"service"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(name, help, labels, nil)
	}
	return &PoolStatsCollector{
		pool:           pool,
		available:      available,
		service:        service,
		availableDesc:  desc("db_available", "1 when the last database probe succeeded"),
		acquiredConns:  desc("db_pool_acquired_connections", "Number of currently acquired connections"),
		idleConns:      desc("db_pool_idle_connections", "Number of currently idle connections"),
		totalConns:     desc("db_pool_total_connections", "Total number of connections in the pool"),
		maxConns:       desc("db_pool_max_connections", "Maximum number of connections allowed"),
		acquireCount:   desc("db_pool_acquire_count_total", "Total number of connection acquires"),
		emptyAcquires:  desc("db_pool_empty_acquire_count_total", "Acquires that had to wait for a connection"),
		acquireSeconds: desc("db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections"),
	}
}

// Describe implements prometheus.Collector.
func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.availableDesc
	ch <- c.acquiredConns
	ch <- c.idleConns
	ch <- c.totalConns
	ch <- c.maxConns
	ch <- c.acquireCount
	ch <- c.emptyAcquires
	ch <- c.acquireSeconds
}

// Collect implements prometheus.Collector.
func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	up := 0.0
	if c.available() {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.availableDesc, prometheus.GaugeValue, up, c.service)

	pool := c.pool()
	if pool == nil {
		return
	}
	stat := pool.Stat()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, c.service)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v, c.service)
	}
	gauge(c.acquiredConns, float64(stat.AcquiredConns()))
	gauge(c.idleConns, float64(stat.IdleConns()))
	gauge(c.totalConns, float64(stat.TotalConns()))
	gauge(c.maxConns, float64(stat.MaxConns()))
	counter(c.acquireCount, float64(stat.AcquireCount()))
	counter(c.emptyAcquires, float64(stat.EmptyAcquireCount()))
	counter(c.acquireSeconds, stat.AcquireDuration().Seconds())
}

// RegisterPoolMetrics registers the supervisor's collector with reg.
func RegisterPoolMetrics(reg prometheus.Registerer, s *Supervisor, service string) error {
	return reg.Register(NewPoolStatsCollector(s, service))
}
