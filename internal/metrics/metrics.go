// Package metrics exposes Prometheus collectors for the partition
// balancer: counters/gauges/histograms registered at package init, plus a
// promhttp.Handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TasksDispatched counts balance tasks that reached a terminal result
	// (SUCCEEDED, FAILED, INVALID), by result; INVALID tasks were never
	// handed to the AdminClient.
	TasksDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancer_tasks_total",
			Help: "Total number of balance tasks that reached a terminal state, by result",
		},
		[]string{"result"},
	)

	// TaskDuration measures wall-clock time from a task's START to its
	// terminal state.
	TaskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "balancer_task_duration_seconds",
			Help:    "Balance task duration in seconds, START to terminal state",
			Buckets: prometheus.DefBuckets,
		},
	)

	// PlansRunning tracks the number of BalancePlans currently dispatching.
	PlansRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "balancer_plans_running",
			Help: "Number of balance plans currently in RUNNING state",
		},
	)

	// PlansTotal counts plans by their terminal status.
	PlansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancer_plans_total",
			Help: "Total number of balance plans that reached a terminal state, by status",
		},
		[]string{"status"},
	)

	// LeaderDeviation records, per leader-balance pass, how many hosts
	// remained outside their [lowerBound, upperBound] leader-count window.
	LeaderDeviation = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "balancer_leader_deviation_hosts",
			Help: "Number of hosts outside their target leader-count bounds after the last leader-balance pass",
		},
	)

	// AdminClientLatency measures AdminClient RPC latency by method.
	AdminClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "balancer_admin_client_latency_seconds",
			Help:    "AdminClient RPC latency in seconds, by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// AdminClientErrors counts AdminClient RPC failures by method.
	AdminClientErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancer_admin_client_errors_total",
			Help: "Total number of AdminClient RPC failures, by method",
		},
		[]string{"method"},
	)

	// LeaderTransfersTotal counts dispatched transLeader calls issued by a
	// leader-balance pass, by outcome.
	LeaderTransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "balancer_leader_transfers_total",
			Help: "Total number of leader-balance transLeader calls, by outcome",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		TasksDispatched,
		TaskDuration,
		PlansRunning,
		PlansTotal,
		LeaderDeviation,
		AdminClientLatency,
		AdminClientErrors,
		LeaderTransfersTotal,
	)
}

// Handler returns the HTTP handler for scraping these collectors.
func Handler() http.Handler {
	return promhttp.Handler()
}
