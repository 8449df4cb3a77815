// Package metrics exposes Prometheus instrumentation for the engine:
// per-tab ingest volume and lifecycle counters, served on an optional
// /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Set is the collection of engine metrics. A nil *Set is valid and
// records nothing.
type Set struct {
	BytesIngested *prometheus.CounterVec
	Spawns        *prometheus.CounterVec
	SpawnFailures *prometheus.CounterVec
	Restarts      *prometheus.CounterVec
	ForceKills    *prometheus.CounterVec
}

// NewSet registers the engine metrics on reg.
func NewSet(reg prometheus.Registerer) *Set {
	s := &Set{
		BytesIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devmux",
			Name:      "bytes_ingested_total",
			Help:      "Raw output bytes read from child terminals.",
		}, []string{"tab"}),
		Spawns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devmux",
			Name:      "spawns_total",
			Help:      "Child processes spawned.",
		}, []string{"tab"}),
		SpawnFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devmux",
			Name:      "spawn_failures_total",
			Help:      "Child spawn attempts that failed.",
		}, []string{"tab"}),
		Restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devmux",
			Name:      "restarts_total",
			Help:      "Restarts requested per tab.",
		}, []string{"tab"}),
		ForceKills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devmux",
			Name:      "force_kills_total",
			Help:      "Children that outlived the termination grace period.",
		}, []string{"tab"}),
	}
	reg.MustRegister(s.BytesIngested, s.Spawns, s.SpawnFailures, s.Restarts, s.ForceKills)
	return s
}

// AddBytes records n raw bytes ingested for tab.
func (s *Set) AddBytes(tab string, n int) {
	if s == nil || n <= 0 {
		return
	}
	s.BytesIngested.WithLabelValues(tab).Add(float64(n))
}

// IncSpawn records a successful spawn for tab.
func (s *Set) IncSpawn(tab string) {
	if s != nil {
		s.Spawns.WithLabelValues(tab).Inc()
	}
}

// IncSpawnFailure records a failed spawn for tab.
func (s *Set) IncSpawnFailure(tab string) {
	if s != nil {
		s.SpawnFailures.WithLabelValues(tab).Inc()
	}
}

// IncRestart records a restart request for tab.
func (s *Set) IncRestart(tab string) {
	if s != nil {
		s.Restarts.WithLabelValues(tab).Inc()
	}
}

// IncForceKill records a SIGKILL escalation for tab.
func (s *Set) IncForceKill(tab string) {
	if s != nil {
		s.ForceKills.WithLabelValues(tab).Inc()
	}
}
