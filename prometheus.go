// Copyright 2015 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relauncher

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics with Prometheus collectors kept in
// a private registry.
type PrometheusMetrics struct {
	launches   *prometheus.CounterVec
	restarts   *prometheus.CounterVec
	spawnFails *prometheus.CounterVec
	probeFails *prometheus.CounterVec
	forceKills *prometheus.CounterVec
	live       prometheus.Gauge
	registry   *prometheus.Registry
}

// NewPrometheusMetrics creates the collectors under namespace, which
// defaults to "relauncher".
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	if namespace == "" {
		namespace = "relauncher"
	}
	pm := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
	}
	pm.launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Total number of successful launches",
		},
		[]string{"app"},
	)
	pm.restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restarts_total",
			Help:      "Total number of restarts by reason",
		},
		[]string{"app", "reason"},
	)
	pm.spawnFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spawn_failures_total",
			Help:      "Total number of launches refused by the operating system",
		},
		[]string{"app"},
	)
	pm.probeFails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Total number of failed startup checks",
		},
		[]string{"app", "check"},
	)
	pm.forceKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "force_kills_total",
			Help:      "Total number of processes killed after the grace window",
		},
		[]string{"app"},
	)
	pm.live = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_processes",
			Help:      "Number of supervised processes currently tracked",
		},
	)
	pm.registry.MustRegister(
		pm.launches,
		pm.restarts,
		pm.spawnFails,
		pm.probeFails,
		pm.forceKills,
		pm.live,
	)
	return pm
}

func (pm *PrometheusMetrics) Launched(name string) {
	pm.launches.WithLabelValues(name).Inc()
}

func (pm *PrometheusMetrics) Restarted(name string, reason string) {
	pm.restarts.WithLabelValues(name, reason).Inc()
}

func (pm *PrometheusMetrics) SpawnFailed(name string) {
	pm.spawnFails.WithLabelValues(name).Inc()
}

func (pm *PrometheusMetrics) ProbeFailed(name string, check string) {
	pm.probeFails.WithLabelValues(name, check).Inc()
}

func (pm *PrometheusMetrics) ForceKilled(name string, count int) {
	if count > 0 {
		pm.forceKills.WithLabelValues(name).Add(float64(count))
	}
}

func (pm *PrometheusMetrics) Live(count int) {
	pm.live.Set(float64(count))
}

// Registry returns the registry holding the collectors.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{})
}
