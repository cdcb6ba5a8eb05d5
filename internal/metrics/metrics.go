// Copyright 2026 The Histoflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics registers the engine's Prometheus collectors: the
// admission cap gauge, pending queue depth, job duration histogram, and
// terminal-state counters named in spec.md §3's domain stack.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveUserCap reports the scheduler's configured MaxActiveUsers.
	ActiveUserCap = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "histoflow_scheduler_active_user_cap",
			Help: "Configured maximum number of concurrently active users",
		},
	)

	// ActiveUsers reports the current active-user set cardinality.
	ActiveUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "histoflow_scheduler_active_users",
			Help: "Current number of users with at least one RUNNING job",
		},
	)

	// PendingQueueDepth reports the length of the global pending queue.
	PendingQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "histoflow_scheduler_pending_jobs",
			Help: "Number of jobs waiting in the global pending queue",
		},
	)

	// RunningJobs reports the size of the running-job set.
	RunningJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "histoflow_scheduler_running_jobs",
			Help: "Number of jobs currently RUNNING",
		},
	)

	// JobDuration observes wall-clock duration of a job instance from
	// RUNNING to a terminal state, labeled by template.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "histoflow_job_duration_seconds",
			Help:    "Job execution duration in seconds, by template",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"template"},
	)

	// JobsTerminal counts jobs reaching SUCCESS or FAILED, labeled by
	// template and terminal status.
	JobsTerminal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "histoflow_jobs_terminal_total",
			Help: "Total jobs reaching a terminal state, by template and status",
		},
		[]string{"template", "status"},
	)
)

// ObserveJobDuration records d for template under status.
func ObserveJobDuration(template, status string, d time.Duration) {
	JobDuration.WithLabelValues(template).Observe(d.Seconds())
	JobsTerminal.WithLabelValues(template, status).Inc()
}

// RefreshGauges sets the point-in-time gauges from a status snapshot. The
// caller supplies plain values so this package never imports internal/status
// directly.
func RefreshGauges(maxActiveUsers, activeUsers, pendingJobs, runningJobs int) {
	ActiveUserCap.Set(float64(maxActiveUsers))
	ActiveUsers.Set(float64(activeUsers))
	PendingQueueDepth.Set(float64(pendingJobs))
	RunningJobs.Set(float64(runningJobs))
}
