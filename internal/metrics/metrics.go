// Package metrics holds the Prometheus collectors of the game engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "live_quiz"

type Metrics struct {
	gamesCreated     prometheus.Counter
	playersJoined    prometheus.Counter
	answers          *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	activeStreams    prometheus.Gauge
	eventsPublished  prometheus.Counter
	publishFailures  prometheus.Counter
	updateConflicts  prometheus.Counter
	resultsPersisted prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gamesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "games_created_total",
			Help: "Games created.",
		}),
		playersJoined: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "players_joined_total",
			Help: "Players that joined a lobby.",
		}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "answers_total",
			Help: "Answer submissions by outcome.",
		}, []string{"outcome"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "task_transitions_total",
			Help: "Task transitions by target task type.",
		}, []string{"task"}),
		activeStreams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "active_streams",
			Help: "Open participant event streams on this instance.",
		}),
		eventsPublished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_published_total",
			Help: "Envelopes published to the event bus.",
		}),
		publishFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "event_publish_failures_total",
			Help: "Envelopes that could not be built or published.",
		}),
		updateConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "game_update_conflicts_total",
			Help: "Optimistic locking retries on game documents.",
		}),
		resultsPersisted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "game_results_total",
			Help: "Game results stored.",
		}),
	}
}

func (m *Metrics) GameCreated() {
	if m != nil {
		m.gamesCreated.Inc()
	}
}

func (m *Metrics) PlayerJoined() {
	if m != nil {
		m.playersJoined.Inc()
	}
}

// Answer records an answer outcome such as "accepted" or a rejection reason.
func (m *Metrics) Answer(outcome string) {
	if m != nil {
		m.answers.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Transition(task string) {
	if m != nil {
		m.transitions.WithLabelValues(task).Inc()
	}
}

func (m *Metrics) SetActiveStreams(n int) {
	if m != nil {
		m.activeStreams.Set(float64(n))
	}
}

func (m *Metrics) EventPublished() {
	if m != nil {
		m.eventsPublished.Inc()
	}
}

func (m *Metrics) PublishFailed() {
	if m != nil {
		m.publishFailures.Inc()
	}
}

func (m *Metrics) UpdateConflict() {
	if m != nil {
		m.updateConflicts.Inc()
	}
}

func (m *Metrics) ResultPersisted() {
	if m != nil {
		m.resultsPersisted.Inc()
	}
}
