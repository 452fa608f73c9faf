package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.GameCreated()
	m.Answer("accepted")
	m.Answer("accepted")
	m.Answer("duplicate")
	m.SetActiveStreams(3)

	if got := testutil.ToFloat64(m.gamesCreated); got != 1 {
		t.Fatalf("expected 1 game, got %v", got)
	}
	if got := testutil.ToFloat64(m.answers.WithLabelValues("accepted")); got != 2 {
		t.Fatalf("expected 2 accepted answers, got %v", got)
	}
	if got := testutil.ToFloat64(m.activeStreams); got != 3 {
		t.Fatalf("expected 3 streams, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.GameCreated()
	m.Transition("Question")
	m.SetActiveStreams(1)
}
