package distribution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/events"
	"live-quiz-service/internal/metrics"
)

// Publisher turns a committed game into one envelope per participant.
type Publisher struct {
	bus     Bus
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewPublisher(bus Bus, logger *slog.Logger, m *metrics.Metrics) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{bus: bus, logger: logger, metrics: m}
}

// PublishGame publishes the current state of g to each participant. It must
// only be called after g has been saved. A participant whose event cannot be
// built is skipped; the others still receive theirs.
func (p *Publisher) PublishGame(ctx context.Context, g *domain.Game) error {
	var errs []error
	for _, participant := range g.Participants {
		raw, err := events.BuildEncoded(g, participant)
		if err != nil {
			p.metrics.PublishFailed()
			p.logger.Error("build event", "game_id", g.ID, "participant_id", participant.ParticipantID(), "error", err)
			errs = append(errs, fmt.Errorf("build event for %s: %w", participant.ParticipantID(), err))
			continue
		}
		env := Envelope{GameID: g.ID, ParticipantID: participant.ParticipantID(), Event: raw}
		if err := p.bus.Publish(ctx, env); err != nil {
			p.metrics.PublishFailed()
			p.logger.Warn("publish event", "game_id", g.ID, "participant_id", participant.ParticipantID(), "error", err)
			errs = append(errs, err)
			continue
		}
		p.metrics.EventPublished()
	}
	return errors.Join(errs...)
}
