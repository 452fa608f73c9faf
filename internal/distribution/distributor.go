package distribution

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/events"
	"live-quiz-service/internal/metrics"
)

// DefaultHeartbeat is the keep-alive interval for open streams.
const DefaultHeartbeat = 30 * time.Second

// ErrNotStarted is returned by Stream before Start.
var ErrNotStarted = errors.New("distributor not started")

// GameLoader reads the current game document.
type GameLoader interface {
	LoadGameByID(ctx context.Context, id string) (*domain.Game, error)
}

// Options tune a Distributor. Zero values pick defaults.
type Options struct {
	Heartbeat time.Duration
	Buffer    int
	Clock     func() time.Time
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Streams   *ActiveStreams
}

// Distributor owns the instance-wide bus subscription and the local streams.
type Distributor struct {
	bus       Bus
	games     GameLoader
	logger    *slog.Logger
	metrics   *metrics.Metrics
	streams   *ActiveStreams
	heartbeat time.Duration
	buffer    int
	now       func() time.Time

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
	running     bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

type subscriber struct {
	gameID        string
	participantID string
	live          chan json.RawMessage
}

func NewDistributor(bus Bus, games GameLoader, opts Options) *Distributor {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Streams == nil {
		opts.Streams = NewActiveStreams()
	}
	return &Distributor{
		bus:         bus,
		games:       games,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		streams:     opts.Streams,
		heartbeat:   opts.Heartbeat,
		buffer:      opts.Buffer,
		now:         opts.Clock,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Streams exposes the active stream registry.
func (d *Distributor) Streams() *ActiveStreams {
	return d.streams
}

// Start subscribes to the bus and starts the heartbeat.
func (d *Distributor) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	envelopes, err := d.bus.Subscribe(ctx)
	if err != nil {
		cancel()
		return err
	}
	d.cancel = cancel
	d.running = true

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.relay(envelopes)
	}()
	go func() {
		defer d.wg.Done()
		d.beat(ctx)
	}()
	return nil
}

// Stop cancels the bus subscription and heartbeat and ends every stream.
func (d *Distributor) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	for s := range d.subscribers {
		delete(d.subscribers, s)
		close(s.live)
	}
	d.mu.Unlock()
}

// Stream opens a participant's event stream: the event for the current
// state first, then every live event addressed to the participant. The
// returned channel is closed when ctx is done or the distributor stops.
func (d *Distributor) Stream(ctx context.Context, gameID, participantID string) (<-chan json.RawMessage, error) {
	// register before loading so nothing committed in between is missed
	sub := &subscriber{gameID: gameID, participantID: participantID, live: make(chan json.RawMessage, d.buffer)}
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil, ErrNotStarted
	}
	d.subscribers[sub] = struct{}{}
	d.mu.Unlock()

	g, err := d.games.LoadGameByID(ctx, gameID)
	if err != nil {
		d.unsubscribe(sub)
		return nil, err
	}
	participant, ok := g.Participant(participantID)
	if !ok {
		d.unsubscribe(sub)
		return nil, domain.ErrParticipantNotFound
	}

	initial, err := events.BuildEncoded(g, participant)
	if err != nil {
		d.logger.Error("build initial event", "game_id", gameID, "participant_id", participantID, "error", err)
	}

	if d.streams.Add(gameID, participantID) {
		d.logger.Warn("participant opened a second stream", "game_id", gameID, "participant_id", participantID)
	}
	d.metrics.SetActiveStreams(d.streams.Total())

	out := make(chan json.RawMessage, d.buffer)
	go func() {
		defer close(out)
		defer func() {
			d.unsubscribe(sub)
			d.streams.Remove(gameID, participantID)
			d.metrics.SetActiveStreams(d.streams.Total())
		}()

		if initial != nil {
			select {
			case out <- initial:
			case <-ctx.Done():
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.live:
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (d *Distributor) unsubscribe(s *subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[s]; ok {
		delete(d.subscribers, s)
		close(s.live)
	}
}

func (d *Distributor) relay(envelopes <-chan Envelope) {
	for env := range envelopes {
		if len(env.Event) == 0 {
			d.logger.Warn("dropping envelope without event", "game_id", env.GameID)
			continue
		}
		d.dispatch(env)
	}
}

func (d *Distributor) beat(ctx context.Context) {
	ticker := time.NewTicker(d.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := events.Encode(events.NewHeartbeat(d.now()))
			if err != nil {
				d.logger.Error("encode heartbeat", "error", err)
				continue
			}
			d.dispatch(Envelope{Event: raw})
		}
	}
}

// dispatch hands an envelope to every matching subscriber. A subscriber
// whose buffer is full loses its oldest pending event.
func (d *Distributor) dispatch(env Envelope) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for s := range d.subscribers {
		if !env.Matches(s.gameID, s.participantID) {
			continue
		}
		select {
		case s.live <- env.Event:
			continue
		default:
		}
		select {
		case <-s.live:
		default:
		}
		select {
		case s.live <- env.Event:
		default:
			d.logger.Warn("dropping event for slow stream", "game_id", s.gameID, "participant_id", s.participantID)
		}
	}
}
