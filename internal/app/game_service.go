package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
	"live-quiz-service/internal/metrics"
)

// GameRepository stores game documents. Update must apply fn atomically:
// concurrent updates of one game never overwrite each other.
type GameRepository interface {
	Create(ctx context.Context, g *domain.Game) error
	LoadGameByID(ctx context.Context, id string) (*domain.Game, error)
	// FindGameIDByPIN only finds games that are still active.
	FindGameIDByPIN(ctx context.Context, pin string) (string, error)
	Update(ctx context.Context, id string, fn func(*domain.Game) error) (*domain.Game, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultRepository stores final game results, once per game.
type ResultRepository interface {
	SaveResult(ctx context.Context, result domain.GameResult) error
	GetResult(ctx context.Context, gameID string) (domain.GameResult, error)
}

// EventPublisher publishes the state of a committed game.
type EventPublisher interface {
	PublishGame(ctx context.Context, g *domain.Game) error
}

// ErrPINExhausted is returned when no free join code could be found.
var ErrPINExhausted = errors.New("no free game pin")

// errStale marks a timed transition whose task has already moved on.
var errStale = errors.New("task moved on")

const (
	// DefaultPendingDelay is how long a pending task is shown before it activates.
	DefaultPendingDelay = 3 * time.Second
	pinAttempts         = 10
	timerTimeout        = 10 * time.Second
)

// Options configure a GameService. Zero values pick defaults.
type Options struct {
	Clock        func() time.Time
	Logger       *slog.Logger
	Tracer       trace.Tracer
	Metrics      *metrics.Metrics
	PendingDelay time.Duration
}

// GameService contains the game use cases. Every mutation goes through
// GameRepository.Update and is published only after it was committed.
type GameService struct {
	games     GameRepository
	quizzes   QuizRepository
	results   ResultRepository
	publisher EventPublisher
	engine    *engine.Engine
	scheduler *Scheduler

	logger       *slog.Logger
	tracer       trace.Tracer
	metrics      *metrics.Metrics
	pendingDelay time.Duration
	newID        func() string
}

func NewGameService(games GameRepository, quizzes QuizRepository, results ResultRepository, publisher EventPublisher, opts Options) *GameService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.PendingDelay <= 0 {
		opts.PendingDelay = DefaultPendingDelay
	}
	return &GameService{
		games:        games,
		quizzes:      quizzes,
		results:      results,
		publisher:    publisher,
		engine:       engine.New(opts.Clock),
		scheduler:    NewScheduler(),
		logger:       opts.Logger,
		tracer:       opts.Tracer,
		metrics:      opts.Metrics,
		pendingDelay: opts.PendingDelay,
		newID:        uuid.NewString,
	}
}

// Close stops every pending timed transition.
func (s *GameService) Close() {
	s.scheduler.Stop()
}

// CreateGameRequest describes a new game.
type CreateGameRequest struct {
	QuizID       string
	Name         string
	Mode         domain.GameMode
	HostNickname string
}

// CreateGame loads the quiz and opens a lobby hosted by the caller.
func (s *GameService) CreateGame(ctx context.Context, req CreateGameRequest) (g *domain.Game, err error) {
	ctx, span := s.tracer.Start(ctx, "GameService.CreateGame", trace.WithAttributes(attribute.String("quiz.id", req.QuizID)))
	defer func() { endSpan(span, err) }()

	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	name, mode := req.Name, req.Mode
	if name == "" {
		name = quiz.Title
	}
	if mode == "" {
		mode = quiz.Mode
	}

	for attempt := 0; attempt < pinAttempts; attempt++ {
		pin, err := newPIN()
		if err != nil {
			return nil, err
		}
		if _, err := s.games.FindGameIDByPIN(ctx, pin); !errors.Is(err, domain.ErrGameNotFound) {
			if err != nil {
				return nil, err
			}
			continue
		}
		g, err = s.engine.NewGame(engine.NewGameParams{
			ID:           s.newID(),
			Name:         name,
			Mode:         mode,
			PIN:          pin,
			Questions:    quiz.Questions,
			HostID:       s.newID(),
			HostNickname: req.HostNickname,
		})
		if err != nil {
			return nil, err
		}
		break
	}
	if g == nil {
		return nil, ErrPINExhausted
	}
	if err := s.games.Create(ctx, g); err != nil {
		return nil, err
	}
	s.metrics.GameCreated()
	s.logger.Info("game created", "game_id", g.ID, "quiz_id", req.QuizID, "questions", len(g.Questions))
	s.afterCommit(ctx, g, nil)
	return g, nil
}

// Join adds a player to the lobby of the game with the given PIN.
func (s *GameService) Join(ctx context.Context, pin, nickname string) (gameID, playerID string, err error) {
	ctx, span := s.tracer.Start(ctx, "GameService.Join")
	defer func() { endSpan(span, err) }()

	gameID, err = s.games.FindGameIDByPIN(ctx, pin)
	if err != nil {
		return "", "", err
	}
	playerID = s.newID()
	g, err := s.games.Update(ctx, gameID, func(g *domain.Game) error {
		_, err := s.engine.AddPlayer(g, playerID, nickname)
		return err
	})
	if err != nil {
		return "", "", err
	}
	s.metrics.PlayerJoined()
	s.logger.Info("player joined", "game_id", gameID, "player_id", playerID)
	s.afterCommit(ctx, g, nil)
	return gameID, playerID, nil
}

// Leave removes playerID from the lobby. The host may remove anyone; a
// player only themselves.
func (s *GameService) Leave(ctx context.Context, gameID, callerID, playerID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "GameService.Leave", trace.WithAttributes(attribute.String("game.id", gameID)))
	defer func() { endSpan(span, err) }()

	g, err := s.games.Update(ctx, gameID, func(g *domain.Game) error {
		caller, ok := g.Participant(callerID)
		if !ok {
			return domain.ErrParticipantNotFound
		}
		if caller.Type() != domain.ParticipantHost && callerID != playerID {
			return domain.ErrNotHost
		}
		return s.engine.RemovePlayer(g, playerID)
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, g, nil)
	return nil
}

// Advance is the host's "next" button. A pending task is activated right
// away and an active one is completed; the completed state is published and
// the scheduler moves on after the pending delay. Advancing a completed task
// skips that wait.
func (s *GameService) Advance(ctx context.Context, gameID, hostID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "GameService.Advance", trace.WithAttributes(attribute.String("game.id", gameID)))
	defer func() { endSpan(span, err) }()

	var tr *engine.Transition
	g, err := s.games.Update(ctx, gameID, func(g *domain.Game) error {
		tr = nil
		if err := requireHost(g, hostID); err != nil {
			return err
		}
		if g.CurrentTask == nil {
			return domain.ErrMissingCurrentTask
		}
		switch g.CurrentTask.Base().Status {
		case domain.TaskPending:
			return s.engine.Activate(g)
		case domain.TaskActive:
			return s.engine.Finish(g)
		}
		next, err := s.engine.Next(g)
		if err != nil {
			return err
		}
		tr = &next
		return nil
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, g, tr)
	return nil
}

// SubmitAnswer records a player's answer. The question closes early once
// every player has answered.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, playerID string, answer domain.Answer) (err error) {
	ctx, span := s.tracer.Start(ctx, "GameService.SubmitAnswer", trace.WithAttributes(
		attribute.String("game.id", gameID),
		attribute.String("player.id", playerID),
	))
	defer func() { endSpan(span, err) }()

	g, err := s.games.Update(ctx, gameID, func(g *domain.Game) error {
		all, err := s.engine.SubmitAnswer(g, playerID, answer)
		if err != nil {
			return err
		}
		if all {
			return s.engine.Complete(g)
		}
		return nil
	})
	s.metrics.Answer(answerOutcome(err))
	if err != nil {
		return err
	}
	s.afterCommit(ctx, g, nil)
	return nil
}

// Quit ends the game from any state.
func (s *GameService) Quit(ctx context.Context, gameID, hostID string) (err error) {
	ctx, span := s.tracer.Start(ctx, "GameService.Quit", trace.WithAttributes(attribute.String("game.id", gameID)))
	defer func() { endSpan(span, err) }()

	g, err := s.games.Update(ctx, gameID, func(g *domain.Game) error {
		if err := requireHost(g, hostID); err != nil {
			return err
		}
		return s.engine.Quit(g)
	})
	if err != nil {
		return err
	}
	s.logger.Info("game quit", "game_id", gameID)
	s.afterCommit(ctx, g, nil)
	return nil
}

// Game returns the current game document.
func (s *GameService) Game(ctx context.Context, gameID string) (*domain.Game, error) {
	return s.games.LoadGameByID(ctx, gameID)
}

// Result returns the final statistics of a finished game.
func (s *GameService) Result(ctx context.Context, gameID string) (domain.GameResult, error) {
	return s.results.GetResult(ctx, gameID)
}

// afterCommit publishes the committed state, stores a fresh result and
// schedules the next timed transition.
func (s *GameService) afterCommit(ctx context.Context, g *domain.Game, tr *engine.Transition) {
	if tr != nil {
		s.metrics.Transition(string(tr.To))
		if tr.Result != nil {
			if err := s.results.SaveResult(ctx, *tr.Result); err != nil {
				s.logger.Error("save game result", "game_id", g.ID, "error", err)
			} else {
				s.metrics.ResultPersisted()
			}
		}
	}
	if err := s.publisher.PublishGame(ctx, g); err != nil {
		s.logger.Warn("publish game", "game_id", g.ID, "error", err)
	}
	s.schedule(g)
}

// schedule arms the timer that moves g on without the host.
func (s *GameService) schedule(g *domain.Game) {
	task := g.CurrentTask
	taskID := task.Base().ID

	switch {
	case task.Type() == domain.TaskQuit:
		s.scheduler.Cancel(g.ID)

	case task.Base().Status == domain.TaskPending:
		s.scheduler.Schedule(g.ID, s.pendingDelay, func() {
			s.timed(g.ID, taskID, func(g *domain.Game) (*engine.Transition, error) {
				return nil, s.engine.Activate(g)
			})
		})

	case task.Type() == domain.TaskQuestion && task.Base().Status == domain.TaskActive:
		deadline, ok := engine.Deadline(g)
		if !ok {
			return
		}
		s.scheduler.Schedule(g.ID, deadline.Sub(s.engine.Now()), func() {
			s.timed(g.ID, taskID, func(g *domain.Game) (*engine.Transition, error) {
				return nil, s.engine.Complete(g)
			})
		})

	case task.Base().Status == domain.TaskCompleted && task.Type() != domain.TaskPodium:
		s.scheduler.Schedule(g.ID, s.pendingDelay, func() {
			s.timed(g.ID, taskID, func(g *domain.Game) (*engine.Transition, error) {
				tr, err := s.engine.Next(g)
				return &tr, err
			})
		})

	default:
		s.scheduler.Cancel(g.ID)
	}
}

// timed applies a scheduled transition if the game is still on taskID.
func (s *GameService) timed(gameID, taskID string, fn func(*domain.Game) (*engine.Transition, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), timerTimeout)
	defer cancel()

	var tr *engine.Transition
	g, err := s.games.Update(ctx, gameID, func(g *domain.Game) error {
		tr = nil
		if g.CurrentTask == nil || g.CurrentTask.Base().ID != taskID {
			return errStale
		}
		next, err := fn(g)
		tr = next
		return err
	})
	if errors.Is(err, errStale) || errors.Is(err, domain.ErrGameNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("timed transition", "game_id", gameID, "task_id", taskID, "error", err)
		return
	}
	s.afterCommit(ctx, g, tr)
}

func requireHost(g *domain.Game, id string) error {
	p, ok := g.Participant(id)
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.Type() != domain.ParticipantHost {
		return domain.ErrNotHost
	}
	return nil
}

func answerOutcome(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, domain.ErrAnswerAlreadySubmitted):
		return "duplicate"
	case errors.Is(err, domain.ErrAnswerDeadlinePassed):
		return "late"
	default:
		return "rejected"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// newPIN returns a random six digit join code.
func newPIN() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate pin: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
