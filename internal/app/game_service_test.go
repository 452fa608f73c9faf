package app

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
	"live-quiz-service/internal/infra/memory"
)

type recordingPublisher struct {
	mu    sync.Mutex
	games []*domain.Game
	err   error
}

func (p *recordingPublisher) PublishGame(_ context.Context, g *domain.Game) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.games = append(p.games, g)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.games)
}

func (p *recordingPublisher) last() *domain.Game {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.games[len(p.games)-1]
}

type fixture struct {
	svc       *GameService
	games     *memory.GameStore
	results   *memory.ResultStore
	publisher *recordingPublisher
}

func quizzes() *memory.QuizRepository {
	return memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"arithmetic": {
			ID:    "arithmetic",
			Title: "Arithmetic",
			Questions: []domain.Question{
				&domain.MultiChoiceQuestion{
					QuestionBase: domain.QuestionBase{Text: "2 + 2", Points: 1000, Duration: 30},
					Options:      []domain.Option{{Value: "3"}, {Value: "4", Correct: true}},
				},
			},
		},
		"sprint": {
			ID:    "sprint",
			Title: "Sprint",
			Questions: []domain.Question{
				&domain.TrueFalseQuestion{
					QuestionBase: domain.QuestionBase{Text: "Go has generics", Duration: 1},
					Correct:      true,
				},
			},
		},
	}), time.Minute)
}

// newFixture uses a long pending delay so timers stay out of the way unless
// a test asks for them.
func newFixture(t *testing.T, pendingDelay time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		games:     memory.NewGameStore(),
		results:   memory.NewResultStore(),
		publisher: &recordingPublisher{},
	}
	f.svc = NewGameService(f.games, quizzes(), f.results, f.publisher, Options{PendingDelay: pendingDelay})
	t.Cleanup(f.svc.Close)
	return f
}

func (f *fixture) create(t *testing.T, quizID string) *domain.Game {
	t.Helper()
	g, err := f.svc.CreateGame(context.Background(), CreateGameRequest{QuizID: quizID, HostNickname: "Quizmaster"})
	require.NoError(t, err)
	return g
}

func (f *fixture) join(t *testing.T, g *domain.Game, nickname string) string {
	t.Helper()
	gameID, playerID, err := f.svc.Join(context.Background(), g.PIN, nickname)
	require.NoError(t, err)
	require.Equal(t, g.ID, gameID)
	return playerID
}

func (f *fixture) load(t *testing.T, id string) *domain.Game {
	t.Helper()
	g, err := f.games.LoadGameByID(context.Background(), id)
	require.NoError(t, err)
	return g
}

func hostID(t *testing.T, g *domain.Game) string {
	t.Helper()
	h, ok := g.Host()
	require.True(t, ok)
	return h.ID
}

func TestCreateGameOpensLobby(t *testing.T) {
	f := newFixture(t, time.Hour)
	g := f.create(t, "arithmetic")

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), g.PIN)
	assert.Equal(t, "Arithmetic", g.Name)
	assert.Equal(t, domain.ModeClassic, g.Mode)
	assert.Equal(t, domain.TaskLobby, g.CurrentTask.Type())
	assert.Equal(t, domain.TaskPending, g.CurrentTask.Base().Status)
	assert.Equal(t, 1, f.publisher.count())
	assert.Equal(t, "Quizmaster", f.load(t, g.ID).Participants[0].Name())

	_, err := f.svc.CreateGame(context.Background(), CreateGameRequest{QuizID: "missing"})
	assert.ErrorIs(t, err, domain.ErrQuizNotFound)
}

func TestJoin(t *testing.T) {
	f := newFixture(t, time.Hour)
	g := f.create(t, "arithmetic")

	nickname := gofakeit.Username()
	f.join(t, g, nickname)

	_, _, err := f.svc.Join(context.Background(), g.PIN, nickname)
	assert.ErrorIs(t, err, domain.ErrNicknameTaken)

	_, _, err = f.svc.Join(context.Background(), "nope", gofakeit.Username())
	assert.ErrorIs(t, err, domain.ErrGameNotFound)

	assert.Len(t, f.load(t, g.ID).Players(), 1)
}

func TestLeave(t *testing.T) {
	f := newFixture(t, time.Hour)
	g := f.create(t, "arithmetic")
	alice := f.join(t, g, "alice")
	bob := f.join(t, g, "bob")
	carol := f.join(t, g, "carol")

	assert.ErrorIs(t, f.svc.Leave(context.Background(), g.ID, alice, bob), domain.ErrNotHost)
	require.NoError(t, f.svc.Leave(context.Background(), g.ID, alice, alice))
	require.NoError(t, f.svc.Leave(context.Background(), g.ID, hostID(t, g), bob))

	players := f.load(t, g.ID).Players()
	require.Len(t, players, 1)
	assert.Equal(t, carol, players[0].ID)
}

func TestAdvanceRequiresHost(t *testing.T) {
	f := newFixture(t, time.Hour)
	g := f.create(t, "arithmetic")
	player := f.join(t, g, "alice")

	assert.ErrorIs(t, f.svc.Advance(context.Background(), g.ID, player), domain.ErrNotHost)
	assert.ErrorIs(t, f.svc.Advance(context.Background(), g.ID, "stranger"), domain.ErrParticipantNotFound)
	assert.ErrorIs(t, f.svc.Quit(context.Background(), g.ID, player), domain.ErrNotHost)
	assert.ErrorIs(t, f.svc.Advance(context.Background(), "missing", player), domain.ErrGameNotFound)
}

func TestFullGameStoresResult(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	g := f.create(t, "arithmetic")
	host := hostID(t, g)
	alice := f.join(t, g, "alice")
	bob := f.join(t, g, "bob")

	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // activate lobby
	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // lobby completed
	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // question pending
	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // question active

	require.NoError(t, f.svc.SubmitAnswer(ctx, g.ID, alice, &domain.MultiChoiceAnswer{OptionIndex: 1}))
	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, g.ID, alice, &domain.MultiChoiceAnswer{OptionIndex: 0}), domain.ErrAnswerAlreadySubmitted)
	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, g.ID, host, &domain.MultiChoiceAnswer{OptionIndex: 1}), domain.ErrNotPlayer)
	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, g.ID, bob, &domain.TrueFalseAnswer{Value: true}), domain.ErrAnswerTypeMismatch)
	require.NoError(t, f.svc.SubmitAnswer(ctx, g.ID, bob, &domain.MultiChoiceAnswer{OptionIndex: 0}))

	// last answer closes the question
	current := f.load(t, g.ID).CurrentTask
	require.Equal(t, domain.TaskQuestion, current.Type())
	require.Equal(t, domain.TaskCompleted, current.Base().Status)

	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // question result pending
	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // question result active
	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // question result completed
	require.NoError(t, f.svc.Advance(ctx, g.ID, host)) // podium pending

	final := f.load(t, g.ID)
	assert.Equal(t, domain.TaskPodium, final.CurrentTask.Type())
	assert.Equal(t, domain.GameCompleted, final.Status)

	result, err := f.svc.Result(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.NumberOfPlayers)
	assert.Equal(t, 1, result.NumberOfQuestions)
	require.Len(t, result.Players, 2)
	assert.Equal(t, "alice", result.Players[0].Nickname)
	assert.Equal(t, 1, result.Players[0].Correct)

	_, _, err = f.svc.Join(ctx, g.PIN, "late")
	assert.ErrorIs(t, err, domain.ErrGameNotFound)
}

func TestConcurrentAnswersAreAllRecorded(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	g := f.create(t, "arithmetic")
	host := hostID(t, g)

	const players = 12
	ids := make([]string, players)
	for i := range ids {
		ids[i] = f.join(t, g, gofakeit.Username()+gofakeit.DigitN(4))
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, f.svc.Advance(ctx, g.ID, host))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			assert.NoError(t, f.svc.SubmitAnswer(ctx, g.ID, id, &domain.MultiChoiceAnswer{OptionIndex: 1}))
		}(id)
	}
	wg.Wait()

	qt, ok := f.load(t, g.ID).CurrentTask.(*domain.QuestionTask)
	require.True(t, ok)
	assert.Len(t, qt.Answers, players)
	assert.Equal(t, domain.TaskCompleted, qt.Status)
}

func (p *recordingPublisher) states() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.games))
	for _, g := range p.games {
		out = append(out, string(g.CurrentTask.Type())+"/"+string(g.CurrentTask.Base().Status))
	}
	return out
}

func TestHostAdvancePublishesCompletedTask(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	ctx := context.Background()
	g := f.create(t, "arithmetic")
	host := hostID(t, g)
	alice := f.join(t, g, "alice")

	require.Eventually(t, func() bool {
		return f.load(t, g.ID).CurrentTask.Base().Status == domain.TaskActive
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.Advance(ctx, g.ID, host))
	assert.Contains(t, f.publisher.states(), "Lobby/completed")

	// the scheduler takes the game on to the question
	require.Eventually(t, func() bool {
		current := f.load(t, g.ID).CurrentTask
		return current.Type() == domain.TaskQuestion && current.Base().Status == domain.TaskActive
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.Advance(ctx, g.ID, host))
	assert.Contains(t, f.publisher.states(), "Question/completed")
	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, g.ID, alice, &domain.MultiChoiceAnswer{OptionIndex: 1}), domain.ErrQuestionNotActive)

	require.Eventually(t, func() bool {
		return f.load(t, g.ID).CurrentTask.Type() == domain.TaskQuestionResult
	}, time.Second, 5*time.Millisecond)

	assert.Subset(t, f.publisher.states(), []string{
		"Lobby/pending", "Lobby/active", "Lobby/completed",
		"Question/pending", "Question/active", "Question/completed",
		"QuestionResult/pending",
	})
}

func TestQuitPublishesAndCancelsTimers(t *testing.T) {
	f := newFixture(t, time.Hour)
	g := f.create(t, "arithmetic")
	require.True(t, f.svc.scheduler.Pending(g.ID))

	require.NoError(t, f.svc.Quit(context.Background(), g.ID, hostID(t, g)))
	assert.Equal(t, domain.TaskQuit, f.publisher.last().CurrentTask.Type())
	assert.False(t, f.svc.scheduler.Pending(g.ID))

	err := f.svc.Quit(context.Background(), g.ID, hostID(t, g))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.publisher.err = errors.New("bus down")

	g := f.create(t, "arithmetic")
	f.join(t, g, "alice")
	assert.Len(t, f.load(t, g.ID).Players(), 1)
}

func TestStaleTimedTransitionIsIgnored(t *testing.T) {
	f := newFixture(t, time.Hour)
	g := f.create(t, "arithmetic")
	published := f.publisher.count()

	f.svc.timed(g.ID, "some-old-task", func(g *domain.Game) (*engine.Transition, error) {
		t.Fatalf("stale transition must not run")
		return nil, nil
	})
	assert.Equal(t, published, f.publisher.count())
	assert.Equal(t, domain.TaskPending, f.load(t, g.ID).CurrentTask.Base().Status)
}

func TestTimersDriveQuestionWithoutHost(t *testing.T) {
	f := newFixture(t, 20*time.Millisecond)
	ctx := context.Background()
	g := f.create(t, "sprint")
	host := hostID(t, g)
	f.join(t, g, "alice")

	// lobby activates on its own
	require.Eventually(t, func() bool {
		return f.load(t, g.ID).CurrentTask.Base().Status == domain.TaskActive
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.Advance(ctx, g.ID, host))

	// question activates, times out after one second, and the result is shown
	require.Eventually(t, func() bool {
		current := f.load(t, g.ID).CurrentTask
		return current.Type() == domain.TaskQuestionResult && current.Base().Status == domain.TaskActive
	}, 3*time.Second, 20*time.Millisecond)

	qr, ok := f.load(t, g.ID).CurrentTask.(*domain.QuestionResultTask)
	require.True(t, ok)
	require.Len(t, qr.Results, 1)
	assert.Nil(t, qr.Results[0].Answer)
	assert.Zero(t, qr.Results[0].LastScore)
}
