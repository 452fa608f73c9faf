// Package engine drives a game through its task lifecycle:
//
//	Lobby -> Question -> QuestionResult -> Leaderboard -> Question ... -> Podium
//
// with Quit reachable from any state. Every task moves pending -> active ->
// completed before the next one is created. The engine only mutates the game
// in memory; loading and saving is the caller's job.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/leaderboard"
	"live-quiz-service/internal/results"
	"live-quiz-service/internal/scoring"
)

// Engine applies task transitions. It is stateless apart from its clock.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// New returns an engine using the given clock. A nil clock means time.Now.
func New(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now, newID: uuid.NewString}
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Transition describes what Next or Advance did.
type Transition struct {
	From domain.TaskType
	To   domain.TaskType
	// Result is set once, when the game enters the podium.
	Result *domain.GameResult
}

// NewGameParams describes a game to create.
type NewGameParams struct {
	ID           string
	Name         string
	Mode         domain.GameMode
	PIN          string
	Questions    []domain.Question
	HostID       string
	HostNickname string
}

// NewGame creates a game in a pending lobby with the host as only participant.
func (e *Engine) NewGame(p NewGameParams) (*domain.Game, error) {
	if len(p.Questions) == 0 {
		return nil, fmt.Errorf("game has no questions: %w", domain.ErrQuestionIndexOutOfRange)
	}
	mode := p.Mode
	if mode == "" {
		mode = domain.ModeClassic
	}
	for i, q := range p.Questions {
		if _, err := scoring.For(mode, q.Type()); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	id := p.ID
	if id == "" {
		id = e.newID()
	}
	now := e.now()
	return &domain.Game{
		ID:        id,
		Name:      p.Name,
		Mode:      mode,
		Status:    domain.GameActive,
		PIN:       p.PIN,
		Questions: p.Questions,
		Participants: []domain.Participant{
			&domain.Host{ID: p.HostID, Nickname: p.HostNickname, Created: now, Updated: now},
		},
		CurrentTask: &domain.LobbyTask{TaskBase: e.newTaskBase(now)},
		Created:     now,
		Updated:     now,
	}, nil
}

// AddPlayer appends a player while the lobby is open. Joining again with the
// same id returns the existing player.
func (e *Engine) AddPlayer(g *domain.Game, id, nickname string) (*domain.Player, error) {
	if existing, ok := g.Participant(id); ok {
		player, ok := existing.(*domain.Player)
		if !ok {
			return nil, domain.ErrNotPlayer
		}
		return player, nil
	}
	lobby, ok := g.CurrentTask.(*domain.LobbyTask)
	if !ok || lobby.Status == domain.TaskCompleted || g.Status != domain.GameActive {
		return nil, domain.ErrGameNotJoinable
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, domain.ErrInvalidNickname
	}
	if g.NicknameTaken(nickname) {
		return nil, domain.ErrNicknameTaken
	}
	now := e.now()
	player := &domain.Player{ID: id, Nickname: nickname, Created: now, Updated: now}
	g.Participants = append(g.Participants, player)
	g.Updated = now
	return player, nil
}

// RemovePlayer removes a player from the lobby.
func (e *Engine) RemovePlayer(g *domain.Game, id string) error {
	if _, ok := g.CurrentTask.(*domain.LobbyTask); !ok {
		return fmt.Errorf("players can only leave the lobby: %w", domain.ErrInvalidTransition)
	}
	for i, p := range g.Participants {
		if p.ParticipantID() != id {
			continue
		}
		if p.Type() != domain.ParticipantPlayer {
			return domain.ErrNotPlayer
		}
		g.Participants = append(g.Participants[:i], g.Participants[i+1:]...)
		g.Updated = e.now()
		return nil
	}
	return domain.ErrParticipantNotFound
}

// Activate moves the current task from pending to active. Activating a
// question stamps its presentation time and clears its answers.
func (e *Engine) Activate(g *domain.Game) error {
	task, err := current(g)
	if err != nil {
		return err
	}
	base := task.Base()
	if base.Status != domain.TaskPending {
		return fmt.Errorf("activate %s in status %s: %w", task.Type(), base.Status, domain.ErrInvalidTransition)
	}
	now := e.now()
	if q, ok := task.(*domain.QuestionTask); ok {
		if _, err := g.QuestionAt(q.QuestionIndex); err != nil {
			return err
		}
		q.Presented = &now
		q.Answers = nil
	}
	base.Status = domain.TaskActive
	g.Updated = now
	return nil
}

// Complete moves the current task from active to completed.
func (e *Engine) Complete(g *domain.Game) error {
	task, err := current(g)
	if err != nil {
		return err
	}
	base := task.Base()
	if base.Status != domain.TaskActive {
		return fmt.Errorf("complete %s in status %s: %w", task.Type(), base.Status, domain.ErrInvalidTransition)
	}
	base.Status = domain.TaskCompleted
	g.Updated = e.now()
	return nil
}

// Finish is the host closing the active task. The lobby needs at least one
// player and the terminal tasks cannot be finished.
func (e *Engine) Finish(g *domain.Game) error {
	task, err := current(g)
	if err != nil {
		return err
	}
	switch task.(type) {
	case *domain.LobbyTask:
		if len(g.Players()) == 0 {
			return fmt.Errorf("cannot start without players: %w", domain.ErrInvalidTransition)
		}
	case *domain.PodiumTask, *domain.QuitTask:
		return fmt.Errorf("finish terminal %s: %w", task.Type(), domain.ErrInvalidTransition)
	}
	return e.Complete(g)
}

// Advance finishes an active task and moves on to the next one in a single
// step.
func (e *Engine) Advance(g *domain.Game) (Transition, error) {
	task, err := current(g)
	if err != nil {
		return Transition{}, err
	}
	if task.Base().Status == domain.TaskActive {
		if err := e.Finish(g); err != nil {
			return Transition{}, err
		}
	}
	return e.Next(g)
}

// Next archives the completed current task and installs the following one
// in pending status.
func (e *Engine) Next(g *domain.Game) (Transition, error) {
	task, err := current(g)
	if err != nil {
		return Transition{}, err
	}
	if task.Base().Status != domain.TaskCompleted {
		return Transition{}, fmt.Errorf("next from %s in status %s: %w", task.Type(), task.Base().Status, domain.ErrInvalidTransition)
	}

	now := e.now()
	var next domain.Task
	switch t := task.(type) {
	case *domain.LobbyTask:
		next, err = e.questionTask(g, 0, now)
	case *domain.QuestionTask:
		next, err = e.closeQuestion(g, t, now)
	case *domain.QuestionResultTask:
		if t.QuestionIndex+1 < len(g.Questions) {
			next = e.leaderboardTask(g, now)
		} else {
			next = e.podiumTask(g, now)
		}
	case *domain.LeaderboardTask:
		index := nextQuestionIndex(g)
		if index < len(g.Questions) {
			next, err = e.questionTask(g, index, now)
		} else {
			next = e.podiumTask(g, now)
		}
	case *domain.PodiumTask, *domain.QuitTask:
		return Transition{}, fmt.Errorf("next from terminal %s: %w", task.Type(), domain.ErrInvalidTransition)
	default:
		return Transition{}, fmt.Errorf("%T: %w", task, domain.ErrUnknownTask)
	}
	if err != nil {
		return Transition{}, err
	}

	g.PreviousTasks = append(g.PreviousTasks, task)
	g.CurrentTask = next
	g.Updated = now

	tr := Transition{From: task.Type(), To: next.Type()}
	if next.Type() == domain.TaskPodium {
		g.Status = domain.GameCompleted
		result, err := results.Build(g, now)
		if err != nil {
			return Transition{}, err
		}
		tr.Result = &result
	}
	return tr, nil
}

// Quit abandons the game from any state except Quit itself. The quit task
// remembers whether the game was still running.
func (e *Engine) Quit(g *domain.Game) error {
	task, err := current(g)
	if err != nil {
		return err
	}
	if _, ok := task.(*domain.QuitTask); ok {
		return fmt.Errorf("game already quit: %w", domain.ErrInvalidTransition)
	}
	now := e.now()
	base := e.newTaskBase(now)
	base.Status = domain.TaskActive
	g.PreviousTasks = append(g.PreviousTasks, task)
	g.CurrentTask = &domain.QuitTask{TaskBase: base, GameStatus: g.Status}
	g.Status = domain.GameCompleted
	g.Updated = now
	return nil
}

// SubmitAnswer records a player's answer to the active question. It reports
// whether every player has now answered.
func (e *Engine) SubmitAnswer(g *domain.Game, playerID string, a domain.Answer) (bool, error) {
	qt, ok := g.CurrentTask.(*domain.QuestionTask)
	if !ok || qt.Status != domain.TaskActive || qt.Presented == nil {
		return false, domain.ErrQuestionNotActive
	}
	participant, ok := g.Participant(playerID)
	if !ok {
		return false, domain.ErrParticipantNotFound
	}
	if participant.Type() != domain.ParticipantPlayer {
		return false, domain.ErrNotPlayer
	}
	q, err := g.QuestionAt(qt.QuestionIndex)
	if err != nil {
		return false, err
	}
	if a == nil || a.Type() != q.Type() {
		return false, domain.ErrAnswerTypeMismatch
	}
	if err := scoring.CheckBounds(q, a); err != nil {
		return false, err
	}
	if _, answered := qt.AnswerBy(playerID); answered {
		return false, domain.ErrAnswerAlreadySubmitted
	}
	now := e.now()
	if now.After(qt.Presented.Add(q.Base().TimeLimit())) {
		return false, domain.ErrAnswerDeadlinePassed
	}
	domain.SetAnswerBase(a, playerID, now)
	qt.Answers = append(qt.Answers, a)
	g.Updated = now
	return len(qt.Answers) >= len(g.Players()), nil
}

// Deadline returns when the active question closes.
func Deadline(g *domain.Game) (time.Time, bool) {
	qt, ok := g.CurrentTask.(*domain.QuestionTask)
	if !ok || qt.Presented == nil {
		return time.Time{}, false
	}
	q, err := g.QuestionAt(qt.QuestionIndex)
	if err != nil {
		return time.Time{}, false
	}
	return qt.Presented.Add(q.Base().TimeLimit()), true
}

func current(g *domain.Game) (domain.Task, error) {
	if g.CurrentTask == nil {
		return nil, domain.ErrMissingCurrentTask
	}
	return g.CurrentTask, nil
}

func (e *Engine) newTaskBase(now time.Time) domain.TaskBase {
	return domain.TaskBase{ID: e.newID(), Status: domain.TaskPending, Created: now}
}

func (e *Engine) questionTask(g *domain.Game, index int, now time.Time) (*domain.QuestionTask, error) {
	if _, err := g.QuestionAt(index); err != nil {
		return nil, fmt.Errorf("question %d: %w", index, err)
	}
	return &domain.QuestionTask{TaskBase: e.newTaskBase(now), QuestionIndex: index}, nil
}

// closeQuestion scores every player against the question and ranks them.
func (e *Engine) closeQuestion(g *domain.Game, qt *domain.QuestionTask, now time.Time) (*domain.QuestionResultTask, error) {
	q, err := g.QuestionAt(qt.QuestionIndex)
	if err != nil {
		return nil, fmt.Errorf("close question %d: %w", qt.QuestionIndex, err)
	}
	presented := qt.Created
	if qt.Presented != nil {
		presented = *qt.Presented
	}

	players := g.Players()
	previous := make([]domain.LeaderboardEntry, 0, len(players))
	for _, p := range players {
		if p.Rank > 0 {
			previous = append(previous, domain.LeaderboardEntry{PlayerID: p.ID, Position: p.Rank})
		}
	}

	outcomes := make(map[string]domain.QuestionResultEntry, len(players))
	for _, p := range players {
		a, _ := qt.AnswerBy(p.ID)
		outcome, err := scoring.Evaluate(g.Mode, presented, q, a)
		if err != nil {
			return nil, err
		}
		p.TotalScore += outcome.Score
		if outcome.Correct {
			p.CurrentStreak++
		} else {
			p.CurrentStreak = 0
		}
		if a != nil {
			p.TotalResponseTime += a.Base().Created.Sub(presented).Milliseconds()
			p.ResponseCount++
		}
		p.Updated = now
		outcomes[p.ID] = domain.QuestionResultEntry{
			PlayerID:   p.ID,
			Nickname:   p.Nickname,
			Answer:     a,
			Correct:    outcome.Correct,
			LastScore:  outcome.Score,
			TotalScore: p.TotalScore,
			Streak:     p.CurrentStreak,
		}
	}

	ranking := leaderboard.Rank(players, previous)
	byID := make(map[string]*domain.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	entries := make([]domain.QuestionResultEntry, 0, len(ranking))
	for _, r := range ranking {
		p := byID[r.PlayerID]
		p.Rank = r.Position
		if r.Position > p.WorstRank {
			p.WorstRank = r.Position
		}
		entry := outcomes[r.PlayerID]
		entry.Position = r.Position
		entries = append(entries, entry)
	}

	return &domain.QuestionResultTask{
		TaskBase:      e.newTaskBase(now),
		QuestionIndex: qt.QuestionIndex,
		Results:       entries,
	}, nil
}

func (e *Engine) leaderboardTask(g *domain.Game, now time.Time) *domain.LeaderboardTask {
	return &domain.LeaderboardTask{
		TaskBase:    e.newTaskBase(now),
		Leaderboard: leaderboard.Rank(g.Players(), previousLeaderboard(g)),
	}
}

func (e *Engine) podiumTask(g *domain.Game, now time.Time) *domain.PodiumTask {
	return &domain.PodiumTask{
		TaskBase:    e.newTaskBase(now),
		Leaderboard: leaderboard.Rank(g.Players(), previousLeaderboard(g)),
	}
}

func previousLeaderboard(g *domain.Game) []domain.LeaderboardEntry {
	if t, ok := g.LastTaskOf(domain.TaskLeaderboard); ok {
		return t.(*domain.LeaderboardTask).Leaderboard
	}
	return nil
}

func nextQuestionIndex(g *domain.Game) int {
	if t, ok := g.LastTaskOf(domain.TaskQuestionResult); ok {
		return t.(*domain.QuestionResultTask).QuestionIndex + 1
	}
	return 0
}
