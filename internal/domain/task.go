package domain

import "time"

// TaskType discriminates the Task union.
type TaskType string

const (
	TaskLobby          TaskType = "Lobby"
	TaskQuestion       TaskType = "Question"
	TaskQuestionResult TaskType = "QuestionResult"
	TaskLeaderboard    TaskType = "Leaderboard"
	TaskPodium         TaskType = "Podium"
	TaskQuit           TaskType = "Quit"
)

// TaskStatus is the lifecycle of a single task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
)

// TaskBase holds the fields shared by every task.
type TaskBase struct {
	ID      string     `json:"id"`
	Status  TaskStatus `json:"status"`
	Created time.Time  `json:"created"`
}

// Task is a closed union over the game stages.
type Task interface {
	Type() TaskType
	Base() *TaskBase
	isTask()
}

type LobbyTask struct {
	TaskBase
}

type QuestionTask struct {
	TaskBase
	QuestionIndex int        `json:"questionIndex"`
	Presented     *time.Time `json:"presented,omitempty"`
	Answers       []Answer   `json:"answers"`
}

// QuestionResultEntry is one player's outcome for a closed question.
type QuestionResultEntry struct {
	PlayerID   string `json:"playerId"`
	Nickname   string `json:"nickname"`
	Answer     Answer `json:"answer,omitempty"`
	Correct    bool   `json:"correct"`
	LastScore  int    `json:"lastScore"`
	TotalScore int    `json:"totalScore"`
	Position   int    `json:"position"`
	Streak     int    `json:"streak"`
}

type QuestionResultTask struct {
	TaskBase
	QuestionIndex int                   `json:"questionIndex"`
	Results       []QuestionResultEntry `json:"results"`
}

// LeaderboardEntry is one ranked row. PreviousPosition is nil on first appearance.
type LeaderboardEntry struct {
	PlayerID         string `json:"playerId"`
	Position         int    `json:"position"`
	PreviousPosition *int   `json:"previousPosition,omitempty"`
	Nickname         string `json:"nickname"`
	Score            int    `json:"score"`
	Streaks          int    `json:"streaks"`
}

type LeaderboardTask struct {
	TaskBase
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type PodiumTask struct {
	TaskBase
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// QuitTask records the game status at the moment the host quit.
type QuitTask struct {
	TaskBase
	GameStatus GameStatus `json:"gameStatus"`
}

func (t *LobbyTask) Type() TaskType          { return TaskLobby }
func (t *QuestionTask) Type() TaskType       { return TaskQuestion }
func (t *QuestionResultTask) Type() TaskType { return TaskQuestionResult }
func (t *LeaderboardTask) Type() TaskType    { return TaskLeaderboard }
func (t *PodiumTask) Type() TaskType         { return TaskPodium }
func (t *QuitTask) Type() TaskType           { return TaskQuit }

func (t *LobbyTask) Base() *TaskBase          { return &t.TaskBase }
func (t *QuestionTask) Base() *TaskBase       { return &t.TaskBase }
func (t *QuestionResultTask) Base() *TaskBase { return &t.TaskBase }
func (t *LeaderboardTask) Base() *TaskBase    { return &t.TaskBase }
func (t *PodiumTask) Base() *TaskBase         { return &t.TaskBase }
func (t *QuitTask) Base() *TaskBase           { return &t.TaskBase }

func (*LobbyTask) isTask()          {}
func (*QuestionTask) isTask()       {}
func (*QuestionResultTask) isTask() {}
func (*LeaderboardTask) isTask()    {}
func (*PodiumTask) isTask()         {}
func (*QuitTask) isTask()           {}

// AnswerBy returns the answer a player submitted to the task, if any.
func (t *QuestionTask) AnswerBy(playerID string) (Answer, bool) {
	for _, a := range t.Answers {
		if a.Base().PlayerID == playerID {
			return a, true
		}
	}
	return nil, false
}

// ResultFor returns the result entry of a player, if any.
func (t *QuestionResultTask) ResultFor(playerID string) (QuestionResultEntry, bool) {
	for _, r := range t.Results {
		if r.PlayerID == playerID {
			return r, true
		}
	}
	return QuestionResultEntry{}, false
}
