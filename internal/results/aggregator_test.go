package results

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"live-quiz-service/internal/domain"
)

var start = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return start.Add(d) }

func ptr(t time.Time) *time.Time { return &t }

func finishedGame() *domain.Game {
	alice := &domain.Player{ID: "a", Nickname: "alice", TotalScore: 1900}
	bob := &domain.Player{ID: "b", Nickname: "bob", TotalScore: 950}
	q1 := &domain.TrueFalseQuestion{QuestionBase: domain.QuestionBase{Text: "first", Points: 1000, Duration: 30}, Correct: true}
	q2 := &domain.TrueFalseQuestion{QuestionBase: domain.QuestionBase{Text: "second", Points: 1000, Duration: 10}, Correct: false}

	return &domain.Game{
		ID:           "g1",
		Name:         "Friday",
		Mode:         domain.ModeClassic,
		Status:       domain.GameCompleted,
		Questions:    []domain.Question{q1, q2},
		Participants: []domain.Participant{&domain.Host{ID: "h", Nickname: "host"}, alice, bob},
		PreviousTasks: []domain.Task{
			&domain.LobbyTask{TaskBase: domain.TaskBase{ID: "t0", Status: domain.TaskCompleted, Created: start}},
			&domain.QuestionTask{TaskBase: domain.TaskBase{ID: "t1", Status: domain.TaskCompleted}, QuestionIndex: 0, Presented: ptr(at(10 * time.Second))},
			&domain.QuestionResultTask{TaskBase: domain.TaskBase{ID: "t2"}, QuestionIndex: 0, Results: []domain.QuestionResultEntry{
				{PlayerID: "a", Answer: &domain.TrueFalseAnswer{AnswerBase: domain.AnswerBase{PlayerID: "a", Created: at(12 * time.Second)}, Value: true}, Correct: true, Streak: 1, Position: 1},
				{PlayerID: "b", Answer: &domain.TrueFalseAnswer{AnswerBase: domain.AnswerBase{PlayerID: "b", Created: at(16 * time.Second)}, Value: true}, Correct: true, Streak: 1, Position: 2},
			}},
			&domain.LeaderboardTask{TaskBase: domain.TaskBase{ID: "t3"}},
			&domain.QuestionTask{TaskBase: domain.TaskBase{ID: "t4"}, QuestionIndex: 1, Presented: ptr(at(60 * time.Second))},
			&domain.QuestionResultTask{TaskBase: domain.TaskBase{ID: "t5"}, QuestionIndex: 1, Results: []domain.QuestionResultEntry{
				{PlayerID: "a", Answer: &domain.TrueFalseAnswer{AnswerBase: domain.AnswerBase{PlayerID: "a", Created: at(64 * time.Second)}, Value: false}, Correct: true, Streak: 2, Position: 1},
				{PlayerID: "b", Position: 2},
			}},
		},
		CurrentTask: &domain.PodiumTask{
			TaskBase: domain.TaskBase{ID: "t6", Created: at(90 * time.Second)},
			Leaderboard: []domain.LeaderboardEntry{
				{PlayerID: "a", Position: 1, Nickname: "alice", Score: 1900},
				{PlayerID: "b", Position: 2, Nickname: "bob", Score: 950},
			},
		},
		Created: start,
	}
}

func TestBuildRequiresPodium(t *testing.T) {
	g := finishedGame()
	g.CurrentTask = &domain.LeaderboardTask{}
	if _, err := Build(g, start); !errors.Is(err, domain.ErrNotPodium) {
		t.Fatalf("expected ErrNotPodium, got %v", err)
	}
}

func TestBuildAggregatesPlayersAndQuestions(t *testing.T) {
	now := at(2 * time.Minute)
	got, err := Build(finishedGame(), now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := domain.GameResult{
		GameID:            "g1",
		Name:              "Friday",
		Mode:              domain.ModeClassic,
		Host:              "host",
		NumberOfPlayers:   2,
		NumberOfQuestions: 2,
		Duration:          90,
		Players: []domain.PlayerMetric{
			{PlayerID: "a", Nickname: "alice", Rank: 1, Score: 1900, Correct: 2, AverageResponseTime: 3000, LongestCorrectStreak: 2},
			// unanswered second question counts its full 10s duration
			{PlayerID: "b", Nickname: "bob", Rank: 2, Score: 950, Correct: 1, Unanswered: 1, AverageResponseTime: 8000, LongestCorrectStreak: 1},
		},
		Questions: []domain.QuestionMetric{
			{Text: "first", Type: domain.QuestionTrueFalse, Correct: 2, AverageResponseTime: 4000},
			{Text: "second", Type: domain.QuestionTrueFalse, Correct: 1, Unanswered: 1, AverageResponseTime: 7000},
		},
		Created: now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildWithoutQuestionResults(t *testing.T) {
	g := finishedGame()
	g.PreviousTasks = g.PreviousTasks[:1]

	got, err := Build(g, start)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got.NumberOfQuestions != 0 || got.Players[0].AverageResponseTime != 0 {
		t.Fatalf("expected empty metrics, got %+v", got)
	}
}

func TestBuildRejectsBrokenHistory(t *testing.T) {
	g := finishedGame()
	g.PreviousTasks[2].(*domain.QuestionResultTask).QuestionIndex = 9
	if _, err := Build(g, start); !errors.Is(err, domain.ErrQuestionIndexOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}
}
