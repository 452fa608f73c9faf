// Package results builds the final statistics of a game that reached the podium.
package results

import (
	"fmt"
	"time"

	"live-quiz-service/internal/domain"
)

type questionRound struct {
	index     int
	question  domain.Question
	presented time.Time
	result    *domain.QuestionResultTask
}

// Build aggregates per-player and per-question metrics from the task history.
// It fails with domain.ErrNotPodium unless the current task is the podium.
func Build(g *domain.Game, now time.Time) (domain.GameResult, error) {
	podium, ok := g.CurrentTask.(*domain.PodiumTask)
	if !ok {
		return domain.GameResult{}, domain.ErrNotPodium
	}

	rounds, err := collectRounds(g)
	if err != nil {
		return domain.GameResult{}, err
	}

	players := g.Players()
	standings := make(map[string]domain.LeaderboardEntry, len(podium.Leaderboard))
	for _, e := range podium.Leaderboard {
		standings[e.PlayerID] = e
	}

	playerMetrics := make([]domain.PlayerMetric, 0, len(players))
	for _, p := range players {
		m := domain.PlayerMetric{PlayerID: p.ID, Nickname: p.Nickname, Score: p.TotalScore}
		if e, ok := standings[p.ID]; ok {
			m.Rank, m.Score = e.Position, e.Score
		}
		var totalResponse int64
		for _, r := range rounds {
			entry, ok := r.result.ResultFor(p.ID)
			response, answered := responseTime(r, entry, ok)
			totalResponse += response
			switch {
			case !answered:
				m.Unanswered++
			case entry.Correct:
				m.Correct++
			default:
				m.Incorrect++
			}
			if ok && entry.Streak > m.LongestCorrectStreak {
				m.LongestCorrectStreak = entry.Streak
			}
		}
		if len(rounds) > 0 {
			m.AverageResponseTime = float64(totalResponse) / float64(len(rounds))
		}
		playerMetrics = append(playerMetrics, m)
	}

	questionMetrics := make([]domain.QuestionMetric, 0, len(rounds))
	for _, r := range rounds {
		base := r.question.Base()
		m := domain.QuestionMetric{Text: base.Text, Type: r.question.Type()}
		var totalResponse int64
		for _, p := range players {
			entry, ok := r.result.ResultFor(p.ID)
			response, answered := responseTime(r, entry, ok)
			totalResponse += response
			switch {
			case !answered:
				m.Unanswered++
			case entry.Correct:
				m.Correct++
			default:
				m.Incorrect++
			}
		}
		if len(players) > 0 {
			m.AverageResponseTime = float64(totalResponse) / float64(len(players))
		}
		questionMetrics = append(questionMetrics, m)
	}

	hostName := ""
	if h, ok := g.Host(); ok {
		hostName = h.Nickname
	}
	return domain.GameResult{
		GameID:            g.ID,
		Name:              g.Name,
		Mode:              g.Mode,
		Host:              hostName,
		NumberOfPlayers:   len(players),
		NumberOfQuestions: len(rounds),
		Duration:          int64(podium.Created.Sub(g.Created) / time.Second),
		Players:           playerMetrics,
		Questions:         questionMetrics,
		Created:           now,
	}, nil
}

// collectRounds pairs every QuestionResult with the Question task it closed.
func collectRounds(g *domain.Game) ([]questionRound, error) {
	presented := make(map[int]time.Time)
	var rounds []questionRound
	for _, t := range g.PreviousTasks {
		switch task := t.(type) {
		case *domain.QuestionTask:
			if task.Presented != nil {
				presented[task.QuestionIndex] = *task.Presented
			}
		case *domain.QuestionResultTask:
			q, err := g.QuestionAt(task.QuestionIndex)
			if err != nil {
				return nil, fmt.Errorf("result for question %d: %w", task.QuestionIndex, err)
			}
			rounds = append(rounds, questionRound{
				index:     task.QuestionIndex,
				question:  q,
				presented: presented[task.QuestionIndex],
				result:    task,
			})
		}
	}
	return rounds, nil
}

// responseTime is the latency of an answer in milliseconds, or the full
// question duration when the player did not answer.
func responseTime(r questionRound, entry domain.QuestionResultEntry, ok bool) (int64, bool) {
	limit := r.question.Base().TimeLimit().Milliseconds()
	if !ok || entry.Answer == nil {
		return limit, false
	}
	latency := entry.Answer.Base().Created.Sub(r.presented).Milliseconds()
	if latency < 0 || latency > limit {
		return limit, true
	}
	return latency, true
}
