package domain

import "time"

// PlayerMetric aggregates one player's performance over a finished game.
type PlayerMetric struct {
	PlayerID             string  `json:"playerId"`
	Nickname             string  `json:"nickname"`
	Rank                 int     `json:"rank"`
	Score                int     `json:"score"`
	Correct              int     `json:"correct"`
	Incorrect            int     `json:"incorrect"`
	Unanswered           int     `json:"unanswered"`
	AverageResponseTime  float64 `json:"averageResponseTime"` // milliseconds
	LongestCorrectStreak int     `json:"longestCorrectStreak"`
}

// QuestionMetric aggregates every player's outcome on one question.
type QuestionMetric struct {
	Text                string       `json:"text"`
	Type                QuestionType `json:"type"`
	Correct             int          `json:"correct"`
	Incorrect           int          `json:"incorrect"`
	Unanswered          int          `json:"unanswered"`
	AverageResponseTime float64      `json:"averageResponseTime"` // milliseconds
}

// GameResult is the immutable summary of a game that reached the podium.
type GameResult struct {
	GameID            string           `json:"gameId"`
	Name              string           `json:"name"`
	Mode              GameMode         `json:"mode"`
	Host              string           `json:"host"`
	NumberOfPlayers   int              `json:"numberOfPlayers"`
	NumberOfQuestions int              `json:"numberOfQuestions"`
	Duration          int64            `json:"duration"` // seconds
	Players           []PlayerMetric   `json:"players"`
	Questions         []QuestionMetric `json:"questions"`
	Created           time.Time        `json:"created"`
}
