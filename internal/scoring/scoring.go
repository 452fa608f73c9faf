// Package scoring decides correctness and awards points for submitted answers.
//
// There is one Strategy per (game mode, question type) pair. Strategies are
// pure and safe for concurrent use.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"time"

	"live-quiz-service/internal/domain"
)

// ErrUnsupportedQuestion is returned when a mode has no strategy for a question type.
var ErrUnsupportedQuestion = errors.New("question type not supported by game mode")

// Strategy scores one question type under one game mode.
// A nil answer means the player did not answer.
type Strategy interface {
	IsCorrect(presented time.Time, q domain.Question, a domain.Answer) bool
	Score(presented time.Time, q domain.Question, a domain.Answer) int
}

// Outcome is the evaluation of one answer.
type Outcome struct {
	Correct bool
	Score   int
}

var classicStrategies = map[domain.QuestionType]Strategy{
	domain.QuestionMultiChoice: exactStrategy{match: matcher(multiChoiceMatch)},
	domain.QuestionTrueFalse:   exactStrategy{match: matcher(trueFalseMatch)},
	domain.QuestionTypeAnswer:  exactStrategy{match: matcher(typeAnswerMatch)},
	domain.QuestionPuzzle:      exactStrategy{match: matcher(puzzleMatch)},
	domain.QuestionRange:       proximityStrategy{measure: measurer(rangeDistance)},
	domain.QuestionPin:         proximityStrategy{measure: measurer(pinDistance)},
}

// For returns the strategy of a mode and question type.
func For(mode domain.GameMode, t domain.QuestionType) (Strategy, error) {
	switch mode {
	case domain.ModeClassic, "":
		if s, ok := classicStrategies[t]; ok {
			return s, nil
		}
	case domain.ModeZeroToOneHundred:
		if t == domain.QuestionRange {
			return zeroToOneHundredStrategy{}, nil
		}
	}
	return nil, fmt.Errorf("%s/%s: %w", mode, t, ErrUnsupportedQuestion)
}

// Evaluate scores an answer to q with the strategy of mode.
func Evaluate(mode domain.GameMode, presented time.Time, q domain.Question, a domain.Answer) (Outcome, error) {
	s, err := For(mode, q.Type())
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Correct: s.IsCorrect(presented, q, a),
		Score:   s.Score(presented, q, a),
	}, nil
}

// TimeFactor is the share of points kept when answering after the given latency:
// 1 for an instant answer down to 0.5 at the deadline, 0 outside the window.
func TimeFactor(presented, answered time.Time, limit time.Duration) float64 {
	elapsed := answered.Sub(presented)
	if limit <= 0 || elapsed < 0 || elapsed > limit {
		return 0
	}
	return 1 - float64(elapsed)/float64(limit)/2
}

func inWindow(presented time.Time, q domain.Question, a domain.Answer) bool {
	if a == nil {
		return false
	}
	elapsed := a.Base().Created.Sub(presented)
	return elapsed >= 0 && elapsed <= q.Base().TimeLimit()
}

func round(v float64) int {
	return int(math.Round(v))
}
