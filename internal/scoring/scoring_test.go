package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-service/internal/domain"
)

var presented = time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

func at(d time.Duration) domain.AnswerBase {
	return domain.AnswerBase{PlayerID: "p1", Created: presented.Add(d)}
}

func base() domain.QuestionBase {
	return domain.QuestionBase{Text: "q", Points: 1000, Duration: 30}
}

func rangeQuestion() *domain.RangeQuestion {
	return &domain.RangeQuestion{
		QuestionBase: base(),
		Min:          0,
		Max:          100,
		Step:         2,
		Margin:       domain.MarginMedium,
		Correct:      50,
	}
}

func TestRangeScenario(t *testing.T) {
	q := rangeQuestion()

	tests := []struct {
		name    string
		value   float64
		correct bool
		score   int
	}{
		{name: "exact", value: 50, correct: true, score: 983},
		{name: "margin edge", value: 60, correct: true, score: 183},
		{name: "outside margin", value: 61, correct: false, score: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &domain.RangeAnswer{AnswerBase: at(5 * time.Second), Value: tt.value}
			out, err := Evaluate(domain.ModeClassic, presented, q, a)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, out.Correct)
			assert.Equal(t, tt.score, out.Score)
		})
	}
}

func TestAbsentAnswerNeverScores(t *testing.T) {
	questions := []domain.Question{
		&domain.MultiChoiceQuestion{QuestionBase: base(), Options: []domain.Option{{Value: "a", Correct: true}}},
		&domain.TrueFalseQuestion{QuestionBase: base(), Correct: true},
		&domain.TypeAnswerQuestion{QuestionBase: base(), Options: []string{"paris"}},
		&domain.PuzzleQuestion{QuestionBase: base(), Values: []string{"a", "b"}},
		rangeQuestion(),
		&domain.PinQuestion{QuestionBase: base(), Position: "0.5,0.5", Tolerance: domain.ToleranceMedium},
	}
	for _, q := range questions {
		out, err := Evaluate(domain.ModeClassic, presented, q, nil)
		require.NoError(t, err)
		assert.False(t, out.Correct, q.Type())
		assert.Zero(t, out.Score, q.Type())
	}

	out, err := Evaluate(domain.ModeZeroToOneHundred, presented, rangeQuestion(), nil)
	require.NoError(t, err)
	assert.False(t, out.Correct)
	assert.Zero(t, out.Score)
}

func TestClassicTimeDecayIsMonotonicAndBounded(t *testing.T) {
	q := &domain.TrueFalseQuestion{QuestionBase: base(), Correct: true}
	s, err := For(domain.ModeClassic, domain.QuestionTrueFalse)
	require.NoError(t, err)

	previous := q.MaxPoints() + 1
	for elapsed := time.Duration(0); elapsed <= 30*time.Second; elapsed += 500 * time.Millisecond {
		score := s.Score(presented, q, &domain.TrueFalseAnswer{AnswerBase: at(elapsed), Value: true})
		assert.LessOrEqual(t, score, previous, "elapsed %s", elapsed)
		assert.GreaterOrEqual(t, score, q.MaxPoints()/2)
		assert.LessOrEqual(t, score, q.MaxPoints())
		previous = score
	}

	assert.Equal(t, 1000, s.Score(presented, q, &domain.TrueFalseAnswer{AnswerBase: at(0), Value: true}))
	assert.Equal(t, 500, s.Score(presented, q, &domain.TrueFalseAnswer{AnswerBase: at(30 * time.Second), Value: true}))
}

func TestAnswersOutsideWindow(t *testing.T) {
	q := &domain.MultiChoiceQuestion{QuestionBase: base(), Options: []domain.Option{{Value: "a", Correct: true}}}
	s, err := For(domain.ModeClassic, domain.QuestionMultiChoice)
	require.NoError(t, err)

	late := &domain.MultiChoiceAnswer{AnswerBase: at(31 * time.Second), OptionIndex: 0}
	early := &domain.MultiChoiceAnswer{AnswerBase: at(-time.Second), OptionIndex: 0}
	for _, a := range []domain.Answer{late, early} {
		assert.False(t, s.IsCorrect(presented, q, a))
		assert.Zero(t, s.Score(presented, q, a))
	}
}

func TestExactMatchTypes(t *testing.T) {
	tests := []struct {
		name    string
		q       domain.Question
		a       domain.Answer
		correct bool
	}{
		{
			name:    "multi choice correct option",
			q:       &domain.MultiChoiceQuestion{QuestionBase: base(), Options: []domain.Option{{Value: "3"}, {Value: "4", Correct: true}}},
			a:       &domain.MultiChoiceAnswer{AnswerBase: at(time.Second), OptionIndex: 1},
			correct: true,
		},
		{
			name: "multi choice out of range option",
			q:    &domain.MultiChoiceQuestion{QuestionBase: base(), Options: []domain.Option{{Value: "4", Correct: true}}},
			a:    &domain.MultiChoiceAnswer{AnswerBase: at(time.Second), OptionIndex: 7},
		},
		{
			name: "true false mismatch",
			q:    &domain.TrueFalseQuestion{QuestionBase: base(), Correct: true},
			a:    &domain.TrueFalseAnswer{AnswerBase: at(time.Second), Value: false},
		},
		{
			name:    "type answer normalized",
			q:       &domain.TypeAnswerQuestion{QuestionBase: base(), Options: []string{"New York", "NYC"}},
			a:       &domain.TypeAnswerAnswer{AnswerBase: at(time.Second), Value: "  new   york! "},
			correct: true,
		},
		{
			name: "type answer blank",
			q:    &domain.TypeAnswerQuestion{QuestionBase: base(), Options: []string{""}},
			a:    &domain.TypeAnswerAnswer{AnswerBase: at(time.Second), Value: "!!"},
		},
		{
			name:    "puzzle in order",
			q:       &domain.PuzzleQuestion{QuestionBase: base(), Values: []string{"a", "b", "c"}},
			a:       &domain.PuzzleAnswer{AnswerBase: at(time.Second), Values: []string{"a", "b", "c"}},
			correct: true,
		},
		{
			name: "puzzle out of order",
			q:    &domain.PuzzleQuestion{QuestionBase: base(), Values: []string{"a", "b", "c"}},
			a:    &domain.PuzzleAnswer{AnswerBase: at(time.Second), Values: []string{"b", "a", "c"}},
		},
		{
			name: "answer of another type",
			q:    &domain.TrueFalseQuestion{QuestionBase: base(), Correct: true},
			a:    &domain.MultiChoiceAnswer{AnswerBase: at(time.Second), OptionIndex: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Evaluate(domain.ModeClassic, presented, tt.q, tt.a)
			require.NoError(t, err)
			assert.Equal(t, tt.correct, out.Correct)
			if tt.correct {
				assert.Equal(t, 983, out.Score)
			} else {
				assert.Zero(t, out.Score)
			}
		})
	}
}

func TestRangeMargins(t *testing.T) {
	tests := []struct {
		margin domain.RangeMargin
		step   float64
		radius float64
	}{
		{margin: domain.MarginNone, step: 1, radius: 0},
		{margin: domain.MarginLow, step: 1, radius: 5},
		{margin: domain.MarginLow, step: 3, radius: 6},
		{margin: domain.MarginMedium, step: 2, radius: 10},
		{margin: domain.MarginHigh, step: 0, radius: 20},
		{margin: domain.MarginMaximum, step: 1, radius: 100},
	}
	for _, tt := range tests {
		q := rangeQuestion()
		q.Margin, q.Step = tt.margin, tt.step
		assert.InDelta(t, tt.radius, RangeRadius(q), 1e-9, string(tt.margin))
	}
}

func TestRangeNoneMarginNeedsExactGridCell(t *testing.T) {
	q := rangeQuestion()
	q.Margin = domain.MarginNone
	s, err := For(domain.ModeClassic, domain.QuestionRange)
	require.NoError(t, err)

	assert.True(t, s.IsCorrect(presented, q, &domain.RangeAnswer{AnswerBase: at(0), Value: 50.4}))
	assert.Equal(t, 1000, s.Score(presented, q, &domain.RangeAnswer{AnswerBase: at(0), Value: 50}))
	assert.False(t, s.IsCorrect(presented, q, &domain.RangeAnswer{AnswerBase: at(0), Value: 52}))
}

func TestRangeMaximumMarginRewardsCloseness(t *testing.T) {
	q := rangeQuestion()
	q.Margin = domain.MarginMaximum
	s, err := For(domain.ModeClassic, domain.QuestionRange)
	require.NoError(t, err)

	far := &domain.RangeAnswer{AnswerBase: at(0), Value: 100}
	near := &domain.RangeAnswer{AnswerBase: at(0), Value: 52}
	assert.True(t, s.IsCorrect(presented, q, far))
	assert.Greater(t, s.Score(presented, q, near), s.Score(presented, q, far))
	assert.Equal(t, 600, s.Score(presented, q, far))
}

func TestPinTolerance(t *testing.T) {
	q := &domain.PinQuestion{QuestionBase: base(), Position: "0.50,0.50", Tolerance: domain.ToleranceMedium}
	s, err := For(domain.ModeClassic, domain.QuestionPin)
	require.NoError(t, err)

	inside := &domain.PinAnswer{AnswerBase: at(0), Position: "0.53,0.54"}
	outside := &domain.PinAnswer{AnswerBase: at(0), Position: "0.60,0.60"}
	malformed := &domain.PinAnswer{AnswerBase: at(0), Position: "middle"}

	assert.True(t, s.IsCorrect(presented, q, inside))
	assert.Equal(t, 600, s.Score(presented, q, inside))
	assert.False(t, s.IsCorrect(presented, q, outside))
	assert.Zero(t, s.Score(presented, q, outside))
	assert.Zero(t, s.Score(presented, q, malformed))
}

func TestAnswersOutsideBoundsEarnNothing(t *testing.T) {
	nearMax := rangeQuestion()
	nearMax.Correct = 100
	wide := rangeQuestion()
	wide.Margin = domain.MarginMaximum
	wide.Correct = 90
	pin := &domain.PinQuestion{QuestionBase: base(), Position: "0.98,0.50", Tolerance: domain.ToleranceMaximum}

	tests := []struct {
		name string
		mode domain.GameMode
		q    domain.Question
		a    domain.Answer
	}{
		{name: "range past max within margin", mode: domain.ModeClassic, q: nearMax, a: &domain.RangeAnswer{AnswerBase: at(5 * time.Second), Value: 108}},
		{name: "range past max with maximum margin", mode: domain.ModeClassic, q: wide, a: &domain.RangeAnswer{AnswerBase: at(5 * time.Second), Value: 150}},
		{name: "range below min", mode: domain.ModeClassic, q: wide, a: &domain.RangeAnswer{AnswerBase: at(5 * time.Second), Value: -1}},
		{name: "pin off image", mode: domain.ModeClassic, q: pin, a: &domain.PinAnswer{AnswerBase: at(time.Second), Position: "1.05,0.50"}},
		{name: "zero to one hundred past max", mode: domain.ModeZeroToOneHundred, q: nearMax, a: &domain.RangeAnswer{AnswerBase: at(time.Second), Value: 101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Evaluate(tt.mode, presented, tt.q, tt.a)
			require.NoError(t, err)
			assert.False(t, out.Correct)
			assert.Zero(t, out.Score)
			assert.ErrorIs(t, CheckBounds(tt.q, tt.a), domain.ErrAnswerOutOfBounds)
		})
	}
}

func TestCheckBoundsAcceptsEdges(t *testing.T) {
	q := rangeQuestion()
	assert.NoError(t, CheckBounds(q, &domain.RangeAnswer{Value: 0}))
	assert.NoError(t, CheckBounds(q, &domain.RangeAnswer{Value: 100}))

	pin := &domain.PinQuestion{QuestionBase: base(), Position: "0.5,0.5"}
	assert.NoError(t, CheckBounds(pin, &domain.PinAnswer{Position: "0,1"}))
	assert.ErrorIs(t, CheckBounds(pin, &domain.PinAnswer{Position: "middle"}), domain.ErrAnswerOutOfBounds)

	assert.NoError(t, CheckBounds(&domain.TrueFalseQuestion{QuestionBase: base()}, &domain.TrueFalseAnswer{Value: true}))
}

func TestZeroToOneHundred(t *testing.T) {
	q := &domain.RangeQuestion{QuestionBase: base(), Min: 0, Max: 100, Step: 1, Correct: 42}
	s, err := For(domain.ModeZeroToOneHundred, domain.QuestionRange)
	require.NoError(t, err)

	exact := &domain.RangeAnswer{AnswerBase: at(29 * time.Second), Value: 42}
	off := &domain.RangeAnswer{AnswerBase: at(time.Second), Value: 30}
	assert.True(t, s.IsCorrect(presented, q, exact))
	assert.Equal(t, 110, s.Score(presented, q, exact))
	assert.False(t, s.IsCorrect(presented, q, off))
	assert.Equal(t, 88, s.Score(presented, q, off))

	_, err = For(domain.ModeZeroToOneHundred, domain.QuestionMultiChoice)
	assert.ErrorIs(t, err, ErrUnsupportedQuestion)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "rock n roll", NormalizeText("  Rock 'n' Roll!! "))
	assert.Equal(t, "", NormalizeText("?!"))
}
