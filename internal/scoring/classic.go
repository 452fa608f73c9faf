package scoring

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"live-quiz-service/internal/domain"
)

const (
	// Range and Pin answers split the points between speed and precision.
	proximityTimeWeight      = 0.2
	proximityPrecisionWeight = 0.8

	epsilon = 1e-9
)

// matcher adapts a typed comparison to the union types. A mismatched
// question/answer pair never matches.
func matcher[Q domain.Question, A domain.Answer](fn func(Q, A) bool) func(domain.Question, domain.Answer) bool {
	return func(q domain.Question, a domain.Answer) bool {
		tq, ok := q.(Q)
		if !ok {
			return false
		}
		ta, ok := a.(A)
		if !ok {
			return false
		}
		return fn(tq, ta)
	}
}

// measurer adapts a typed distance function. It returns the distance of the
// answer to the correct value and the acceptance radius.
func measurer[Q domain.Question, A domain.Answer](fn func(Q, A) (float64, float64, bool)) func(domain.Question, domain.Answer) (float64, float64, bool) {
	return func(q domain.Question, a domain.Answer) (float64, float64, bool) {
		tq, ok := q.(Q)
		if !ok {
			return 0, 0, false
		}
		ta, ok := a.(A)
		if !ok {
			return 0, 0, false
		}
		return fn(tq, ta)
	}
}

// exactStrategy awards the time-decayed points for an exact match.
type exactStrategy struct {
	match func(domain.Question, domain.Answer) bool
}

func (s exactStrategy) IsCorrect(presented time.Time, q domain.Question, a domain.Answer) bool {
	return inWindow(presented, q, a) && s.match(q, a)
}

func (s exactStrategy) Score(presented time.Time, q domain.Question, a domain.Answer) int {
	if !s.IsCorrect(presented, q, a) {
		return 0
	}
	factor := TimeFactor(presented, a.Base().Created, q.Base().TimeLimit())
	return round(float64(q.Base().MaxPoints()) * factor)
}

// proximityStrategy awards points by distance to the correct value within a radius.
type proximityStrategy struct {
	measure func(domain.Question, domain.Answer) (float64, float64, bool)
}

func (s proximityStrategy) IsCorrect(presented time.Time, q domain.Question, a domain.Answer) bool {
	if !inWindow(presented, q, a) {
		return false
	}
	distance, radius, ok := s.measure(q, a)
	return ok && distance <= radius+epsilon
}

func (s proximityStrategy) Score(presented time.Time, q domain.Question, a domain.Answer) int {
	if !s.IsCorrect(presented, q, a) {
		return 0
	}
	distance, radius, _ := s.measure(q, a)
	precision := 1.0
	if radius > 0 {
		precision = math.Max(0, 1-distance/radius)
	}
	factor := TimeFactor(presented, a.Base().Created, q.Base().TimeLimit())
	points := float64(q.Base().MaxPoints())
	return round(points*proximityTimeWeight*factor + points*proximityPrecisionWeight*precision)
}

func multiChoiceMatch(q *domain.MultiChoiceQuestion, a *domain.MultiChoiceAnswer) bool {
	if a.OptionIndex < 0 || a.OptionIndex >= len(q.Options) {
		return false
	}
	return q.Options[a.OptionIndex].Correct
}

func trueFalseMatch(q *domain.TrueFalseQuestion, a *domain.TrueFalseAnswer) bool {
	return q.Correct == a.Value
}

func typeAnswerMatch(q *domain.TypeAnswerQuestion, a *domain.TypeAnswerAnswer) bool {
	submitted := NormalizeText(a.Value)
	if submitted == "" {
		return false
	}
	for _, accepted := range q.Options {
		if NormalizeText(accepted) == submitted {
			return true
		}
	}
	return false
}

func puzzleMatch(q *domain.PuzzleQuestion, a *domain.PuzzleAnswer) bool {
	return len(q.Values) > 0 && slices.Equal(q.Values, a.Values)
}

func rangeDistance(q *domain.RangeQuestion, a *domain.RangeAnswer) (float64, float64, bool) {
	if !inRange(q, a.Value) {
		return 0, 0, false
	}
	value := SnapToStep(a.Value, q.Min, q.Step)
	correct := SnapToStep(q.Correct, q.Min, q.Step)
	return math.Abs(value - correct), RangeRadius(q), true
}

func pinDistance(q *domain.PinQuestion, a *domain.PinAnswer) (float64, float64, bool) {
	cx, cy, err := ParsePosition(q.Position)
	if err != nil {
		return 0, 0, false
	}
	ax, ay, err := ParsePosition(a.Position)
	if err != nil || !onImage(ax, ay) {
		return 0, 0, false
	}
	return math.Hypot(ax-cx, ay-cy), PinRadius(q.Tolerance), true
}

// CheckBounds rejects Range values outside [min,max] and Pin positions
// outside the normalized image. Other answers are always in bounds.
func CheckBounds(q domain.Question, a domain.Answer) error {
	switch tq := q.(type) {
	case *domain.RangeQuestion:
		ra, ok := a.(*domain.RangeAnswer)
		if ok && !inRange(tq, ra.Value) {
			return fmt.Errorf("value %g not in [%g,%g]: %w", ra.Value, math.Min(tq.Min, tq.Max), math.Max(tq.Min, tq.Max), domain.ErrAnswerOutOfBounds)
		}
	case *domain.PinQuestion:
		pa, ok := a.(*domain.PinAnswer)
		if !ok {
			return nil
		}
		x, y, err := ParsePosition(pa.Position)
		if err != nil || !onImage(x, y) {
			return fmt.Errorf("position %q: %w", pa.Position, domain.ErrAnswerOutOfBounds)
		}
	}
	return nil
}

func inRange(q *domain.RangeQuestion, v float64) bool {
	lo, hi := math.Min(q.Min, q.Max), math.Max(q.Min, q.Max)
	return !math.IsNaN(v) && v >= lo-epsilon && v <= hi+epsilon
}

func onImage(x, y float64) bool {
	return x >= 0 && x <= 1 && y >= 0 && y <= 1
}

// RangeRadius is the acceptance radius of a Range question: a share of the
// [min,max] span snapped outward to the step grid.
func RangeRadius(q *domain.RangeQuestion) float64 {
	span := math.Abs(q.Max - q.Min)
	var radius float64
	switch q.Margin {
	case domain.MarginLow:
		radius = span * 0.05
	case domain.MarginMedium:
		radius = span * 0.10
	case domain.MarginHigh:
		radius = span * 0.20
	case domain.MarginMaximum:
		return span
	default:
		return 0
	}
	if q.Step > 0 {
		radius = math.Ceil(radius/q.Step-epsilon) * q.Step
	}
	return radius
}

// PinRadius is the acceptance radius in normalized image coordinates.
func PinRadius(t domain.PinTolerance) float64 {
	switch t {
	case domain.ToleranceLow:
		return 0.05
	case domain.ToleranceMedium:
		return 0.10
	case domain.ToleranceHigh:
		return 0.20
	case domain.ToleranceMaximum:
		return math.Sqrt2
	default:
		return 0.10
	}
}

// SnapToStep moves v onto the nearest point of the grid min + k*step.
func SnapToStep(v, min, step float64) float64 {
	if step <= 0 {
		return v
	}
	return min + math.Round((v-min)/step)*step
}

// ParsePosition parses a normalized "x,y" pair.
func ParsePosition(s string) (float64, float64, error) {
	xs, ys, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, strconv.ErrSyntax
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// NormalizeText lower-cases, drops punctuation and collapses whitespace.
func NormalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
