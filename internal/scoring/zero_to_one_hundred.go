package scoring

import (
	"math"
	"time"

	"live-quiz-service/internal/domain"
)

const (
	zeroToOneHundredMax   = 100
	zeroToOneHundredBonus = 10
)

// zeroToOneHundredStrategy scores Range questions by closeness only:
// 100 minus the distance, plus a bonus for an exact hit. Speed does not count.
type zeroToOneHundredStrategy struct{}

func (zeroToOneHundredStrategy) distance(q domain.Question, a domain.Answer) (float64, bool) {
	rq, ok := q.(*domain.RangeQuestion)
	if !ok {
		return 0, false
	}
	ra, ok := a.(*domain.RangeAnswer)
	if !ok || !inRange(rq, ra.Value) {
		return 0, false
	}
	value := SnapToStep(ra.Value, rq.Min, rq.Step)
	return math.Abs(value - rq.Correct), true
}

func (s zeroToOneHundredStrategy) IsCorrect(presented time.Time, q domain.Question, a domain.Answer) bool {
	if !inWindow(presented, q, a) {
		return false
	}
	d, ok := s.distance(q, a)
	return ok && d < epsilon
}

func (s zeroToOneHundredStrategy) Score(presented time.Time, q domain.Question, a domain.Answer) int {
	if !inWindow(presented, q, a) {
		return 0
	}
	d, ok := s.distance(q, a)
	if !ok {
		return 0
	}
	if d < epsilon {
		return zeroToOneHundredMax + zeroToOneHundredBonus
	}
	return round(math.Max(0, zeroToOneHundredMax-d))
}
