package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

// QuizLoader fetches quiz content from a backing store (e.g., document DB).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quizzes with TTL to avoid repeated DB hits.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return NewQuizRepositoryWithClock(loader, ttl, time.Now)
}

// NewQuizRepositoryWithClock is test-only for deterministic expiry.
func NewQuizRepositoryWithClock(loader QuizLoader, ttl time.Duration, clock func() time.Time) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  clock,
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// another caller may have filled the cache while we waited
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}
		if err := CheckQuiz(quiz); err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(TTLWithJitter(r.ttl)),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops a cached quiz.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

// CheckQuiz rejects quizzes that cannot be played: no questions, question
// types the quiz's mode cannot score, inverted Range bounds or a Pin target
// off the image. Only playable quizzes are cached.
func CheckQuiz(quiz domain.Quiz) error {
	if len(quiz.Questions) == 0 {
		return domain.ErrQuizNotFound
	}
	mode := quiz.Mode
	if mode == "" {
		mode = domain.ModeClassic
	}
	for i, q := range quiz.Questions {
		if q == nil {
			return fmt.Errorf("quiz %s question %d is empty: %w", quiz.ID, i, domain.ErrInvalidQuiz)
		}
		if _, err := scoring.For(mode, q.Type()); err != nil {
			return fmt.Errorf("quiz %s question %d: %w: %w", quiz.ID, i, domain.ErrInvalidQuiz, err)
		}
		switch tq := q.(type) {
		case *domain.RangeQuestion:
			if tq.Min >= tq.Max || tq.Step < 0 || tq.Correct < tq.Min || tq.Correct > tq.Max {
				return fmt.Errorf("quiz %s question %d: range bounds: %w", quiz.ID, i, domain.ErrInvalidQuiz)
			}
		case *domain.PinQuestion:
			target := &domain.PinAnswer{Position: tq.Position}
			if err := scoring.CheckBounds(tq, target); err != nil {
				return fmt.Errorf("quiz %s question %d: pin target: %w", quiz.ID, i, domain.ErrInvalidQuiz)
			}
		}
	}
	return nil
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// TTLWithJitter adds up to 10% jitter to spread expirations.
func TTLWithJitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(rand.Int64N(int64(ttl)/10+1))
}
