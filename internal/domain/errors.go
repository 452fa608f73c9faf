package domain

import "errors"

// Policy violations. These are rejected without touching game state.
var (
	// ErrGameNotFound is returned when a game id or PIN is unknown.
	ErrGameNotFound = errors.New("game not found")
	// ErrParticipantNotFound is returned when a caller is not a member of the game.
	ErrParticipantNotFound = errors.New("participant not found in game")
	// ErrNotHost is returned when a player attempts a host-only operation.
	ErrNotHost = errors.New("participant is not the host")
	// ErrNotPlayer is returned when a host attempts a player-only operation.
	ErrNotPlayer = errors.New("participant is not a player")
	// ErrNicknameTaken is returned when a nickname is already used in the game.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrInvalidNickname is returned for an empty nickname.
	ErrInvalidNickname = errors.New("nickname must not be empty")
	// ErrGameNotJoinable is returned when joining outside the lobby.
	ErrGameNotJoinable = errors.New("game is not accepting players")
	// ErrAnswerAlreadySubmitted is returned for a second answer to the same question.
	ErrAnswerAlreadySubmitted = errors.New("answer already submitted")
	// ErrAnswerDeadlinePassed is returned for answers outside the question window.
	ErrAnswerDeadlinePassed = errors.New("answer deadline passed")
	// ErrAnswerOutOfBounds is returned for a Range value or Pin position outside the question's bounds.
	ErrAnswerOutOfBounds = errors.New("answer outside question bounds")
	// ErrQuestionNotActive is returned when answering while no question is open.
	ErrQuestionNotActive = errors.New("no active question")
	// ErrAnswerTypeMismatch is returned when the answer kind does not match the question.
	ErrAnswerTypeMismatch = errors.New("answer type does not match question")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound is returned when no result has been recorded for a game.
	ErrResultNotFound = errors.New("game result not found")
	// ErrInvalidTransition is returned when a transition is requested from the wrong state.
	ErrInvalidTransition = errors.New("invalid task transition")
	// ErrConcurrentUpdate is returned when optimistic locking gives up.
	ErrConcurrentUpdate = errors.New("game was modified concurrently")
)

// Configuration and data errors. These are fatal and never retried.
var (
	// ErrQuestionIndexOutOfRange means a task points past the quiz's question list.
	ErrQuestionIndexOutOfRange = errors.New("question index out of range")
	// ErrUnknownTask means a task type the engine does not handle.
	ErrUnknownTask = errors.New("unknown task")
	// ErrUnknownQuestionType means a question or answer type tag is not recognized.
	ErrUnknownQuestionType = errors.New("unknown question type")
	// ErrMissingCurrentTask means a game document has no current task.
	ErrMissingCurrentTask = errors.New("game has no current task")
	// ErrNotPodium means result aggregation was requested outside the podium task.
	ErrNotPodium = errors.New("game result requested outside podium")
	// ErrInvalidQuiz means a loaded quiz cannot be played as stored.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrNoQuestionResult means a leaderboard or podium exists with no prior question result.
	ErrNoQuestionResult = errors.New("no question result in task history")
)

// IsPolicyViolation reports whether err is a caller-facing rejection rather than a fault.
func IsPolicyViolation(err error) bool {
	for _, target := range []error{
		ErrGameNotFound, ErrParticipantNotFound, ErrNotHost, ErrNotPlayer, ErrNicknameTaken,
		ErrInvalidNickname, ErrGameNotJoinable, ErrAnswerAlreadySubmitted, ErrAnswerDeadlinePassed,
		ErrQuestionNotActive, ErrAnswerTypeMismatch, ErrAnswerOutOfBounds, ErrQuizNotFound, ErrResultNotFound,
		ErrConcurrentUpdate, ErrInvalidTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
