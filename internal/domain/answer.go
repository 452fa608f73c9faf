package domain

import "time"

// AnswerBase holds the fields shared by every answer type.
type AnswerBase struct {
	PlayerID string    `json:"playerId"`
	Created  time.Time `json:"created"`
}

// Answer is a closed union mirroring the question types.
type Answer interface {
	Type() QuestionType
	Base() AnswerBase
	isAnswer()
}

type MultiChoiceAnswer struct {
	AnswerBase
	OptionIndex int `json:"optionIndex"`
}

type RangeAnswer struct {
	AnswerBase
	Value float64 `json:"value"`
}

type TrueFalseAnswer struct {
	AnswerBase
	Value bool `json:"value"`
}

type TypeAnswerAnswer struct {
	AnswerBase
	Value string `json:"value"`
}

// PinAnswer carries a normalized "x,y" position.
type PinAnswer struct {
	AnswerBase
	Position string `json:"position"`
}

type PuzzleAnswer struct {
	AnswerBase
	Values []string `json:"values"`
}

func (a *MultiChoiceAnswer) Type() QuestionType { return QuestionMultiChoice }
func (a *RangeAnswer) Type() QuestionType       { return QuestionRange }
func (a *TrueFalseAnswer) Type() QuestionType   { return QuestionTrueFalse }
func (a *TypeAnswerAnswer) Type() QuestionType  { return QuestionTypeAnswer }
func (a *PinAnswer) Type() QuestionType         { return QuestionPin }
func (a *PuzzleAnswer) Type() QuestionType      { return QuestionPuzzle }

func (a *MultiChoiceAnswer) Base() AnswerBase { return a.AnswerBase }
func (a *RangeAnswer) Base() AnswerBase       { return a.AnswerBase }
func (a *TrueFalseAnswer) Base() AnswerBase   { return a.AnswerBase }
func (a *TypeAnswerAnswer) Base() AnswerBase  { return a.AnswerBase }
func (a *PinAnswer) Base() AnswerBase         { return a.AnswerBase }
func (a *PuzzleAnswer) Base() AnswerBase      { return a.AnswerBase }

func (*MultiChoiceAnswer) isAnswer() {}
func (*RangeAnswer) isAnswer()       {}
func (*TrueFalseAnswer) isAnswer()   {}
func (*TypeAnswerAnswer) isAnswer()  {}
func (*PinAnswer) isAnswer()         {}
func (*PuzzleAnswer) isAnswer()      {}

// SetAnswerBase stamps the submitting player and time on an answer.
func SetAnswerBase(a Answer, playerID string, created time.Time) {
	base := AnswerBase{PlayerID: playerID, Created: created}
	switch v := a.(type) {
	case *MultiChoiceAnswer:
		v.AnswerBase = base
	case *RangeAnswer:
		v.AnswerBase = base
	case *TrueFalseAnswer:
		v.AnswerBase = base
	case *TypeAnswerAnswer:
		v.AnswerBase = base
	case *PinAnswer:
		v.AnswerBase = base
	case *PuzzleAnswer:
		v.AnswerBase = base
	}
}
