package domain

import "time"

// QuestionType discriminates the Question and Answer unions.
type QuestionType string

const (
	QuestionMultiChoice QuestionType = "MultiChoice"
	QuestionRange       QuestionType = "Range"
	QuestionTrueFalse   QuestionType = "TrueFalse"
	QuestionTypeAnswer  QuestionType = "TypeAnswer"
	QuestionPin         QuestionType = "Pin"
	QuestionPuzzle      QuestionType = "Puzzle"
)

const (
	// DefaultQuestionPoints applies when a question does not set Points.
	DefaultQuestionPoints = 1000
	// DefaultQuestionDuration applies when a question does not set Duration.
	DefaultQuestionDuration = 30
)

// RangeMargin is the acceptance radius of a Range question.
type RangeMargin string

const (
	MarginNone    RangeMargin = "None"
	MarginLow     RangeMargin = "Low"
	MarginMedium  RangeMargin = "Medium"
	MarginHigh    RangeMargin = "High"
	MarginMaximum RangeMargin = "Maximum"
)

// PinTolerance is the acceptance radius of a Pin question.
type PinTolerance string

const (
	ToleranceLow     PinTolerance = "Low"
	ToleranceMedium  PinTolerance = "Medium"
	ToleranceHigh    PinTolerance = "High"
	ToleranceMaximum PinTolerance = "Maximum"
)

// Media is an optional image or video shown with a question.
type Media struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// QuestionBase holds the fields shared by every question type.
type QuestionBase struct {
	Text     string `json:"text"`
	Media    *Media `json:"media,omitempty"`
	Points   int    `json:"points"`
	Duration int    `json:"duration"` // seconds
}

// MaxPoints returns the configured points or the default.
func (b QuestionBase) MaxPoints() int {
	if b.Points <= 0 {
		return DefaultQuestionPoints
	}
	return b.Points
}

// TimeLimit returns the answer window of the question.
func (b QuestionBase) TimeLimit() time.Duration {
	if b.Duration <= 0 {
		return DefaultQuestionDuration * time.Second
	}
	return time.Duration(b.Duration) * time.Second
}

// Question is a closed union over the question types below.
type Question interface {
	Type() QuestionType
	Base() QuestionBase
	isQuestion()
}

// Option is a MultiChoice option.
type Option struct {
	Value   string `json:"value"`
	Correct bool   `json:"correct"`
}

type MultiChoiceQuestion struct {
	QuestionBase
	Options []Option `json:"options"`
}

type RangeQuestion struct {
	QuestionBase
	Min     float64     `json:"min"`
	Max     float64     `json:"max"`
	Step    float64     `json:"step"`
	Margin  RangeMargin `json:"margin"`
	Correct float64     `json:"correct"`
}

type TrueFalseQuestion struct {
	QuestionBase
	Correct bool `json:"correct"`
}

// TypeAnswerQuestion accepts any of Options as a free-text answer.
type TypeAnswerQuestion struct {
	QuestionBase
	Options []string `json:"options"`
}

// PinQuestion asks for a point on an image. Position is a normalized "x,y" pair.
type PinQuestion struct {
	QuestionBase
	ImageURL  string       `json:"imageUrl"`
	Position  string       `json:"position"`
	Tolerance PinTolerance `json:"tolerance"`
}

// PuzzleQuestion asks to order Values; Values holds the canonical order.
type PuzzleQuestion struct {
	QuestionBase
	Values []string `json:"values"`
}

func (q *MultiChoiceQuestion) Type() QuestionType { return QuestionMultiChoice }
func (q *RangeQuestion) Type() QuestionType       { return QuestionRange }
func (q *TrueFalseQuestion) Type() QuestionType   { return QuestionTrueFalse }
func (q *TypeAnswerQuestion) Type() QuestionType  { return QuestionTypeAnswer }
func (q *PinQuestion) Type() QuestionType         { return QuestionPin }
func (q *PuzzleQuestion) Type() QuestionType      { return QuestionPuzzle }

func (q *MultiChoiceQuestion) Base() QuestionBase { return q.QuestionBase }
func (q *RangeQuestion) Base() QuestionBase       { return q.QuestionBase }
func (q *TrueFalseQuestion) Base() QuestionBase   { return q.QuestionBase }
func (q *TypeAnswerQuestion) Base() QuestionBase  { return q.QuestionBase }
func (q *PinQuestion) Base() QuestionBase         { return q.QuestionBase }
func (q *PuzzleQuestion) Base() QuestionBase      { return q.QuestionBase }

func (*MultiChoiceQuestion) isQuestion() {}
func (*RangeQuestion) isQuestion()       {}
func (*TrueFalseQuestion) isQuestion()   {}
func (*TypeAnswerQuestion) isQuestion()  {}
func (*PinQuestion) isQuestion()         {}
func (*PuzzleQuestion) isQuestion()      {}

// Quiz is the immutable ordered question list a game is created from.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Mode      GameMode   `json:"mode"`
	Questions []Question `json:"questions"`
}
