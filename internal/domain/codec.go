package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Unions are encoded as the concrete struct with a "type" member added.

type typeTag struct {
	Type string `json:"type"`
}

func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(tag)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(head)
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 2 {
		buf.WriteByte(',')
		buf.Write(trimmed[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func peekType(data []byte) (string, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return "", err
	}
	return tag.Type, nil
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// MarshalQuestion encodes a question with its type tag.
func MarshalQuestion(q Question) ([]byte, error) {
	return marshalTagged(string(q.Type()), q)
}

// UnmarshalQuestion decodes a tagged question.
func UnmarshalQuestion(data []byte) (Question, error) {
	tag, err := peekType(data)
	if err != nil {
		return nil, err
	}
	var q Question
	switch QuestionType(tag) {
	case QuestionMultiChoice:
		q = &MultiChoiceQuestion{}
	case QuestionRange:
		q = &RangeQuestion{}
	case QuestionTrueFalse:
		q = &TrueFalseQuestion{}
	case QuestionTypeAnswer:
		q = &TypeAnswerQuestion{}
	case QuestionPin:
		q = &PinQuestion{}
	case QuestionPuzzle:
		q = &PuzzleQuestion{}
	default:
		return nil, fmt.Errorf("question %q: %w", tag, ErrUnknownQuestionType)
	}
	if err := json.Unmarshal(data, q); err != nil {
		return nil, err
	}
	return q, nil
}

// MarshalAnswer encodes an answer with its type tag.
func MarshalAnswer(a Answer) ([]byte, error) {
	return marshalTagged(string(a.Type()), a)
}

// UnmarshalAnswer decodes a tagged answer.
func UnmarshalAnswer(data []byte) (Answer, error) {
	tag, err := peekType(data)
	if err != nil {
		return nil, err
	}
	a, err := NewAnswer(QuestionType(tag))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, err
	}
	return a, nil
}

// NewAnswer returns an empty answer of the given type.
func NewAnswer(t QuestionType) (Answer, error) {
	switch t {
	case QuestionMultiChoice:
		return &MultiChoiceAnswer{}, nil
	case QuestionRange:
		return &RangeAnswer{}, nil
	case QuestionTrueFalse:
		return &TrueFalseAnswer{}, nil
	case QuestionTypeAnswer:
		return &TypeAnswerAnswer{}, nil
	case QuestionPin:
		return &PinAnswer{}, nil
	case QuestionPuzzle:
		return &PuzzleAnswer{}, nil
	default:
		return nil, fmt.Errorf("answer %q: %w", t, ErrUnknownQuestionType)
	}
}

func marshalTask(t Task) ([]byte, error) {
	return marshalTagged(string(t.Type()), t)
}

func unmarshalTask(data []byte) (Task, error) {
	tag, err := peekType(data)
	if err != nil {
		return nil, err
	}
	var t Task
	switch TaskType(tag) {
	case TaskLobby:
		t = &LobbyTask{}
	case TaskQuestion:
		t = &QuestionTask{}
	case TaskQuestionResult:
		t = &QuestionResultTask{}
	case TaskLeaderboard:
		t = &LeaderboardTask{}
	case TaskPodium:
		t = &PodiumTask{}
	case TaskQuit:
		t = &QuitTask{}
	default:
		return nil, fmt.Errorf("task %q: %w", tag, ErrUnknownTask)
	}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, err
	}
	return t, nil
}

func marshalParticipant(p Participant) ([]byte, error) {
	return marshalTagged(string(p.Type()), p)
}

func unmarshalParticipant(data []byte) (Participant, error) {
	tag, err := peekType(data)
	if err != nil {
		return nil, err
	}
	var p Participant
	switch ParticipantType(tag) {
	case ParticipantHost:
		p = &Host{}
	case ParticipantPlayer:
		p = &Player{}
	default:
		return nil, fmt.Errorf("unknown participant type %q", tag)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (t QuestionTask) MarshalJSON() ([]byte, error) {
	type plain QuestionTask
	answers := make([]json.RawMessage, 0, len(t.Answers))
	for _, a := range t.Answers {
		raw, err := MarshalAnswer(a)
		if err != nil {
			return nil, err
		}
		answers = append(answers, raw)
	}
	return json.Marshal(struct {
		plain
		Answers []json.RawMessage `json:"answers"`
	}{plain: plain(t), Answers: answers})
}

func (t *QuestionTask) UnmarshalJSON(data []byte) error {
	type plain QuestionTask
	var aux struct {
		plain
		Answers []json.RawMessage `json:"answers"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = QuestionTask(aux.plain)
	t.Answers = make([]Answer, 0, len(aux.Answers))
	for _, raw := range aux.Answers {
		a, err := UnmarshalAnswer(raw)
		if err != nil {
			return err
		}
		t.Answers = append(t.Answers, a)
	}
	return nil
}

func (e QuestionResultEntry) MarshalJSON() ([]byte, error) {
	type plain QuestionResultEntry
	var answer json.RawMessage
	if e.Answer != nil {
		raw, err := MarshalAnswer(e.Answer)
		if err != nil {
			return nil, err
		}
		answer = raw
	}
	return json.Marshal(struct {
		plain
		Answer json.RawMessage `json:"answer,omitempty"`
	}{plain: plain(e), Answer: answer})
}

func (e *QuestionResultEntry) UnmarshalJSON(data []byte) error {
	type plain QuestionResultEntry
	var aux struct {
		plain
		Answer json.RawMessage `json:"answer,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = QuestionResultEntry(aux.plain)
	e.Answer = nil
	if !isNull(aux.Answer) {
		a, err := UnmarshalAnswer(aux.Answer)
		if err != nil {
			return err
		}
		e.Answer = a
	}
	return nil
}

func marshalQuestions(questions []Question) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(questions))
	for _, q := range questions {
		raw, err := MarshalQuestion(q)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func unmarshalQuestions(raws []json.RawMessage) ([]Question, error) {
	out := make([]Question, 0, len(raws))
	for _, raw := range raws {
		q, err := UnmarshalQuestion(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (q Quiz) MarshalJSON() ([]byte, error) {
	type plain Quiz
	questions, err := marshalQuestions(q.Questions)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		plain
		Questions []json.RawMessage `json:"questions"`
	}{plain: plain(q), Questions: questions})
}

func (q *Quiz) UnmarshalJSON(data []byte) error {
	type plain Quiz
	var aux struct {
		plain
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	questions, err := unmarshalQuestions(aux.Questions)
	if err != nil {
		return err
	}
	*q = Quiz(aux.plain)
	q.Questions = questions
	return nil
}

type gameJSON struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Mode          GameMode          `json:"mode"`
	Status        GameStatus        `json:"status"`
	PIN           string            `json:"pin"`
	Questions     []json.RawMessage `json:"questions"`
	Participants  []json.RawMessage `json:"participants"`
	CurrentTask   json.RawMessage   `json:"currentTask"`
	PreviousTasks []json.RawMessage `json:"previousTasks"`
	Created       time.Time         `json:"created"`
	Updated       time.Time         `json:"updated"`
}

func (g Game) MarshalJSON() ([]byte, error) {
	if g.CurrentTask == nil {
		return nil, ErrMissingCurrentTask
	}
	out := gameJSON{
		ID: g.ID, Name: g.Name, Mode: g.Mode, Status: g.Status, PIN: g.PIN,
		Created: g.Created, Updated: g.Updated,
	}
	var err error
	if out.Questions, err = marshalQuestions(g.Questions); err != nil {
		return nil, err
	}
	out.Participants = make([]json.RawMessage, 0, len(g.Participants))
	for _, p := range g.Participants {
		raw, err := marshalParticipant(p)
		if err != nil {
			return nil, err
		}
		out.Participants = append(out.Participants, raw)
	}
	if out.CurrentTask, err = marshalTask(g.CurrentTask); err != nil {
		return nil, err
	}
	out.PreviousTasks = make([]json.RawMessage, 0, len(g.PreviousTasks))
	for _, t := range g.PreviousTasks {
		raw, err := marshalTask(t)
		if err != nil {
			return nil, err
		}
		out.PreviousTasks = append(out.PreviousTasks, raw)
	}
	return json.Marshal(out)
}

func (g *Game) UnmarshalJSON(data []byte) error {
	var in gameJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if isNull(in.CurrentTask) {
		return ErrMissingCurrentTask
	}
	questions, err := unmarshalQuestions(in.Questions)
	if err != nil {
		return err
	}
	participants := make([]Participant, 0, len(in.Participants))
	for _, raw := range in.Participants {
		p, err := unmarshalParticipant(raw)
		if err != nil {
			return err
		}
		participants = append(participants, p)
	}
	current, err := unmarshalTask(in.CurrentTask)
	if err != nil {
		return err
	}
	previous := make([]Task, 0, len(in.PreviousTasks))
	for _, raw := range in.PreviousTasks {
		t, err := unmarshalTask(raw)
		if err != nil {
			return err
		}
		previous = append(previous, t)
	}
	*g = Game{
		ID: in.ID, Name: in.Name, Mode: in.Mode, Status: in.Status, PIN: in.PIN,
		Questions: questions, Participants: participants,
		CurrentTask: current, PreviousTasks: previous,
		Created: in.Created, Updated: in.Updated,
	}
	return nil
}
