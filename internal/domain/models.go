package domain

import (
	"strings"
	"time"
)

// GameMode selects the scoring rules of a game.
type GameMode string

const (
	ModeClassic          GameMode = "Classic"
	ModeZeroToOneHundred GameMode = "ZeroToOneHundred"
)

// GameStatus is the coarse lifecycle of a game.
type GameStatus string

const (
	GameActive    GameStatus = "Active"
	GameCompleted GameStatus = "Completed"
)

// ParticipantType discriminates the Participant union.
type ParticipantType string

const (
	ParticipantHost   ParticipantType = "Host"
	ParticipantPlayer ParticipantType = "Player"
)

// Participant is either a Host or a Player of one game.
type Participant interface {
	Type() ParticipantType
	ParticipantID() string
	Name() string
	isParticipant()
}

// Host controls the pacing of a game.
type Host struct {
	ID       string    `json:"id"`
	Nickname string    `json:"nickname"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// Player answers questions and accumulates a score.
type Player struct {
	ID                string    `json:"id"`
	Nickname          string    `json:"nickname"`
	Created           time.Time `json:"created"`
	Updated           time.Time `json:"updated"`
	Rank              int       `json:"rank"`
	WorstRank         int       `json:"worstRank"`
	TotalScore        int       `json:"totalScore"`
	CurrentStreak     int       `json:"currentStreak"`
	TotalResponseTime int64     `json:"totalResponseTime"` // milliseconds
	ResponseCount     int       `json:"responseCount"`
}

func (h *Host) Type() ParticipantType   { return ParticipantHost }
func (p *Player) Type() ParticipantType { return ParticipantPlayer }

func (h *Host) ParticipantID() string   { return h.ID }
func (p *Player) ParticipantID() string { return p.ID }

func (h *Host) Name() string   { return h.Nickname }
func (p *Player) Name() string { return p.Nickname }

func (*Host) isParticipant()   {}
func (*Player) isParticipant() {}

// Game is the aggregate root loaded, mutated and saved as one document.
type Game struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Mode          GameMode      `json:"mode"`
	Status        GameStatus    `json:"status"`
	PIN           string        `json:"pin"`
	Questions     []Question    `json:"questions"`
	Participants  []Participant `json:"participants"`
	CurrentTask   Task          `json:"currentTask"`
	PreviousTasks []Task        `json:"previousTasks"`
	Created       time.Time     `json:"created"`
	Updated       time.Time     `json:"updated"`
}

// Participant looks up a member of the game by id.
func (g *Game) Participant(id string) (Participant, bool) {
	for _, p := range g.Participants {
		if p.ParticipantID() == id {
			return p, true
		}
	}
	return nil, false
}

// Host returns the host participant.
func (g *Game) Host() (*Host, bool) {
	for _, p := range g.Participants {
		if h, ok := p.(*Host); ok {
			return h, true
		}
	}
	return nil, false
}

// Players returns the players in join order.
func (g *Game) Players() []*Player {
	players := make([]*Player, 0, len(g.Participants))
	for _, p := range g.Participants {
		if pl, ok := p.(*Player); ok {
			players = append(players, pl)
		}
	}
	return players
}

// NicknameTaken reports whether a participant already uses the nickname, ignoring case.
func (g *Game) NicknameTaken(nickname string) bool {
	for _, p := range g.Participants {
		if strings.EqualFold(strings.TrimSpace(p.Name()), strings.TrimSpace(nickname)) {
			return true
		}
	}
	return false
}

// LastTaskOf scans the task history backwards for the most recent task of a type.
func (g *Game) LastTaskOf(t TaskType) (Task, bool) {
	for i := len(g.PreviousTasks) - 1; i >= 0; i-- {
		if g.PreviousTasks[i].Type() == t {
			return g.PreviousTasks[i], true
		}
	}
	return nil, false
}

// QuestionAt returns the question at index or ErrQuestionIndexOutOfRange.
func (g *Game) QuestionAt(index int) (Question, error) {
	if index < 0 || index >= len(g.Questions) {
		return nil, ErrQuestionIndexOutOfRange
	}
	return g.Questions[index], nil
}
