// Package events maps a game's current task to the payload each participant sees.
package events

import (
	"encoding/json"
	"time"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/leaderboard"
)

// Type discriminates outbound events on the wire.
type Type string

const (
	TypeLoading           Type = "Loading"
	TypeLobbyHost         Type = "LobbyHost"
	TypeLobbyPlayer       Type = "LobbyPlayer"
	TypeGameBegin         Type = "GameBegin"
	TypeQuestionPreview   Type = "QuestionPreview"
	TypeQuestionHost      Type = "QuestionHost"
	TypeQuestionPlayer    Type = "QuestionPlayer"
	TypeResultHost        Type = "ResultHost"
	TypeResultPlayer      Type = "ResultPlayer"
	TypeLeaderboardHost   Type = "LeaderboardHost"
	TypeLeaderboardPlayer Type = "LeaderboardPlayer"
	TypePodiumHost        Type = "PodiumHost"
	TypePodiumPlayer      Type = "PodiumPlayer"
	TypeQuit              Type = "Quit"
	TypeHeartbeat         Type = "Heartbeat"
)

// Event is any outbound payload.
type Event interface {
	EventType() Type
}

// Header carries the discriminator and is embedded in every event.
type Header struct {
	Type Type `json:"type"`
}

func (h Header) EventType() Type { return h.Type }

// Encode serializes an event for the bus or a websocket frame.
func Encode(e Event) (json.RawMessage, error) {
	return json.Marshal(e)
}

// Peek returns the discriminator of an encoded event.
func Peek(raw []byte) (Type, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return "", err
	}
	return h.Type, nil
}

type Loading struct {
	Header
}

// PlayerSummary is a lobby row.
type PlayerSummary struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type LobbyHost struct {
	Header
	GameID  string          `json:"gameId"`
	Name    string          `json:"name"`
	PIN     string          `json:"pin"`
	Players []PlayerSummary `json:"players"`
}

type LobbyPlayer struct {
	Header
	Nickname string `json:"nickname"`
}

type GameBegin struct {
	Header
	Name     string `json:"name"`
	Nickname string `json:"nickname,omitempty"`
}

// QuestionInfo describes a question without revealing its solution.
type QuestionInfo struct {
	Index    int                 `json:"index"`
	Total    int                 `json:"total"`
	Type     domain.QuestionType `json:"questionType"`
	Text     string              `json:"text"`
	Media    *domain.Media       `json:"media,omitempty"`
	Points   int                 `json:"points"`
	Duration int                 `json:"duration"`
}

// Interaction holds the controls a player needs to answer.
type Interaction struct {
	Options  []string `json:"options,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Step     *float64 `json:"step,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// Submissions counts answers received against the number of players.
type Submissions struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

type QuestionPreview struct {
	Header
	Question QuestionInfo `json:"question"`
}

type QuestionHost struct {
	Header
	Question    QuestionInfo `json:"question"`
	Interaction Interaction  `json:"interaction"`
	Deadline    time.Time    `json:"deadline"`
	Submissions Submissions  `json:"submissions"`
}

type QuestionPlayer struct {
	Header
	Nickname    string          `json:"nickname"`
	Question    QuestionInfo    `json:"question"`
	Interaction Interaction     `json:"interaction"`
	Deadline    time.Time       `json:"deadline"`
	Submissions Submissions     `json:"submissions"`
	Answer      json.RawMessage `json:"answer,omitempty"`
}

type ResultHost struct {
	Header
	Question   QuestionInfo              `json:"question"`
	Correct    int                       `json:"correct"`
	Incorrect  int                       `json:"incorrect"`
	Unanswered int                       `json:"unanswered"`
	Top        []domain.LeaderboardEntry `json:"top"`
}

// Standing is a player's own position after the last question.
type Standing struct {
	Nickname   string              `json:"nickname"`
	Position   int                 `json:"position"`
	TotalScore int                 `json:"totalScore"`
	Streak     int                 `json:"streak"`
	Behind     *leaderboard.Behind `json:"behind,omitempty"`
}

type ResultPlayer struct {
	Header
	Standing
	Correct   bool `json:"correct"`
	LastScore int  `json:"lastScore"`
}

type LeaderboardHost struct {
	Header
	Leaderboard []domain.LeaderboardEntry `json:"leaderboard"`
}

type LeaderboardPlayer struct {
	Header
	Standing
}

type PodiumHost struct {
	Header
	Podium []leaderboard.PodiumEntry `json:"podium"`
}

type PodiumPlayer struct {
	Header
	Standing
	Podium []leaderboard.PodiumEntry `json:"podium"`
}

type Quit struct {
	Header
	Status domain.GameStatus `json:"status"`
}

type Heartbeat struct {
	Header
	Time time.Time `json:"time"`
}

// NewHeartbeat returns the keep-alive event.
func NewHeartbeat(now time.Time) Heartbeat {
	return Heartbeat{Header: Header{Type: TypeHeartbeat}, Time: now}
}
