package events

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/engine"
	"live-quiz-service/internal/leaderboard"
)

// Build returns the event participant should see for the game's current
// task. A nil participant or the host gets the host view.
func Build(g *domain.Game, participant domain.Participant) (Event, error) {
	if g.CurrentTask == nil {
		return nil, domain.ErrMissingCurrentTask
	}
	var player *domain.Player
	if p, ok := participant.(*domain.Player); ok {
		player = p
	}
	status := g.CurrentTask.Base().Status

	switch task := g.CurrentTask.(type) {
	case *domain.LobbyTask:
		switch status {
		case domain.TaskPending:
			return loading(), nil
		case domain.TaskActive:
			if player != nil {
				return LobbyPlayer{Header: Header{Type: TypeLobbyPlayer}, Nickname: player.Nickname}, nil
			}
			return lobbyHost(g), nil
		default:
			begin := GameBegin{Header: Header{Type: TypeGameBegin}, Name: g.Name}
			if player != nil {
				begin.Nickname = player.Nickname
			}
			return begin, nil
		}

	case *domain.QuestionTask:
		q, err := g.QuestionAt(task.QuestionIndex)
		if err != nil {
			return nil, fmt.Errorf("build question event: %w", err)
		}
		info := questionInfo(g, task.QuestionIndex, q)
		if status == domain.TaskPending {
			return QuestionPreview{Header: Header{Type: TypeQuestionPreview}, Question: info}, nil
		}
		deadline, _ := engine.Deadline(g)
		interaction := interactionFor(task.ID, q)
		submissions := Submissions{Current: len(task.Answers), Total: len(g.Players())}
		if player == nil {
			return QuestionHost{
				Header:      Header{Type: TypeQuestionHost},
				Question:    info,
				Interaction: interaction,
				Deadline:    deadline,
				Submissions: submissions,
			}, nil
		}
		event := QuestionPlayer{
			Header:      Header{Type: TypeQuestionPlayer},
			Nickname:    player.Nickname,
			Question:    info,
			Interaction: interaction,
			Deadline:    deadline,
			Submissions: submissions,
		}
		if a, ok := task.AnswerBy(player.ID); ok {
			raw, err := domain.MarshalAnswer(a)
			if err != nil {
				return nil, err
			}
			event.Answer = raw
		}
		return event, nil

	case *domain.QuestionResultTask:
		if status != domain.TaskActive {
			return loading(), nil
		}
		q, err := g.QuestionAt(task.QuestionIndex)
		if err != nil {
			return nil, fmt.Errorf("build result event: %w", err)
		}
		if player == nil {
			return resultHost(g, task, q), nil
		}
		entry, ok := task.ResultFor(player.ID)
		if !ok {
			return nil, fmt.Errorf("result for %s: %w", player.ID, domain.ErrParticipantNotFound)
		}
		return ResultPlayer{
			Header:    Header{Type: TypeResultPlayer},
			Standing:  standing(task, entry),
			Correct:   entry.Correct,
			LastScore: entry.LastScore,
		}, nil

	case *domain.LeaderboardTask:
		if status != domain.TaskActive {
			return loading(), nil
		}
		if player == nil {
			return LeaderboardHost{Header: Header{Type: TypeLeaderboardHost}, Leaderboard: leaderboard.HostView(task.Leaderboard)}, nil
		}
		s, err := lastStanding(g, player)
		if err != nil {
			return nil, err
		}
		return LeaderboardPlayer{Header: Header{Type: TypeLeaderboardPlayer}, Standing: s}, nil

	case *domain.PodiumTask:
		if status != domain.TaskActive {
			return loading(), nil
		}
		podium := leaderboard.PodiumView(task.Leaderboard)
		if player == nil {
			return PodiumHost{Header: Header{Type: TypePodiumHost}, Podium: podium}, nil
		}
		s, err := lastStanding(g, player)
		if err != nil {
			return nil, err
		}
		return PodiumPlayer{Header: Header{Type: TypePodiumPlayer}, Standing: s, Podium: podium}, nil

	case *domain.QuitTask:
		// the game is always completed by now; report what it was when quit
		return Quit{Header: Header{Type: TypeQuit}, Status: task.GameStatus}, nil

	default:
		return nil, fmt.Errorf("%T: %w", task, domain.ErrUnknownTask)
	}
}

// BuildEncoded is Build followed by Encode.
func BuildEncoded(g *domain.Game, participant domain.Participant) (json.RawMessage, error) {
	e, err := Build(g, participant)
	if err != nil {
		return nil, err
	}
	return Encode(e)
}

func loading() Loading {
	return Loading{Header: Header{Type: TypeLoading}}
}

func lobbyHost(g *domain.Game) LobbyHost {
	players := g.Players()
	summaries := make([]PlayerSummary, 0, len(players))
	for _, p := range players {
		summaries = append(summaries, PlayerSummary{ID: p.ID, Nickname: p.Nickname})
	}
	return LobbyHost{
		Header:  Header{Type: TypeLobbyHost},
		GameID:  g.ID,
		Name:    g.Name,
		PIN:     g.PIN,
		Players: summaries,
	}
}

func questionInfo(g *domain.Game, index int, q domain.Question) QuestionInfo {
	base := q.Base()
	return QuestionInfo{
		Index:    index,
		Total:    len(g.Questions),
		Type:     q.Type(),
		Text:     base.Text,
		Media:    base.Media,
		Points:   base.MaxPoints(),
		Duration: int(base.TimeLimit().Seconds()),
	}
}

func interactionFor(taskID string, q domain.Question) Interaction {
	switch q := q.(type) {
	case *domain.MultiChoiceQuestion:
		options := make([]string, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, o.Value)
		}
		return Interaction{Options: options}
	case *domain.RangeQuestion:
		lo, hi, step := q.Min, q.Max, q.Step
		return Interaction{Min: &lo, Max: &hi, Step: &step}
	case *domain.PinQuestion:
		return Interaction{ImageURL: q.ImageURL}
	case *domain.PuzzleQuestion:
		return Interaction{Values: shuffled(taskID, q.Values)}
	default:
		return Interaction{}
	}
}

// shuffled returns a permutation of values that is stable for one task, so
// reconnecting clients see the same order.
func shuffled(seed string, values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	h := fnv.New64a()
	h.Write([]byte(seed))
	rnd := rand.New(rand.NewPCG(h.Sum64(), uint64(len(values))))
	rnd.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func resultHost(g *domain.Game, task *domain.QuestionResultTask, q domain.Question) ResultHost {
	event := ResultHost{
		Header:   Header{Type: TypeResultHost},
		Question: questionInfo(g, task.QuestionIndex, q),
	}
	top := make([]domain.LeaderboardEntry, 0, len(task.Results))
	for _, r := range task.Results {
		switch {
		case r.Answer == nil:
			event.Unanswered++
		case r.Correct:
			event.Correct++
		default:
			event.Incorrect++
		}
		top = append(top, domain.LeaderboardEntry{
			PlayerID: r.PlayerID,
			Position: r.Position,
			Nickname: r.Nickname,
			Score:    r.TotalScore,
			Streaks:  r.Streak,
		})
	}
	event.Top = leaderboard.HostView(top)
	return event
}

func standing(task *domain.QuestionResultTask, entry domain.QuestionResultEntry) Standing {
	return Standing{
		Nickname:   entry.Nickname,
		Position:   entry.Position,
		TotalScore: entry.TotalScore,
		Streak:     entry.Streak,
		Behind:     leaderboard.BehindOf(task.Results, entry.PlayerID),
	}
}

// lastStanding looks back to the most recent question result, since
// leaderboard and podium tasks carry no per-player detail.
func lastStanding(g *domain.Game, player *domain.Player) (Standing, error) {
	t, ok := g.LastTaskOf(domain.TaskQuestionResult)
	if !ok {
		return Standing{}, domain.ErrNoQuestionResult
	}
	task := t.(*domain.QuestionResultTask)
	entry, ok := task.ResultFor(player.ID)
	if !ok {
		return Standing{}, fmt.Errorf("result for %s: %w", player.ID, domain.ErrParticipantNotFound)
	}
	return standing(task, entry), nil
}
