// Package leaderboard ranks players by accumulated score.
package leaderboard

import (
	"sort"

	"live-quiz-service/internal/domain"
)

const (
	// HostViewSize is the number of entries shown on the host leaderboard.
	HostViewSize = 5
	// PodiumSize is the number of entries shown on the podium.
	PodiumSize = 3
)

// PodiumEntry is the reduced view of a podium row.
type PodiumEntry struct {
	Position int    `json:"position"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// Behind is the gap to the next-higher-ranked player.
type Behind struct {
	Points   int    `json:"points"`
	Nickname string `json:"nickname"`
}

// Rank orders players by descending total score. Equal scores share a
// position; their order is kept stable by previous position, then join order.
// previous may be nil.
func Rank(players []*domain.Player, previous []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	prior := make(map[string]int, len(previous))
	for _, e := range previous {
		prior[e.PlayerID] = e.Position
	}

	type ranked struct {
		player *domain.Player
		join   int
	}
	order := make([]ranked, 0, len(players))
	for i, p := range players {
		order = append(order, ranked{player: p, join: i})
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.player.TotalScore != b.player.TotalScore {
			return a.player.TotalScore > b.player.TotalScore
		}
		pa, okA := prior[a.player.ID]
		pb, okB := prior[b.player.ID]
		if okA && okB && pa != pb {
			return pa < pb
		}
		if okA != okB {
			return okA
		}
		return a.join < b.join
	})

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for i, r := range order {
		position := i + 1
		if i > 0 && entries[i-1].Score == r.player.TotalScore {
			position = entries[i-1].Position
		}
		entry := domain.LeaderboardEntry{
			PlayerID: r.player.ID,
			Position: position,
			Nickname: r.player.Nickname,
			Score:    r.player.TotalScore,
			Streaks:  r.player.CurrentStreak,
		}
		if prev, ok := prior[r.player.ID]; ok {
			entry.PreviousPosition = &prev
		}
		entries = append(entries, entry)
	}
	return entries
}

// HostView returns the top entries shown to the host.
func HostView(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	n := min(len(entries), HostViewSize)
	out := make([]domain.LeaderboardEntry, n)
	copy(out, entries[:n])
	return out
}

// PodiumView returns the top three entries without identity or streak data.
func PodiumView(entries []domain.LeaderboardEntry) []PodiumEntry {
	n := min(len(entries), PodiumSize)
	out := make([]PodiumEntry, 0, n)
	for _, e := range entries[:n] {
		out = append(out, PodiumEntry{Position: e.Position, Nickname: e.Nickname, Score: e.Score})
	}
	return out
}

// BehindOf finds the closest entry ranked strictly ahead of playerID.
// It returns nil for a player holding the top position or not in results.
func BehindOf(results []domain.QuestionResultEntry, playerID string) *Behind {
	var me *domain.QuestionResultEntry
	for i := range results {
		if results[i].PlayerID == playerID {
			me = &results[i]
			break
		}
	}
	if me == nil || me.Position <= 1 {
		return nil
	}
	var ahead *domain.QuestionResultEntry
	for i := range results {
		r := &results[i]
		if r.Position >= me.Position {
			continue
		}
		if ahead == nil || r.Position > ahead.Position ||
			(r.Position == ahead.Position && r.TotalScore < ahead.TotalScore) {
			ahead = r
		}
	}
	if ahead == nil {
		return nil
	}
	gap := ahead.TotalScore - me.TotalScore
	if gap < 0 {
		gap = -gap
	}
	return &Behind{Points: gap, Nickname: ahead.Nickname}
}
