package distribution

import "sync"

// ActiveStreams tracks which participants have an open stream on this
// instance. A participant may hold several connections at once.
type ActiveStreams struct {
	mu      sync.Mutex
	streams map[string]map[string]int // game -> participant -> open connections
	total   int
}

func NewActiveStreams() *ActiveStreams {
	return &ActiveStreams{streams: make(map[string]map[string]int)}
}

// Add registers a connection and reports whether the participant already
// had one open.
func (a *ActiveStreams) Add(gameID, participantID string) (duplicate bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	game, ok := a.streams[gameID]
	if !ok {
		game = make(map[string]int)
		a.streams[gameID] = game
	}
	duplicate = game[participantID] > 0
	game[participantID]++
	a.total++
	return duplicate
}

// Remove releases one connection.
func (a *ActiveStreams) Remove(gameID, participantID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	game, ok := a.streams[gameID]
	if !ok || game[participantID] == 0 {
		return
	}
	game[participantID]--
	a.total--
	if game[participantID] == 0 {
		delete(game, participantID)
	}
	if len(game) == 0 {
		delete(a.streams, gameID)
	}
}

// IsActive reports whether the participant has at least one open stream.
func (a *ActiveStreams) IsActive(gameID, participantID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.streams[gameID][participantID] > 0
}

// Participants returns the ids streaming a game.
func (a *ActiveStreams) Participants(gameID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.streams[gameID]))
	for id := range a.streams[gameID] {
		ids = append(ids, id)
	}
	return ids
}

// Total is the number of open connections across games.
func (a *ActiveStreams) Total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}
