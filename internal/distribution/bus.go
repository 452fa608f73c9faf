// Package distribution fans game events out to connected participants.
//
// Every instance holds one subscription to the shared bus. Each participant
// stream gets its current state first and then the live envelopes addressed
// to its game and to it, plus a local heartbeat.
package distribution

import (
	"context"
	"encoding/json"
)

// DefaultChannel is the bus topic game envelopes travel on.
const DefaultChannel = "live-quiz:events"

// Envelope is one event on the bus. An empty GameID or ParticipantID
// matches every stream.
type Envelope struct {
	GameID        string          `json:"gameId,omitempty"`
	ParticipantID string          `json:"participantId,omitempty"`
	Event         json.RawMessage `json:"event"`
}

// Matches reports whether the envelope is addressed to a stream.
func (e Envelope) Matches(gameID, participantID string) bool {
	if e.GameID != "" && e.GameID != gameID {
		return false
	}
	return e.ParticipantID == "" || e.ParticipantID == participantID
}

// Bus carries envelopes between service instances. Delivery is at least once.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe returns a stream that is closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan Envelope, error)
	Close() error
}
