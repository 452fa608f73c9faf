package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
)

const maxMessageBytes = 16 << 10

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS streams a participant's events over a websocket and accepts
// answer, advance and quit commands on the same connection.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	id, err := auth.ForGame(h.tokens, r.URL.Query().Get("token"), gameID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// open the stream before upgrading so rejections are plain HTTP errors
	updates, err := h.streams.Stream(ctx, gameID, id.ParticipantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "game_id", gameID, "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageBytes)

	send := make(chan []byte, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("ws write error", "game_id", gameID, "error", err)
				// unblock the read loop
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					_ = conn.Close()
					return
				}
				select {
				case send <- update:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg []byte) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	limiter := rate.NewLimiter(h.inboundRate, h.inboundBurst)
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			reply(errorMessage("too many messages"))
			continue
		}
		if err := h.dispatch(ctx, id, inbound); err != nil {
			status, message := statusFor(err)
			if status == http.StatusInternalServerError {
				h.logger.Error("ws command failed", "game_id", gameID, "type", inbound.Type, "error", err)
			}
			reply(errorMessage(message))
		}
	}

	cancel()
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *Handler) dispatch(ctx context.Context, id auth.Identity, inbound inboundMessage) error {
	switch inbound.Type {
	case "answer":
		answer, err := domain.UnmarshalAnswer(inbound.Payload)
		if err != nil {
			return errInvalidPayload
		}
		return h.games.SubmitAnswer(ctx, id.GameID, id.ParticipantID, answer)
	case "advance":
		return h.games.Advance(ctx, id.GameID, id.ParticipantID)
	case "quit":
		return h.games.Quit(ctx, id.GameID, id.ParticipantID)
	default:
		return errUnsupportedMessage
	}
}

func errorMessage(message string) []byte {
	data, _ := json.Marshal(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
	return data
}
