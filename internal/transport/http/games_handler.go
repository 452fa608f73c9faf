package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
)

const maxBodyBytes = 64 << 10

type createGameRequest struct {
	QuizID   string          `json:"quizId"`
	Name     string          `json:"name"`
	Mode     domain.GameMode `json:"mode"`
	Nickname string          `json:"nickname"`
}

type createGameResponse struct {
	GameID string `json:"gameId"`
	PIN    string `json:"pin"`
	HostID string `json:"participantId"`
	Token  string `json:"token"`
}

type joinGameRequest struct {
	PIN      string `json:"pin"`
	Nickname string `json:"nickname"`
}

type joinGameResponse struct {
	GameID        string `json:"gameId"`
	ParticipantID string `json:"participantId"`
	Token         string `json:"token"`
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeJSON(r, &req); err != nil || req.QuizID == "" {
		writeMessage(w, http.StatusBadRequest, "quizId is required")
		return
	}
	g, err := h.games.CreateGame(r.Context(), app.CreateGameRequest{
		QuizID:       req.QuizID,
		Name:         req.Name,
		Mode:         req.Mode,
		HostNickname: req.Nickname,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	host, _ := g.Host()
	token, err := h.tokens.Issue(auth.Identity{ParticipantID: host.ID, GameID: g.ID, Type: domain.ParticipantHost})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createGameResponse{GameID: g.ID, PIN: g.PIN, HostID: host.ID, Token: token})
}

func (h *Handler) joinGame(w http.ResponseWriter, r *http.Request) {
	var req joinGameRequest
	if err := decodeJSON(r, &req); err != nil || req.PIN == "" {
		writeMessage(w, http.StatusBadRequest, "pin is required")
		return
	}
	gameID, playerID, err := h.games.Join(r.Context(), req.PIN, req.Nickname)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	token, err := h.tokens.Issue(auth.Identity{ParticipantID: playerID, GameID: gameID, Type: domain.ParticipantPlayer})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinGameResponse{GameID: gameID, ParticipantID: playerID, Token: token})
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	if err := h.games.Advance(r.Context(), id.GameID, id.ParticipantID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) quit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	if err := h.games.Quit(r.Context(), id.GameID, id.ParticipantID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid answer payload")
		return
	}
	answer, err := domain.UnmarshalAnswer(data)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid answer payload")
		return
	}
	if err := h.games.SubmitAnswer(r.Context(), id.GameID, id.ParticipantID, answer); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) removePlayer(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	if err := h.games.Leave(r.Context(), id.GameID, id.ParticipantID, chi.URLParam(r, "playerID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) result(w http.ResponseWriter, r *http.Request) {
	result, err := h.games.Result(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// identify resolves the bearer token against the game in the path.
func (h *Handler) identify(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	id, err := auth.ForGame(h.tokens, token, chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeError(w, r, err)
		return auth.Identity{}, false
	}
	return id, true
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
