package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/scoring"
)

const genericErrorMessage = "something went wrong, please retry"

var (
	errInvalidPayload     = errors.New("invalid payload")
	errUnsupportedMessage = errors.New("unsupported message type")
)

type errorPayload struct {
	Message string `json:"message"`
}

// statusFor maps an error to a response status and the message the caller
// may see. Faults never leak their details.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, auth.ErrWrongGame),
		errors.Is(err, domain.ErrNotHost),
		errors.Is(err, domain.ErrNotPlayer),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrGameNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrResultNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrAnswerTypeMismatch),
		errors.Is(err, domain.ErrAnswerOutOfBounds),
		errors.Is(err, domain.ErrInvalidNickname),
		errors.Is(err, scoring.ErrUnsupportedQuestion),
		errors.Is(err, errInvalidPayload),
		errors.Is(err, errUnsupportedMessage):
		return http.StatusBadRequest, err.Error()
	case domain.IsPolicyViolation(err):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, genericErrorMessage
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	writeMessage(w, status, message)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
