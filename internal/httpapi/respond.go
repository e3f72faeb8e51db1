package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nfcaccess/server/internal/nfcaccess/service"
	"github.com/nfcaccess/server/internal/nfcaccess/store"
)

// maxRequestBody caps JSON and protobuf bodies.  User payloads are a handful
// of short strings.
const maxRequestBody = 16 << 10

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	CardUUID string `json:"nfc_card_uuid,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// decodeJSON reads one JSON object from the body.  Unknown fields are
// rejected so misspelled keys do not silently become no-ops.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}

// statusFor maps a service or store error onto an HTTP status and a stable
// machine-readable code.
func statusFor(err error) (int, string) {
	var cardBound *service.CardBoundError
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, service.ErrPairTokenNotFound):
		return http.StatusNotFound, "pair_token_not_found"
	case errors.Is(err, service.ErrNoActiveSession):
		return http.StatusNotFound, "no_active_session"
	case errors.Is(err, service.ErrInconsistentState):
		return http.StatusNotFound, "inconsistent_state"
	case errors.Is(err, service.ErrDuplicateNationalID):
		return http.StatusBadRequest, "duplicate_cpf"
	case errors.Is(err, service.ErrDuplicateEmail):
		return http.StatusBadRequest, "duplicate_email"
	case errors.Is(err, service.ErrDuplicateCardUUID):
		return http.StatusBadRequest, "duplicate_nfc_card_uuid"
	case errors.As(err, &cardBound), errors.Is(err, service.ErrAlreadyBound):
		return http.StatusConflict, "already_bound"
	case errors.Is(err, service.ErrCardAlreadyBound):
		return http.StatusConflict, "card_already_bound"
	case errors.Is(err, service.ErrPairingInProgress):
		return http.StatusConflict, "pairing_in_progress"
	case errors.Is(err, service.ErrNoCardBound):
		return http.StatusBadRequest, "no_card_bound"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeServiceError renders err as an {error} body.  Only unexpected
// failures are logged; business outcomes are already in the access log.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := errorBody{Error: err.Error(), Code: code}

	var cardBound *service.CardBoundError
	if errors.As(err, &cardBound) {
		body.CardUUID = cardBound.UUID
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		body.Error = "internal server error"
	}
	writeJSON(w, status, body)
}
