package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nfcaccess/server/internal/nfcaccess/service"
	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	var req types.LinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	change, err := s.gateway.LinkDirect(r.Context(), req.NationalID, req.CardUUID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{
		Message: "nfc card linked",
		User:    change.User,
		LogID:   change.Log.ID,
	})
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	var req types.UnlinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	change, err := s.gateway.Unlink(r.Context(), req.NationalID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{
		Message: "nfc card unlinked",
		User:    change.User,
		LogID:   change.Log.ID,
	})
}

// handleValidate is hit by the reader on every scan.  A denial is a 404 with
// authorized=false, not an error body.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	decision, err := s.gateway.Validate(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := types.ValidateResponse{
		Authorized: decision.Authorized,
		User:       decision.User,
		LogID:      decision.Log.ID,
	}
	status := http.StatusOK
	if decision.Authorized {
		resp.Message = "access granted for " + decision.User.Name
	} else {
		resp.Message = "nfc card not registered"
		status = http.StatusNotFound
	}

	if wantsProtobuf(r) {
		writeProto(w, status, marshalValidateResponse(resp))
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePairStart(w http.ResponseWriter, r *http.Request) {
	var req types.PairStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	resp, err := s.pairing.Start(r.Context(), req.NationalID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleSync binds the scanned card to whichever user most recently started
// pairing.  Readers may send protobuf; the reply then uses the same encoding.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var (
		req types.SyncRequest
		err error
	)
	pb := isProtobuf(r)
	if pb {
		req, err = readSyncRequest(r)
	} else {
		err = decodeJSON(r, &req)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	resp, err := s.pairing.Sync(r.Context(), req.CardUUID)
	status := http.StatusOK
	switch {
	case err == nil:
		resp.Message = "nfc card linked to " + resp.User.Name
	case errors.Is(err, service.ErrNoActiveSession):
		status = http.StatusNotFound
	default:
		if !pb {
			s.writeServiceError(w, r, err)
			return
		}
		status, _ = statusFor(err)
		resp = types.SyncResponse{Linked: false, Message: err.Error()}
		if status == http.StatusInternalServerError {
			s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("sync failed")
			resp.Message = "internal server error"
		}
	}

	if pb || wantsProtobuf(r) {
		writeProto(w, status, marshalSyncResponse(resp))
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) handlePairStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.pairing.Status(r.Context(), chi.URLParam(r, "pair_token"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	overview, err := s.gateway.Cards(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
