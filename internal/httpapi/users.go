package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nfcaccess/server/internal/nfcaccess/types"
)

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	u, err := s.directory.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.UserResponse{Message: "user created", User: u})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.directory.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UserListResponse{Users: users, Total: len(users)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.directory.FindByNationalID(r.Context(), chi.URLParam(r, "cpf"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{User: u})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch types.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	u, err := s.directory.UpdateByNationalID(r.Context(), chi.URLParam(r, "cpf"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UserResponse{Message: "user updated", User: u})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.DeleteByNationalID(r.Context(), chi.URLParam(r, "cpf")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "user deleted"})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.audit.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.LogListResponse{Logs: logs, Total: len(logs)})
}
