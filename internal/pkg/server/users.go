package server

import (
	"net/http"

	"github.com/anicoll/sensorhub/internal/pkg/model"
)

type registerPayload struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type credentialsPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshPayload struct {
	Refresh string `json:"refresh"`
}

type accessResponse struct {
	Access string `json:"access"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	payload, err := unmarshalPayload[registerPayload](r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	user, err := s.identity.CreateUser(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID, Email: user.Email, Username: user.Username})
}

func (s *Server) obtainToken(w http.ResponseWriter, r *http.Request) {
	payload, err := unmarshalPayload[credentialsPayload](r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if payload.Username == "" || payload.Password == "" {
		s.handleError(w, r, model.NewValidationError("", "username and password are required"))
		return
	}
	user, err := s.identity.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	pair, err := s.tokens.IssueTokenPair(user.ID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	payload, err := unmarshalPayload[refreshPayload](r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if payload.Refresh == "" {
		s.handleError(w, r, model.NewValidationError("refresh", "this field is required"))
		return
	}
	access, err := s.tokens.Refresh(payload.Refresh)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{Access: access})
}
