package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	auth "github.com/Turbo-Dex/backend"
)

type signupRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type signupResponse struct {
	User         auth.Profile `json:"user"`
	RecoveryCode string       `json:"recovery_code"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	User         *auth.Profile `json:"user,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetRequest struct {
	Username     string `json:"username"`
	RecoveryCode string `json:"recovery_code"`
	NewPassword  string `json:"new_password"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}
	if !validUsername(req.Username) || !validPassword(req.Password) || !validDisplayName(req.DisplayName) {
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidInput)
		return
	}

	profile, code, err := s.engine.Signup(r.Context(), req.Username, req.Password, req.DisplayName)
	if err != nil {
		s.fail(w, "signup", err)
		return
	}
	writeJSON(w, http.StatusCreated, signupResponse{User: profile, RecoveryCode: code})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidInput)
		return
	}

	pair, profile, err := s.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.fail(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		User:         &profile,
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := s.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.fail(w, "refresh", err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decode(w, r, &req) {
		return
	}
	_ = s.engine.Logout(r.Context(), req.RefreshToken)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.RecoveryCode == "" || !validPassword(req.NewPassword) {
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidInput)
		return
	}

	if err := s.engine.ResetPassword(r.Context(), req.Username, req.RecoveryCode, req.NewPassword); err != nil {
		s.fail(w, "reset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
