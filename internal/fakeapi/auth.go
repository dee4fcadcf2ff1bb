package fakeapi

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tonimelisma/moneyboard/internal/api"
)

const minPasswordLen = 8

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.Health{Status: "ok", Message: "moneyboard fake backend"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds api.LoginCredentials
	if !decode(w, r, &creds) {
		return
	}

	s.mu.Lock()
	u := s.userByEmail(creds.Email)
	s.mu.Unlock()

	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(creds.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "No active account found with the given credentials")

		return
	}

	access, refresh, err := s.tokens.issuePair(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	s.logger.Info("fakeapi login", slog.Int("user_id", u.ID))

	writeJSON(w, http.StatusOK, api.LoginResponse{Access: access, Refresh: refresh, User: u.User})
}

type registerResponse struct {
	User    api.User          `json:"user"`
	Tokens  map[string]string `json:"tokens"`
	Message string            `json:"message"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var data api.RegisterData
	if !decode(w, r, &data) {
		return
	}

	fieldErrs := map[string][]string{}

	switch {
	case !strings.Contains(data.Email, "@"):
		fieldErrs["email"] = []string{"Enter a valid email address."}
	case len(data.Password) < minPasswordLen:
		fieldErrs["password"] = []string{"This password is too short. It must contain at least 8 characters."}
	case data.Password != data.PasswordConfirm:
		fieldErrs["password"] = []string{"Password fields didn't match."}
	}

	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)

		return
	}

	s.mu.Lock()

	if s.userByEmail(data.Email) != nil {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"user with this email already exists."}})

		return
	}

	u, err := s.addUser(data.Email, data.Password, data.FirstName, data.LastName)
	s.mu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	access, refresh, err := s.tokens.issuePair(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		User:    u.User,
		Tokens:  map[string]string{"access": access, "refresh": refresh},
		Message: "User registered successfully",
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	var body struct {
		Refresh string `json:"refresh"`
	}
	if !decode(w, r, &body) {
		return
	}

	if body.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})

		return
	}

	access, rotated, err := s.tokens.redeem(body.Refresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})

		return
	}

	resp := map[string]string{"access": access}
	if rotated != "" {
		resp["refresh"] = rotated
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	u, ok := s.users[userID(r)]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "User not found.")

		return
	}

	writeJSON(w, http.StatusOK, u.User)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var data api.UpdateProfileData
	if !decode(w, r, &data) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found.")

		return
	}

	if data.Email != "" && !strings.EqualFold(data.Email, u.Email) {
		if s.userByEmail(data.Email) != nil {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"user with this email already exists."}})

			return
		}

		u.Email = data.Email
	}

	if data.FirstName != "" {
		u.FirstName = data.FirstName
	}

	if data.LastName != "" {
		u.LastName = data.LastName
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": u.User, "message": "Profile updated successfully"})
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var data api.ChangePasswordData
	if !decode(w, r, &data) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found.")

		return
	}

	switch {
	case bcrypt.CompareHashAndPassword(u.hash, []byte(data.OldPassword)) != nil:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"old_password": {"Old password is not correct"}})

		return
	case len(data.NewPassword) < minPasswordLen:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"new_password": {"This password is too short. It must contain at least 8 characters."}})

		return
	case data.NewPassword != data.NewPasswordConfirm:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"new_password": {"Password fields didn't match."}})

		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(data.NewPassword), bcrypt.MinCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())

		return
	}

	u.hash = hash

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}
