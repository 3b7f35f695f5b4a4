package server

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/iyedlimem/Flenci-server-side/core/auth"
	"github.com/iyedlimem/Flenci-server-side/logger"
	"github.com/iyedlimem/Flenci-server-side/model"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"` // Username or email
	Password   string `json:"password"`
}

// RegisterHandler creates a new account and returns a signed token.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Username == "" {
		respondError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		respondError(w, http.StatusBadRequest, "Invalid email address")
		return
	}
	if len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	if existing, err := h.userRepo.GetUserByUsername(req.Username); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check username")
		return
	} else if existing != nil {
		respondError(w, http.StatusConflict, "Username is already taken")
		return
	}
	if existing, err := h.userRepo.GetUserByEmail(req.Email); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check email")
		return
	} else if existing != nil {
		respondError(w, http.StatusConflict, "Email is already registered")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "user",
	}
	id, err := h.userRepo.CreateUser(user)
	if err != nil {
		logger.Error("Failed to create user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}
	user.ID = id

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	logger.Info("User registered",
		logger.Int64("userId", user.ID),
		logger.String("username", user.Username))

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// LoginHandler authenticates by username or email and returns a signed token.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Identifier = strings.TrimSpace(req.Identifier)
	if req.Identifier == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Identifier and password are required")
		return
	}

	var user *model.User
	var err error
	if strings.Contains(req.Identifier, "@") {
		user, err = h.userRepo.GetUserByEmail(strings.ToLower(req.Identifier))
	} else {
		user, err = h.userRepo.GetUserByUsername(req.Identifier)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to look up user")
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	logger.Info("User logged in", logger.Int64("userId", user.ID))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
