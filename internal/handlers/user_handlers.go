package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"idea-pond/internal/api"
	"idea-pond/internal/middleware"
	"idea-pond/internal/models"
	"idea-pond/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest represents a request to register a new profile
type RegisterRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
	Password    string `json:"password"`
}

// LoginRequest represents a request to log in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates a profile and issues a token. Profile editing lives
// elsewhere in the product; this exists so the messaging endpoints have
// authenticated callers and the inbox has identities to join.
func (s *Server) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Username == "" || req.Password == "" {
			http.Error(w, "Username and password required", http.StatusBadRequest)
			return
		}
		if req.DisplayName == "" {
			req.DisplayName = req.Username
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Failed to hash password", http.StatusInternalServerError)
			return
		}

		profile := &models.Profile{
			ID:           uuid.New().String(),
			Username:     req.Username,
			DisplayName:  req.DisplayName,
			AvatarRef:    req.AvatarRef,
			PasswordHash: string(hash),
			CreatedAt:    time.Now().UTC(),
		}

		if err := s.DB.SaveProfile(r.Context(), profile); err != nil {
			s.Metrics.IncrementErrors()
			http.Error(w, "Username already taken", utils.AppErrorToHTTPStatus(utils.ErrUserAlreadyExists))
			return
		}

		token, err := middleware.GenerateToken(profile.ID)
		if err != nil {
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		respondJSON(w, &api.LoginResponse{
			Success: true,
			Token:   token,
			UserID:  profile.ID,
		})
	}
}

// HandleLogin verifies credentials and issues a token.
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		profile, err := s.DB.GetProfileByUsername(r.Context(), req.Username)
		if err != nil {
			s.Metrics.IncrementErrors()
			http.Error(w, "Failed to process login", http.StatusInternalServerError)
			return
		}
		if profile == nil || bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)) != nil {
			respondJSON(w, &api.LoginResponse{
				Success: false,
				Error:   "invalid credentials",
			})
			return
		}

		token, err := middleware.GenerateToken(profile.ID)
		if err != nil {
			http.Error(w, "Failed to generate token", http.StatusInternalServerError)
			return
		}

		respondJSON(w, &api.LoginResponse{
			Success: true,
			Token:   token,
			UserID:  profile.ID,
		})
	}
}
