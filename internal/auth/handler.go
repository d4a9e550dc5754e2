package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"socialapi/internal/database"
	"socialapi/internal/models"
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// ValidateUsername returns a client-facing message when the username is
// malformed, or "" when it is acceptable. The charset excludes "@" so a
// username can never shadow another account's email in login lookups.
func ValidateUsername(username string) string {
	if len(username) < 3 || len(username) > 50 {
		return "username must be between 3 and 50 characters"
	}
	if !usernameRegex.MatchString(username) {
		return "username may only contain letters, digits, dots, dashes and underscores"
	}
	return ""
}

// ValidateEmail returns a client-facing message when the email is
// malformed, or "" when it is acceptable.
func ValidateEmail(email string) string {
	if !emailRegex.MatchString(email) {
		return "please provide a valid email address"
	}
	return ""
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	// Identifier accepts either the username or the email.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func validateRegistration(username, email, password string) string {
	if msg := ValidateUsername(username); msg != "" {
		return msg
	}
	if msg := ValidateEmail(email); msg != "" {
		return msg
	}
	if len(password) < 6 {
		return "password must be at least 6 characters"
	}
	return ""
}

func RegisterHandler(db *sql.DB, tokens *Tokens, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)

		if msg := validateRegistration(req.Username, req.Email, req.Password); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		hash, err := HashPassword(req.Password, bcryptCost)
		if err != nil {
			slog.Error("failed to hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user, err := database.CreateUser(db, req.Username, req.Email, hash)
		if err != nil {
			if errors.Is(err, database.ErrDuplicateUsername) || errors.Is(err, database.ErrDuplicateEmail) {
				slog.Warn("registration conflict", "username", req.Username, "reason", err)
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("failed to create user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := tokens.Issue(user.ID)
		if err != nil {
			slog.Error("failed to issue token", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		slog.Info("user registered", "user_id", user.ID, "username", user.Username)
		writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
	}
}

func LoginHandler(db *sql.DB, tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Identifier == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "identifier and password are required")
			return
		}

		// The 401 body is identical for an unknown identifier and a wrong
		// password; only the log distinguishes them.
		user, err := database.GetUserByIdentifier(db, req.Identifier)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				slog.Warn("login failed", "reason", "unknown identifier")
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			slog.Error("failed to get user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := CheckPassword(user.Password, req.Password); err != nil {
			slog.Warn("login failed", "reason", "wrong password", "user_id", user.ID)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := tokens.Issue(user.ID)
		if err != nil {
			slog.Error("failed to issue token", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user.Password = ""
		slog.Info("user logged in", "user_id", user.ID)
		writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
	}
}
