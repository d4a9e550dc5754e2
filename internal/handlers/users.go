package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"socialapi/internal/auth"
	"socialapi/internal/database"
	"socialapi/internal/images"
	"socialapi/internal/models"
)

const recentPostsLimit = 10

func profileOf(db *sql.DB, userID string) (*models.Profile, error) {
	user, err := database.GetUserByID(db, userID)
	if err != nil {
		return nil, err
	}
	user.Password = ""
	posts, err := database.GetPostsByUser(db, userID, recentPostsLimit)
	if err != nil {
		return nil, err
	}
	return &models.Profile{User: *user, Posts: posts}, nil
}

// Me returns the authenticated user's profile with their recent posts.
func Me(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(auth.UserIDKey).(string)
		profile, err := profileOf(db, userID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			slog.Error("failed to load profile", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

type updateProfileRequest struct {
	Username        *string `json:"username"`
	Email           *string `json:"email"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"`
}

// UpdateMe applies a partial self update. A password change requires the
// current password; username/email conflicts come back as 400 naming the
// colliding field.
func UpdateMe(db *sql.DB, bcryptCost int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(auth.UserIDKey).(string)

		var req updateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Username != nil {
			trimmed := strings.TrimSpace(*req.Username)
			if msg := auth.ValidateUsername(trimmed); msg != "" {
				writeError(w, http.StatusBadRequest, msg)
				return
			}
			req.Username = &trimmed
		}
		if req.Email != nil {
			trimmed := strings.TrimSpace(*req.Email)
			if msg := auth.ValidateEmail(trimmed); msg != "" {
				writeError(w, http.StatusBadRequest, msg)
				return
			}
			req.Email = &trimmed
		}

		var passwordHash *string
		if req.NewPassword != "" {
			if len(req.NewPassword) < 6 {
				writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
				return
			}
			if req.CurrentPassword == "" {
				writeError(w, http.StatusBadRequest, "current password is required")
				return
			}
			user, err := database.GetUserByID(db, userID)
			if err != nil {
				slog.Error("failed to get user", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			if err := auth.CheckPassword(user.Password, req.CurrentPassword); err != nil {
				writeError(w, http.StatusBadRequest, "current password is incorrect")
				return
			}
			hash, err := auth.HashPassword(req.NewPassword, bcryptCost)
			if err != nil {
				slog.Error("failed to hash password", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
			passwordHash = &hash
		}

		if req.Username == nil && req.Email == nil && passwordHash == nil {
			writeError(w, http.StatusBadRequest, "nothing to update")
			return
		}

		user, err := database.UpdateUserProfile(db, userID, req.Username, req.Email, passwordHash)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrDuplicateUsername), errors.Is(err, database.ErrDuplicateEmail):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, database.ErrNotFound):
				writeError(w, http.StatusNotFound, "user not found")
			default:
				slog.Error("failed to update profile", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}

// UpdateProfilePicture replaces the user's profile image with a normalized
// upload.
func UpdateProfilePicture(db *sql.DB, store *images.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(auth.UserIDKey).(string)

		refs, err := store.ProcessUpload(r, "images", 1)
		if err != nil {
			if images.IsValidationError(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("failed to process profile picture", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := database.SetProfilePicture(db, userID, refs[0]); err != nil {
			store.Remove(refs[0])
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			slog.Error("failed to set profile picture", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"message":         "profile picture updated",
			"profile_picture": refs[0],
		})
	}
}

// GetUser returns another user's public profile with their recent posts.
func GetUser(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := profileOf(db, mux.Vars(r)["id"])
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			slog.Error("failed to load profile", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		profile.Email = ""
		writeJSON(w, http.StatusOK, profile)
	}
}

func GetUserPosts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["id"]
		if _, err := database.GetUserByID(db, userID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			slog.Error("failed to get user", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		posts, err := database.GetPostsByUser(db, userID, 100)
		if err != nil {
			slog.Error("failed to get user posts", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

func SearchUsers(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		if query == "" {
			writeError(w, http.StatusBadRequest, "search query is required")
			return
		}

		users, err := database.SearchUsers(db, query, 10)
		if err != nil {
			slog.Error("failed to search users", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}
