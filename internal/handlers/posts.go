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
)

const maxPostLength = 1000

// CreatePost accepts a multipart form with a text field and 1-5 image
// files, normalized by the image store before the post row is written.
func CreatePost(db *sql.DB, store *images.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(auth.UserIDKey).(string)

		refs, err := store.ProcessUpload(r, "images", images.MaxImages)
		if err != nil {
			if images.IsValidationError(err) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			slog.Error("failed to process images", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		text := strings.TrimSpace(r.FormValue("text"))
		if text == "" || len(text) > maxPostLength {
			for _, ref := range refs {
				store.Remove(ref)
			}
			writeError(w, http.StatusBadRequest, "text is required and must be at most 1000 characters")
			return
		}

		post, err := database.CreatePost(db, userID, text, refs)
		if err != nil {
			for _, ref := range refs {
				store.Remove(ref)
			}
			slog.Error("failed to create post", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, post)
	}
}

func ListPosts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := database.GetPosts(db)
		if err != nil {
			slog.Error("failed to list posts", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, posts)
	}
}

func GetPost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := database.GetPostByID(db, mux.Vars(r)["id"])
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "post not found")
				return
			}
			slog.Error("failed to get post", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

// ownPost loads the post and enforces the ownership rule: a missing post is
// 404 before any ownership comparison, a non-owner gets 403.
func ownPost(w http.ResponseWriter, db *sql.DB, postID, userID string) bool {
	post, err := database.GetPostByID(db, postID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return false
		}
		slog.Error("failed to get post", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return false
	}
	if post.UserID != userID {
		writeError(w, http.StatusForbidden, "not authorized")
		return false
	}
	return true
}

func UpdatePost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["id"]
		userID := r.Context().Value(auth.UserIDKey).(string)

		var req struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Text = strings.TrimSpace(req.Text)
		if req.Text == "" || len(req.Text) > maxPostLength {
			writeError(w, http.StatusBadRequest, "text is required and must be at most 1000 characters")
			return
		}

		if !ownPost(w, db, postID, userID) {
			return
		}

		post, err := database.UpdatePostText(db, postID, req.Text)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "post not found")
				return
			}
			slog.Error("failed to update post", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func DeletePost(db *sql.DB, store *images.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["id"]
		userID := r.Context().Value(auth.UserIDKey).(string)

		if !ownPost(w, db, postID, userID) {
			return
		}

		imageRefs, err := database.DeletePost(db, postID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "post not found")
				return
			}
			slog.Error("failed to delete post", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		for _, ref := range imageRefs {
			store.Remove(ref)
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
	}
}

// TogglePostLike likes the post for this user, or removes the like if it
// already exists.
func TogglePostLike(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["id"]
		userID := r.Context().Value(auth.UserIDKey).(string)

		if _, err := database.GetPostByID(db, postID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "post not found")
				return
			}
			slog.Error("failed to get post", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		liked, likes, err := database.TogglePostLike(db, postID, userID)
		if err != nil {
			slog.Error("failed to toggle like", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		msg := "post unliked"
		if liked {
			msg = "post liked"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": msg,
			"likes":   likes,
		})
	}
}
