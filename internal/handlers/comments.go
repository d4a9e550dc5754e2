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
)

const maxCommentLength = 500

func AddComment(db *sql.DB) http.HandlerFunc {
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
		if req.Text == "" || len(req.Text) > maxCommentLength {
			writeError(w, http.StatusBadRequest, "comment text is required and must be at most 500 characters")
			return
		}

		if _, err := database.GetPostByID(db, postID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "post not found")
				return
			}
			slog.Error("failed to get post", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		comment, err := database.CreateComment(db, postID, userID, req.Text)
		if err != nil {
			slog.Error("failed to create comment", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, comment)
	}
}

func GetComments(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := mux.Vars(r)["id"]

		if _, err := database.GetPostByID(db, postID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "post not found")
				return
			}
			slog.Error("failed to get post", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		comments, err := database.GetComments(db, postID)
		if err != nil {
			slog.Error("failed to get comments", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, comments)
	}
}

func DeleteComment(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := mux.Vars(r)["commentId"]
		userID := r.Context().Value(auth.UserIDKey).(string)

		comment, err := database.GetCommentByID(db, commentID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "comment not found")
				return
			}
			slog.Error("failed to get comment", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if comment.UserID != userID {
			writeError(w, http.StatusForbidden, "not authorized")
			return
		}

		if err := database.DeleteComment(db, commentID); err != nil && !errors.Is(err, database.ErrNotFound) {
			slog.Error("failed to delete comment", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
	}
}

func ToggleCommentLike(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentID := mux.Vars(r)["commentId"]
		userID := r.Context().Value(auth.UserIDKey).(string)

		if _, err := database.GetCommentByID(db, commentID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "comment not found")
				return
			}
			slog.Error("failed to get comment", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		liked, likes, err := database.ToggleCommentLike(db, commentID, userID)
		if err != nil {
			slog.Error("failed to toggle comment like", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		msg := "comment unliked"
		if liked {
			msg = "comment liked"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"message": msg,
			"likes":   likes,
		})
	}
}
