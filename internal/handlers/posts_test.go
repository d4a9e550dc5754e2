package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapi/internal/auth"
)

func postRows(ownerID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "text", "images", "count", "created_at", "updated_at", "username", "profile_picture",
	}).AddRow("post-1", ownerID, "hello", "{/assets/a.jpg}", 0, now, now, "owner", "/assets/p.jpg")
}

func authedRequest(method, target, body, userID string, vars map[string]string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
	return mux.SetURLVars(r, vars)
}

func TestUpdatePostForbiddenForNonOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT(.+)FROM posts p JOIN users u").
		WithArgs("post-1").
		WillReturnRows(postRows("owner-id"))

	req := authedRequest(http.MethodPut, "/api/posts/post-1", `{"text":"edited"}`,
		"intruder-id", map[string]string{"id": "post-1"})
	rec := httptest.NewRecorder()
	UpdatePost(db)(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT(.+)FROM posts p JOIN users u").
		WithArgs("post-1").
		WillReturnRows(postRows("owner-id"))
	mock.ExpectQuery("UPDATE posts SET text").
		WithArgs("edited", "post-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "text", "images", "created_at", "updated_at"}).
			AddRow("post-1", "owner-id", "edited", "{/assets/a.jpg}", now, now))

	req := authedRequest(http.MethodPut, "/api/posts/post-1", `{"text":"edited"}`,
		"owner-id", map[string]string{"id": "post-1"})
	rec := httptest.NewRecorder()
	UpdatePost(db)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "edited")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostMissingIs404BeforeOwnership(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// An empty result set: the 404 wins before any ownership comparison.
	mock.ExpectQuery("SELECT(.+)FROM posts p JOIN users u").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "text", "images", "count", "created_at", "updated_at", "username", "profile_picture",
		}))

	req := authedRequest(http.MethodPut, "/api/posts/missing", `{"text":"edited"}`,
		"anyone", map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	UpdatePost(db)(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTogglePostLikeMissingPost(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT(.+)FROM posts p JOIN users u").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "text", "images", "count", "created_at", "updated_at", "username", "profile_picture",
		}))

	req := authedRequest(http.MethodPost, "/api/posts/missing/like", "",
		"user-1", map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	TogglePostLike(db)(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTogglePostLikeHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT(.+)FROM posts p JOIN users u").
		WithArgs("post-1").
		WillReturnRows(postRows("owner-id"))
	mock.ExpectExec("INSERT INTO post_likes").
		WithArgs("post-1", "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	req := authedRequest(http.MethodPost, "/api/posts/post-1/like", "",
		"user-1", map[string]string{"id": "post-1"})
	rec := httptest.NewRecorder()
	TogglePostLike(db)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "post liked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePostRejectsBadBody(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for _, body := range []string{`{}`, `{"text":""}`, `{"text":"` + strings.Repeat("a", 1001) + `"}`, `not json`} {
		req := authedRequest(http.MethodPut, "/api/posts/post-1", body,
			"owner-id", map[string]string{"id": "post-1"})
		rec := httptest.NewRecorder()
		UpdatePost(db)(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}
