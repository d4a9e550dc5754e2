package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapi/internal/models"
)

const testCost = 4

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "email", "profile_picture", "created_at", "updated_at"})
}

func TestRegisterSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@x.com", sqlmock.AnyArg(), models.DefaultProfilePicture).
		WillReturnRows(userRows().AddRow("id-1", "alice", "alice@x.com", models.DefaultProfilePicture, now, now))

	tokens := NewTokens("test-secret", time.Hour)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","email":"alice@x.com","password":"pw123456"}`))
	rec := httptest.NewRecorder()
	RegisterHandler(db, tokens, testCost)(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)

	// The token's verified subject matches the new user.
	userID, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", userID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterValidation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tokens := NewTokens("test-secret", time.Hour)
	cases := []struct {
		name string
		body string
	}{
		{"short username", `{"username":"ab","email":"a@x.com","password":"pw123456"}`},
		{"email-shaped username", `{"username":"bob@y.com","email":"a@x.com","password":"pw123456"}`},
		{"bad email", `{"username":"alice","email":"not-an-email","password":"pw123456"}`},
		{"short password", `{"username":"alice","email":"a@x.com","password":"pw"}`},
		{"not json", `{"username":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			RegisterHandler(db, tokens, testCost)(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestValidateUsernameExcludesEmailShapes(t *testing.T) {
	// Login looks users up by username or email with a single identifier,
	// so a username holding another account's email address would make
	// that lookup ambiguous.
	assert.NotEmpty(t, ValidateUsername("bob@y.com"))
	assert.NotEmpty(t, ValidateUsername("ab"))
	assert.NotEmpty(t, ValidateUsername("has space"))
	assert.Empty(t, ValidateUsername("bob.smith_99"))
}

func TestRegisterConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_lower_key"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","email":"ALICE@X.COM","password":"pw123456"}`))
	rec := httptest.NewRecorder()
	RegisterHandler(db, NewTokens("test-secret", time.Hour), testCost)(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already in use")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func loginRows(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := HashPassword(password, testCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "username", "email", "password", "profile_picture", "created_at", "updated_at"}).
		AddRow("id-1", "alice", "alice@x.com", hash, models.DefaultProfilePicture, now, now)
}

func TestLoginSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE").
		WithArgs("alice@x.com").
		WillReturnRows(loginRows(t, "pw123456"))

	tokens := NewTokens("test-secret", time.Hour)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"identifier":"alice@x.com","password":"pw123456"}`))
	rec := httptest.NewRecorder()
	LoginHandler(db, tokens)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	userID, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "id-1", userID)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLoginFailureIsUniform(t *testing.T) {
	// Unknown identifier and wrong password must return the same status
	// and the same body.
	tokens := NewTokens("test-secret", time.Hour)

	db1, mock1, err := sqlmock.New()
	require.NoError(t, err)
	defer db1.Close()
	mock1.ExpectQuery("SELECT (.+) FROM users WHERE").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"identifier":"nobody","password":"pw123456"}`))
	rec1 := httptest.NewRecorder()
	LoginHandler(db1, tokens)(rec1, req)

	db2, mock2, err := sqlmock.New()
	require.NoError(t, err)
	defer db2.Close()
	mock2.ExpectQuery("SELECT (.+) FROM users WHERE").
		WillReturnRows(loginRows(t, "pw123456"))

	req = httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"identifier":"alice","password":"wrong-password"}`))
	rec2 := httptest.NewRecorder()
	LoginHandler(db2, tokens)(rec2, req)

	assert.Equal(t, http.StatusUnauthorized, rec1.Code)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.Equal(t, rec1.Body.String(), rec2.Body.String())
}
