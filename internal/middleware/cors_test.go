package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestCORSStampsHeaders(t *testing.T) {
	handler := CORS("http://app.example")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestCORSPreflightOnProtectedRoute(t *testing.T) {
	// Mirrors the server wiring: a router-level OPTIONS route answers
	// preflights before the protected subrouter's auth middleware, which
	// would otherwise reject them for the missing Authorization header.
	router := mux.NewRouter()
	router.Use(CORS("http://app.example"))
	router.PathPrefix("/api").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	})
	protected.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {}).Methods("PUT")

	req := httptest.NewRequest(http.MethodOptions, "/api/users/me", nil)
	req.Header.Set("Origin", "http://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}
