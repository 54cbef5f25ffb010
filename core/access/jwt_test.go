package access_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/travelwhiz/backend/core/access"
)

var secret = []byte("test-secret")

func newTestRouter(captured **access.Authorization) *mux.Router {
	router := mux.NewRouter()
	router.Use(access.NewJwtMiddleware(secret))
	router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		*captured = access.AuthorizationFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return router
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := access.CreateToken(secret, "ana", false)
	if err != nil {
		t.Fatal(err)
	}

	var auth *access.Authorization
	router := newTestRouter(&auth)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, auth) {
		assert.Equal(t, "ana", auth.Username)
		assert.False(t, auth.IsAdmin())
		assert.True(t, auth.CanActFor("ana"))
		assert.False(t, auth.CanActFor("bob"))
	}
}

func TestTokenAdmin(t *testing.T) {
	token, err := access.CreateToken(secret, "root", true)
	if err != nil {
		t.Fatal(err)
	}

	var auth *access.Authorization
	router := newTestRouter(&auth)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.AddCookie(&http.Cookie{Name: "TravelWhiz-JWT", Value: token})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, auth) {
		assert.True(t, auth.IsAdmin())
		assert.True(t, auth.CanActFor("anybody"))
	}
}

func TestInvalidToken(t *testing.T) {
	var auth *access.Authorization
	router := newTestRouter(&auth)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, auth)
}

func TestWrongSecret(t *testing.T) {
	token, err := access.CreateToken([]byte("other-secret"), "ana", false)
	if err != nil {
		t.Fatal(err)
	}

	var auth *access.Authorization
	router := newTestRouter(&auth)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNoToken(t *testing.T) {
	var auth *access.Authorization
	router := newTestRouter(&auth)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// no token passes through unauthenticated
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, auth)
	assert.False(t, auth.CanActFor("ana"))
}
