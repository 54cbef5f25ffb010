/*
Package client provides easy and fast in-process access to a REST api

Instead of marshalling HTTP, the client talks directly to the mux router. It
is perfectly suited for unit tests.
*/
package client

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"
)

// Client provides easy access to the REST API.
type Client struct {
	router *mux.Router
	token  string
}

// NewWithRouter creates a client to make pseudo-REST requests to the backend,
// through the mux router.
//
// WithToken() adds a bearer token to all requests.
func NewWithRouter(router *mux.Router) Client {
	return Client{router: router}
}

// WithToken returns a new client with a bearer token
func (c Client) WithToken(token string) Client {
	c.token = token
	return c
}

// RawGet gets the resource from path. Expects http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
func (c Client) RawGet(path string, result interface{}) (int, error) {
	return c.do(http.MethodGet, path, nil, result, http.StatusOK)
}

// RawPost posts a resource to path. Expects http.StatusCreated or
// http.StatusOK as response, otherwise it will flag an error. Returns the
// actual http status code.
func (c Client) RawPost(path string, body, result interface{}) (int, error) {
	return c.do(http.MethodPost, path, body, result, http.StatusCreated, http.StatusOK)
}

// RawPatch patches a resource at path. Expects http.StatusOK as response,
// otherwise it will flag an error. Returns the actual http status code.
func (c Client) RawPatch(path string, body, result interface{}) (int, error) {
	return c.do(http.MethodPatch, path, body, result, http.StatusOK)
}

// RawDelete deletes the resource at path. Expects http.StatusOK or
// http.StatusNoContent as response, otherwise it will flag an error. Returns
// the actual http status code.
func (c Client) RawDelete(path string, result interface{}) (int, error) {
	return c.do(http.MethodDelete, path, nil, result, http.StatusOK, http.StatusNoContent)
}

func (c Client) do(method, path string, body, result interface{}, expected ...int) (int, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if len(c.token) > 0 {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}

	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, r)

	status := rec.Code
	ok := false
	for _, e := range expected {
		ok = ok || status == e
	}
	if !ok {
		return status, fmt.Errorf("%s %s: got status %d: %s", method, path, status, rec.Body.String())
	}

	if result != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), result); err != nil {
			return status, err
		}
	}
	return status, nil
}
