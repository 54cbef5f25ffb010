/*Package access provides utilities for access control
 */
package access

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// contextKey is the type for context keys. Go linter does not like plain strings
type contextKey string

// the predefined context key
const (
	contextKeyAuthorization contextKey = "_authorization_"
)

/*Authorization is a context object which describes the authenticated caller
of a request.

Authorizations are added to a request context with

  ctx = auth.ContextWithAuthorization(ctx)

and retrieved with

  auth := AuthorizationFromContext(ctx)

Authorization objects are added to the context by the JWT middleware,
from the claims of a validated session token.
*/
type Authorization struct {
	Username string `json:"username"`
	Admin    bool   `json:"isAdmin"`
}

// IsAdmin returns true if the authorization carries the admin flag.
func (a *Authorization) IsAdmin() bool {
	return a != nil && a.Admin
}

// CanActFor returns true if the authorization belongs to the given user,
// or if it carries the admin flag.
func (a *Authorization) CanActFor(username string) bool {
	if a == nil {
		return false
	}
	return a.Admin || a.Username == username
}

// ContextWithAuthorization returns a new context with this authorization added to it
func (a *Authorization) ContextWithAuthorization(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKeyAuthorization, a)
}

// AuthorizationFromContext retrieves an authorization from the context
func AuthorizationFromContext(ctx context.Context) *Authorization {
	a, ok := ctx.Value(contextKeyAuthorization).(*Authorization)
	if ok {
		return a
	}
	return nil
}

// HandleAuthorizationRoute adds a route /authorization GET to the router
//
// The route returns the current authorization for the provided bearer token.
func HandleAuthorizationRoute(router *mux.Router) {
	router.HandleFunc("/authorization", func(w http.ResponseWriter, r *http.Request) {
		auth := AuthorizationFromContext(r.Context())
		if auth == nil {
			w.WriteHeader(http.StatusNoContent)
		} else {
			jsonData, _ := json.MarshalIndent(auth, "", " ")
			w.Header().Set("Content-Type", "application/json")
			w.Write(jsonData)
		}
	}).Methods(http.MethodGet)
}
