/*Package backend provides the travelwhiz REST backend.

The backend mounts the /auth, /users and /pins routes on a mux router and
creates the sql relations if they do not exist yet. Request bodies are
validated against embedded JSON schemas before any repository call.
*/
package backend

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"

	"github.com/travelwhiz/backend/core"
	"github.com/travelwhiz/backend/core/access"
	"github.com/travelwhiz/backend/core/csql"
	"github.com/travelwhiz/backend/core/logger"
	"github.com/travelwhiz/backend/core/pins"
	"github.com/travelwhiz/backend/core/schema"
	"github.com/travelwhiz/backend/core/users"
)

//go:embed schemas
var schemasFS embed.FS

// ids of the embedded request schemas
const (
	schemaUserAuth     = "https://travelwhiz.app/schemas/user_auth.json"
	schemaUserRegister = "https://travelwhiz.app/schemas/user_register.json"
	schemaUserNew      = "https://travelwhiz.app/schemas/user_new.json"
	schemaUserUpdate   = "https://travelwhiz.app/schemas/user_update.json"
	schemaPinNew       = "https://travelwhiz.app/schemas/pin_new.json"
	schemaPinUpdate    = "https://travelwhiz.app/schemas/pin_update.json"
)

// Backend is the travelwhiz REST backend
type Backend struct {
	db        *csql.DB
	router    *mux.Router
	validator *schema.Validator
	secret    []byte
	users     users.Store
	pins      pins.Store
}

// Builder is a builder helper for the Backend
type Builder struct {
	// DB is a postgres database. This is mandatory.
	DB *csql.DB
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Secret signs session tokens. This is mandatory.
	Secret string
	// BcryptCost is the work factor for password hashes. Optional; zero
	// means bcrypt's default. Lowered in test environments to keep tests
	// fast.
	BcryptCost int
}

// New realizes the actual backend. It creates the sql relations (if they
// do not exist) and adds the actual routes to the router.
func New(bb *Builder) (*Backend, error) {
	if bb.DB == nil {
		return nil, errors.New("DB is missing")
	}
	if bb.Router == nil {
		return nil, errors.New("Router is missing")
	}
	if len(bb.Secret) == 0 {
		return nil, errors.New("Secret is missing")
	}

	b := &Backend{
		db:     bb.DB,
		router: bb.Router,
		secret: []byte(bb.Secret),
		users:  users.Store{DB: bb.DB, BcryptCost: bb.BcryptCost},
		pins:   pins.Store{DB: bb.DB},
	}

	// pins carry a foreign key on users, favorites on both
	if err := b.users.CreateTable(); err != nil {
		return nil, err
	}
	if err := b.pins.CreateTable(); err != nil {
		return nil, err
	}
	if err := b.users.CreateFavoritesTable(); err != nil {
		return nil, err
	}

	schemas, err := fs.Sub(schemasFS, "schemas")
	if err != nil {
		return nil, err
	}
	b.validator, err = schema.NewValidatorFromFS(schemas)
	if err != nil {
		return nil, err
	}

	b.handleCORS()
	logger.AddRequestID(b.router)
	b.router.Use(access.NewJwtMiddleware(b.secret))
	access.HandleAuthorizationRoute(b.router)

	b.handleAuthRoutes(b.router)
	b.handleUserRoutes(b.router)
	b.handlePinRoutes(b.router)
	return b, nil
}

// MustNew is like New but panics on error
func MustNew(bb *Builder) *Backend {
	b, err := New(bb)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Backend) handleCORS() {
	corsMiddleware := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Set CORS headers for all requests
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, If-None-Match, Access-Control-Allow-Origin")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			// Handle preflight OPTIONS request
			if r.Method == http.MethodOptions {
				logger.FromContext(r.Context()).Debugln("called route for", r.URL, r.Method, " (handled by CORS middleware)")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			h.ServeHTTP(w, r)
		})
	}
	b.router.Use(corsMiddleware)
}

type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeError translates a repository failure to its status code with a JSON
// error body. Everything outside the taxonomy is an internal error; the
// details go to the log, not to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).WithError(err).Errorf("Error 4711: %s %s failed", r.Method, r.URL.Path)
		http.Error(w, "Error 4711", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), Status: status})
}

func writeJSON(w http.ResponseWriter, status int, object interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(object)
}

// ensureLoggedIn returns the caller's authorization, or nil after writing
// http.StatusUnauthorized.
func ensureLoggedIn(w http.ResponseWriter, r *http.Request) *access.Authorization {
	auth := access.AuthorizationFromContext(r.Context())
	if auth == nil {
		writeError(w, r, core.Unauthorizedf("login required"))
		return nil
	}
	return auth
}

// ensureAdmin returns the caller's authorization if it carries the admin
// role, or nil after writing http.StatusUnauthorized.
func ensureAdmin(w http.ResponseWriter, r *http.Request) *access.Authorization {
	auth := access.AuthorizationFromContext(r.Context())
	if !auth.IsAdmin() {
		writeError(w, r, core.Unauthorizedf("admin required"))
		return nil
	}
	return auth
}

// ensureCorrectUserOrAdmin returns the caller's authorization if it belongs
// to the given user or carries the admin role, or nil after writing
// http.StatusUnauthorized.
func ensureCorrectUserOrAdmin(w http.ResponseWriter, r *http.Request, username string) *access.Authorization {
	auth := access.AuthorizationFromContext(r.Context())
	if !auth.CanActFor(username) {
		writeError(w, r, core.Unauthorizedf("not allowed for this user"))
		return nil
	}
	return auth
}
