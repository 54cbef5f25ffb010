package backend

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/gorilla/mux"

	"github.com/travelwhiz/backend/core"
	"github.com/travelwhiz/backend/core/access"
	"github.com/travelwhiz/backend/core/logger"
	"github.com/travelwhiz/backend/core/users"
)

type tokenResponse struct {
	Token string `json:"token"`
}

func (b *Backend) handleAuthRoutes(router *mux.Router) {
	nillog := logger.Default()
	nillog.Debugln("  handle route: /auth/token POST")
	nillog.Debugln("  handle route: /auth/register POST")

	router.HandleFunc("/auth/token", b.authToken).Methods(http.MethodPost)
	router.HandleFunc("/auth/register", b.authRegister).Methods(http.MethodPost)
}

// authToken exchanges credentials for a session token. No auth required.
func (b *Backend) authToken(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, core.BadRequestf("cannot read body"))
		return
	}
	if err := b.validator.ValidateString(string(body), schemaUserAuth); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(body, &credentials); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	user, err := b.users.Authenticate(r.Context(), credentials.Username, credentials.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := access.CreateToken(b.secret, user.Username, user.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// authRegister registers a new user and returns a session token. No auth
// required; a self-registered user is never an admin.
func (b *Backend) authRegister(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, core.BadRequestf("cannot read body"))
		return
	}
	if err := b.validator.ValidateString(string(body), schemaUserRegister); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	var newUser users.NewUser
	if err := json.Unmarshal(body, &newUser); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}
	newUser.IsAdmin = false

	user, err := b.users.Register(r.Context(), newUser)
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Infoln("registered user", user.Username)

	token, err := access.CreateToken(b.secret, user.Username, user.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}
