package backend

import (
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/travelwhiz/backend/core"
	"github.com/travelwhiz/backend/core/access"
	"github.com/travelwhiz/backend/core/pins"
	"github.com/travelwhiz/backend/core/users"
)

func (b *Backend) handleUserRoutes(router *mux.Router) {
	router.HandleFunc("/users", b.userCreate).Methods(http.MethodPost)
	router.Handle("/users", handlers.CompressHandler(http.HandlerFunc(b.userList))).Methods(http.MethodGet)
	router.HandleFunc("/users/{username}", b.userGet).Methods(http.MethodGet)
	router.HandleFunc("/users/{username}", b.userUpdate).Methods(http.MethodPatch)
	router.HandleFunc("/users/{username}", b.userDelete).Methods(http.MethodDelete)
	router.HandleFunc("/users/{username}/favorite/{id}", b.userFavorite).Methods(http.MethodPost)
	router.HandleFunc("/users/{username}/favorite/{id}", b.userUnfavorite).Methods(http.MethodDelete)
	router.Handle("/users/{username}/favorite", handlers.CompressHandler(http.HandlerFunc(b.userFavoriteList))).Methods(http.MethodGet)
}

// userCreate lets an admin add a user; unlike self-registration the new user
// can be an admin. Returns the user and a token for it.
func (b *Backend) userCreate(w http.ResponseWriter, r *http.Request) {
	if auth := ensureAdmin(w, r); auth == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, core.BadRequestf("cannot read body"))
		return
	}
	if err := b.validator.ValidateString(string(body), schemaUserNew); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	var newUser users.NewUser
	if err := json.Unmarshal(body, &newUser); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	user, err := b.users.Register(r.Context(), newUser)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := access.CreateToken(b.secret, user.Username, user.IsAdmin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		User  users.User `json:"user"`
		Token string     `json:"token"`
	}{user, token})
}

func (b *Backend) userList(w http.ResponseWriter, r *http.Request) {
	if auth := ensureAdmin(w, r); auth == nil {
		return
	}
	list, err := b.users.FindAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Users []users.User `json:"users"`
	}{list})
}

func (b *Backend) userGet(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if auth := ensureCorrectUserOrAdmin(w, r, username); auth == nil {
		return
	}
	user, err := b.users.Get(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User users.User `json:"user"`
	}{user})
}

func (b *Backend) userUpdate(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if auth := ensureCorrectUserOrAdmin(w, r, username); auth == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, core.BadRequestf("cannot read body"))
		return
	}
	if err := b.validator.ValidateString(string(body), schemaUserUpdate); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	user, err := b.users.Update(r.Context(), username, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		User users.User `json:"user"`
	}{user})
}

func (b *Backend) userDelete(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if auth := ensureCorrectUserOrAdmin(w, r, username); auth == nil {
		return
	}
	if err := b.users.Remove(r.Context(), username); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Deleted string `json:"deleted"`
	}{username})
}

func (b *Backend) userFavorite(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if auth := ensureCorrectUserOrAdmin(w, r, username); auth == nil {
		return
	}
	pinID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, core.BadRequestf("invalid pin id"))
		return
	}
	if err := b.users.FavoritePin(r.Context(), username, pinID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Favorited int `json:"favorited"`
	}{pinID})
}

func (b *Backend) userUnfavorite(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if auth := ensureCorrectUserOrAdmin(w, r, username); auth == nil {
		return
	}
	pinID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, core.BadRequestf("invalid pin id"))
		return
	}
	if err := b.users.UnfavoritePin(r.Context(), username, pinID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Removed int `json:"removed"`
	}{pinID})
}

func (b *Backend) userFavoriteList(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	if auth := ensureCorrectUserOrAdmin(w, r, username); auth == nil {
		return
	}
	favorites, err := b.users.ListFavoritePins(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Favorites []pins.Pin `json:"favorites"`
	}{favorites})
}
