package backend

import (
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/travelwhiz/backend/core"
	"github.com/travelwhiz/backend/core/pins"
)

func (b *Backend) handlePinRoutes(router *mux.Router) {
	router.HandleFunc("/pins", b.pinCreate).Methods(http.MethodPost)
	router.Handle("/pins", handlers.CompressHandler(http.HandlerFunc(b.pinList))).Methods(http.MethodGet)
	router.HandleFunc("/pins/{id}", b.pinUpdate).Methods(http.MethodPatch)
	router.HandleFunc("/pins/{id}", b.pinDelete).Methods(http.MethodDelete)
}

// pinCreate creates a pin for the authenticated user. Admins can create
// pins for any user.
func (b *Backend) pinCreate(w http.ResponseWriter, r *http.Request) {
	auth := ensureLoggedIn(w, r)
	if auth == nil {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, core.BadRequestf("cannot read body"))
		return
	}
	if err := b.validator.ValidateString(string(body), schemaPinNew); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	var newPin pins.NewPin
	if err := json.Unmarshal(body, &newPin); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}
	if !auth.CanActFor(newPin.Username) {
		writeError(w, r, core.Unauthorizedf("cannot create pins for %s", newPin.Username))
		return
	}

	pin, err := b.pins.Create(r.Context(), newPin)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Pin pins.Pin `json:"pin"`
	}{pin})
}

// pinList returns all pins. No auth required, pins are public.
func (b *Backend) pinList(w http.ResponseWriter, r *http.Request) {
	list, err := b.pins.FindAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Pins []pins.Pin `json:"pins"`
	}{list})
}

func (b *Backend) pinUpdate(w http.ResponseWriter, r *http.Request) {
	if auth := ensureLoggedIn(w, r); auth == nil {
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, core.BadRequestf("invalid pin id"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, r, core.BadRequestf("cannot read body"))
		return
	}
	if err := b.validator.ValidateString(string(body), schemaPinUpdate); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	fields := map[string]interface{}{}
	if err := json.Unmarshal(body, &fields); err != nil {
		writeError(w, r, core.BadRequestf("%s", err))
		return
	}

	pin, err := b.pins.Update(r.Context(), id, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Pin pins.Pin `json:"pin"`
	}{pin})
}

func (b *Backend) pinDelete(w http.ResponseWriter, r *http.Request) {
	if auth := ensureLoggedIn(w, r); auth == nil {
		return
	}
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, core.BadRequestf("invalid pin id"))
		return
	}
	if err := b.pins.Remove(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Deleted int `json:"deleted"`
	}{id})
}
