package pins_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/joeshaw/envdecode"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/travelwhiz/backend/core"
	"github.com/travelwhiz/backend/core/csql"
	"github.com/travelwhiz/backend/core/pins"
	"github.com/travelwhiz/backend/core/users"
)

// TestService holds the configuration for this test
//
// use POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=postgres sslmode=disable"
type TestService struct {
	Postgres string `env:"POSTGRES,required" description:"the connection string for the Postgres DB"`
}

var (
	db       *csql.DB
	pinStore pins.Store
)

func TestMain(m *testing.M) {
	var testService TestService
	if err := envdecode.Decode(&testService); err != nil {
		panic(err)
	}

	db = csql.OpenWithSchema(testService.Postgres, "_pins_unit_test_")
	defer db.Close()
	db.ClearSchema()

	userStore := users.Store{DB: db, BcryptCost: bcrypt.MinCost}
	pinStore = pins.Store{DB: db}
	if err := userStore.CreateTable(); err != nil {
		panic(err)
	}
	if err := pinStore.CreateTable(); err != nil {
		panic(err)
	}

	// all pins of this test belong to ana
	if _, err := userStore.Register(context.Background(), users.NewUser{
		Username: "ana", Password: "pw1", FirstName: "Ana", LastName: "T", Email: "a@x.com",
	}); err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

func TestCreateAndUpdate(t *testing.T) {
	ctx := context.Background()

	pin, err := pinStore.Create(ctx, pins.NewPin{
		Title: "Beach", Review: "nice", Rating: 5, Long: 1.0, Lat: 2.0,
		Date: "2024-01-01", Username: "ana",
	})
	if err != nil {
		t.Fatal(err)
	}
	if pin.ID == 0 {
		t.Fatal("no id")
	}
	assert.Equal(t, "Beach", pin.Title)
	assert.Equal(t, "2024-01-01", pin.Date)
	assert.Equal(t, "ana", pin.Username)

	// partial update changes only the provided fields
	updated, err := pinStore.Update(ctx, pin.ID, map[string]interface{}{"rating": 4})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, pin.ID, updated.ID)
	assert.Equal(t, 4.0, updated.Rating)
	assert.Equal(t, "Beach", updated.Title)
	assert.Equal(t, "nice", updated.Review)
}

func TestCreateForUnknownUser(t *testing.T) {
	_, err := pinStore.Create(context.Background(), pins.NewPin{
		Title: "Nowhere", Rating: 1, Date: "2024-01-01", Username: "nobody",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatal("pin for unknown user accepted:", err)
	}
}

func TestUpdateRestrictions(t *testing.T) {
	ctx := context.Background()
	pin, err := pinStore.Create(ctx, pins.NewPin{
		Title: "Cliff", Rating: 3, Date: "2024-02-02", Username: "ana",
	})
	if err != nil {
		t.Fatal(err)
	}

	// only title, review and rating can change
	_, err = pinStore.Update(ctx, pin.ID, map[string]interface{}{"username": "bob"})
	if !errors.Is(err, core.ErrBadRequest) {
		t.Fatal("update of username accepted:", err)
	}
	_, err = pinStore.Update(ctx, pin.ID, map[string]interface{}{})
	if !errors.Is(err, core.ErrBadRequest) {
		t.Fatal("empty update accepted:", err)
	}
	_, err = pinStore.Update(ctx, 999999, map[string]interface{}{"rating": 1})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatal("update of unknown pin accepted:", err)
	}
}

func TestFindAllAndRemove(t *testing.T) {
	ctx := context.Background()
	pin, err := pinStore.Create(ctx, pins.NewPin{
		Title: "Dune", Rating: 2, Date: "2024-04-04", Username: "ana",
	})
	if err != nil {
		t.Fatal(err)
	}

	all, err := pinStore.FindAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, p := range all {
		found = found || p.ID == pin.ID
	}
	assert.True(t, found)

	if err := pinStore.Remove(ctx, pin.ID); err != nil {
		t.Fatal(err)
	}
	err = pinStore.Remove(ctx, pin.ID)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatal("removing a removed pin accepted:", err)
	}
}
