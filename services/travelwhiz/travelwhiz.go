package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joeshaw/envdecode"
	"github.com/sirupsen/logrus"

	"github.com/travelwhiz/backend/core/backend"
	"github.com/travelwhiz/backend/core/csql"
	"github.com/travelwhiz/backend/core/logger"
)

// Service holds the configuration for this service
//
// use POSTGRES="host=localhost port=5432 user=postgres password=docker dbname=travelwhiz sslmode=disable"
type Service struct {
	Postgres   string `env:"POSTGRES,required" description:"the connection string for the Postgres DB"`
	SecretKey  string `env:"SECRET_KEY,default=secret-dev" description:"the signing key for session tokens"`
	Port       string `env:"PORT,default=3001" description:"the port the service listens on"`
	BcryptCost int    `env:"BCRYPT_COST,default=12" description:"the bcrypt work factor for password hashes"`
}

func main() {
	service := &Service{}
	if err := envdecode.Decode(service); err != nil {
		panic(err)
	}
	logger.InitLogger(logrus.InfoLevel)

	db := csql.OpenWithSchema(service.Postgres, "travelwhiz")
	defer db.Close()

	router := mux.NewRouter()
	backend.MustNew(&backend.Builder{
		DB:         db,
		Router:     router,
		Secret:     service.SecretKey,
		BcryptCost: service.BcryptCost,
	})

	rlog := logger.Default()
	rlog.Infoln("listen on port :" + service.Port)
	rlog.Fatal(http.ListenAndServe(":"+service.Port, router))
}
