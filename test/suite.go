package test

import (
	"context"
	"fmt"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/travelwhiz/backend/core/backend"
	"github.com/travelwhiz/backend/core/client"
	"github.com/travelwhiz/backend/core/csql"
)

// IntegrationTestSuite starts a throwaway Postgres container and runs the
// full backend against it, talking through the in-process client.
type IntegrationTestSuite struct {
	*backend.Backend
	suite.Suite

	dbConn            *csql.DB
	router            *mux.Router
	client            client.Client
	postgresContainer testcontainers.Container
}

func (s *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresUser := "testuser"
	postgresPassword := "testpass"
	postgresDB := "testdb"

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:15",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	s.Require().NoError(err)
	s.postgresContainer = pgC

	pgHost, err := pgC.Host(ctx)
	s.Require().NoError(err)
	pgPort, err := pgC.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	s.dbConn = csql.OpenWithSchema(fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pgHost, pgPort.Port(), postgresUser, postgresPassword, postgresDB), "travelwhiz")

	s.router = mux.NewRouter()
	s.Backend = backend.MustNew(&backend.Builder{
		DB:         s.dbConn,
		Router:     s.router,
		Secret:     "integration-secret",
		BcryptCost: bcrypt.MinCost,
	})
	s.client = client.NewWithRouter(s.router)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	ctx := context.Background()
	if s.dbConn != nil {
		s.dbConn.Close()
	}
	if s.postgresContainer != nil {
		err := s.postgresContainer.Terminate(ctx)
		s.Require().NoError(err)
	}
}
