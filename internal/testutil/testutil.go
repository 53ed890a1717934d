package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yodateam/faceit-backend/internal/api"
	"github.com/yodateam/faceit-backend/internal/api/middleware"
	"github.com/yodateam/faceit-backend/internal/config"
	"github.com/yodateam/faceit-backend/internal/events"
	"github.com/yodateam/faceit-backend/internal/notify"
	"github.com/yodateam/faceit-backend/internal/repository"
	"github.com/yodateam/faceit-backend/internal/repository/memory"
	repoPostgres "github.com/yodateam/faceit-backend/internal/repository/postgres"
	"github.com/yodateam/faceit-backend/internal/scheduler"
	"github.com/yodateam/faceit-backend/internal/service"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_faceit"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	for _, table := range []string{"state_records", "matches", "players"} {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0", // Random port
		Environment:        "test",
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 1,
		AcceptWindow:       60 * time.Second,
		StepWindow:         30 * time.Second,
		MatchRetention:     48 * time.Hour,
		MissedLimit:        3,
		BanDuration:        30 * time.Minute,
		Adjudicators:       []int64{9001},
	}
}

// TestEnv wires services against a real database with a recording notifier
// and a manual clock, so deadline behavior is driven explicitly.
type TestEnv struct {
	DB       *TestDB
	Repos    *repository.Repositories
	Services *service.Services
	Notifier *notify.Recorder
	Clock    *scheduler.Manual
	Config   *config.Config
}

// NewTestEnv builds the full service stack for direct service-level tests.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	testDB := NewTestDB(t)
	cfg := TestConfig()

	// Durable rows go through postgres; coordination state uses the
	// in-memory store so deadline tests stay deterministic. The postgres
	// store has its own suite.
	pg := repoPostgres.NewRepositories(testDB.DB)
	repos := &repository.Repositories{
		Player: pg.Player,
		Match:  pg.Match,
		State:  memory.NewStateStore(),
	}
	recorder := notify.NewRecorder()
	clock := scheduler.NewManual()

	services := service.NewServices(repos, cfg, recorder, clock, events.NopPublisher{})

	return &TestEnv{
		DB:       testDB,
		Repos:    repos,
		Services: services,
		Notifier: recorder,
		Clock:    clock,
		Config:   cfg,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server *httptest.Server
	Env    *TestEnv
	Hub    *events.Hub
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	env := NewTestEnv(t)

	hub := events.NewHub()
	go hub.Run()

	router := api.NewRouter(env.Services, hub, env.Config)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server: server,
		Env:    env,
		Hub:    hub,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// Token mints a bearer token accepted by the test server.
func (ts *TestServer) Token(t *testing.T, playerID int64, adjudicator bool) string {
	t.Helper()
	token, err := middleware.NewToken(ts.Env.Config.JWTSecret, playerID, adjudicator, time.Hour)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	return token
}
