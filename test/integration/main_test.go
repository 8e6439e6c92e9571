//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/Ramsey-B/iris/internal/app"
	"github.com/Ramsey-B/iris/pkg/database"
	"github.com/Ramsey-B/iris/pkg/redis"
)

var (
	testDB    database.DB
	testRedis *redis.Client
	logger    = ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
)

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx := context.Background()

	pg, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("iris"),
		postgres.WithUsername("iris"),
		postgres.WithPassword("iris"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = pg.Terminate(ctx) }()

	host, err := pg.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get postgres host: %v\n", err)
		return 1
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get postgres port: %v\n", err)
		return 1
	}

	testDB, err = database.Connect(ctx, database.Config{
		Host:     host,
		Port:     port.Int(),
		User:     "iris",
		Password: "iris",
		Name:     "iris",
		SSLMode:  "disable",
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		return 1
	}
	defer testDB.Close()

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: "../../db/pg"})
	if err := migrations.MigrateDB(testDB, "iris"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate: %v\n", err)
		return 1
	}

	rc, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis: %v\n", err)
		return 1
	}
	defer func() { _ = rc.Terminate(ctx) }()

	uri, err := rc.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis address: %v\n", err)
		return 1
	}
	opts, err := goredis.ParseURL(uri)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse redis address: %v\n", err)
		return 1
	}
	testRedis = redis.NewClientFromRedis(goredis.NewClient(opts), logger)
	defer testRedis.Close()

	return m.Run()
}

// newStore empties every table and returns a store over the shared database
func newStore(t *testing.T) *app.Store {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := testDB.ExecContext(ctx, `TRUNCATE politicians, affairs, affair_sources, external_links, mandates, duplicate_reviews, job_checkpoints`)
	if err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
	return app.NewStore(testDB, logger)
}
