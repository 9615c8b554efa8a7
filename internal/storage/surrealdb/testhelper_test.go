package surrealdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cryptofolio/internal/common"
)

const (
	defaultSurrealImage = "surrealdb/surrealdb:v3.0.0"
	surrealTestUser     = "root"
	surrealTestPass     = "root"
	testNamespace       = "cryptofolio_test"
)

var (
	surrealBootOnce sync.Once
	surrealURL      string
	surrealBootErr  error
)

// bootSurrealDB launches one SurrealDB container for the whole test binary
// and returns its WebSocket RPC URL. Override the image with
// CRYPTOFOLIO_TEST_SURREALDB_IMAGE to test against other versions.
func bootSurrealDB() (string, error) {
	surrealBootOnce.Do(func() {
		image := defaultSurrealImage
		if v := os.Getenv("CRYPTOFOLIO_TEST_SURREALDB_IMAGE"); v != "" {
			image = v
		}

		ctx := context.Background()
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        image,
				ExposedPorts: []string{"8000/tcp"},
				Cmd:          []string{"start", "--user", surrealTestUser, "--pass", surrealTestPass},
				WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(time.Minute),
			},
			Started: true,
		})
		if err != nil {
			surrealBootErr = fmt.Errorf("start surrealdb container: %w", err)
			return
		}

		endpoint, err := c.PortEndpoint(ctx, "8000/tcp", "")
		if err != nil {
			_ = c.Terminate(ctx)
			surrealBootErr = fmt.Errorf("resolve surrealdb endpoint: %w", err)
			return
		}
		surrealURL = "ws://" + endpoint + "/rpc"
	})
	return surrealURL, surrealBootErr
}

// testDB returns a manager bound to a fresh database in the shared test
// container, so tests don't see each other's data.
func testDB(t *testing.T) *Manager {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping SurrealDB integration test in -short mode")
	}

	url, err := bootSurrealDB()
	if err != nil {
		t.Fatalf("surrealdb container: %v", err)
	}

	ctx := context.Background()
	db, err := surrealdb.New(url)
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}
	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": surrealTestUser,
		"pass": surrealTestPass,
	}); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	dbName := fmt.Sprintf("test_%d", time.Now().UnixNano())
	if err := db.Use(ctx, testNamespace, dbName); err != nil {
		t.Fatalf("use namespace: %v", err)
	}

	m, err := newManagerWithDB(ctx, db, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("init manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}
