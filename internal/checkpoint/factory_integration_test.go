//go:build integration

package checkpoint

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container for testing.
func setupRedis(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisURL := fmt.Sprintf("redis://%s:%s", host, port.Port())

	cleanup := func() {
		if err := redisC.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate Redis container: %v", err)
		}
	}

	return redisURL, cleanup
}

// TestFactory_DurableSurvivesRestart writes through one factory and resumes through another.
func TestFactory_DurableSurvivesRestart(t *testing.T) {
	redisURL, cleanup := setupRedis(t)
	defer cleanup()

	env := envMap(map[string]string{
		EnvExecutionMode:    "production",
		EnvConnectionString: redisURL,
	})
	ctx := context.Background()

	first := NewFactory(env)
	cp, err := first.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, KindDurable, cp.Kind())

	written := &Checkpoint{ThreadID: "thread-1", Stage: "classification", State: []byte(`{"n":3}`)}
	require.NoError(t, cp.Put(ctx, written))
	require.NoError(t, first.Shutdown())

	second := NewFactory(env)
	defer second.Shutdown()

	report := second.Health(ctx)
	assert.True(t, report.Healthy, report.Error)

	cp, err = second.Get(ctx)
	require.NoError(t, err)

	latest, err := cp.Latest(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, written.ID, latest.ID)
	assert.Equal(t, written.State, latest.State)
}
