package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chargelens/backend/services/telemetry-service/internal/config"
)

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return fmt.Sprint(l.Addr().(*net.TCPAddr).Port)
}

func TestMemoryBackendServesUntilCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	cfg.HTTP.Port = freePort(t)
	require.NoError(t, cfg.Validate())

	application, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	base := "http://127.0.0.1:" + cfg.HTTP.Port
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	resp, err := http.Post(base+"/v1/ingestion/mapping", "application/json",
		strings.NewReader(`{"vehicleId":"v-1","meterId":"m-1"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
