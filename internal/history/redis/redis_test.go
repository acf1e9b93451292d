package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/myoutfood/internal/history"
	"github.com/pribylovaa/myoutfood/internal/models"
)

// Интеграционные тесты Redis-слота:
// — поднимают Redis через testcontainers-go (redis:7-alpine);
// — проверяют Load/Save/Delete и работу history.Store поверх слота.

// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/history/redis -v -race -count=1

func startRedis(t *testing.T) (*Slot, func()) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "6379/tcp")

	slot, err := New(ctx, fmt.Sprintf("redis://%s:%s/0", host, port.Port()))
	require.NoError(t, err)

	cleanup := func() {
		_ = slot.Close()
		_ = c.Terminate(context.Background())
	}
	return slot, cleanup
}

func TestIntegration_Slot_LoadSaveDelete(t *testing.T) {
	slot, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()

	_, err := slot.Load(ctx, "k")
	require.ErrorIs(t, err, history.ErrSlotEmpty)

	require.NoError(t, slot.Save(ctx, "k", []byte("blob")))
	b, err := slot.Load(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("blob"), b)

	require.NoError(t, slot.Delete(ctx, "k"))
	require.NoError(t, slot.Delete(ctx, "k"))
	require.NoError(t, slot.Ping(ctx))
}

func TestIntegration_StoreOverRedis(t *testing.T) {
	slot, cleanup := startRedis(t)
	defer cleanup()

	ctx := context.Background()
	st := history.New(slot, "it", 3)

	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		res := models.PipelineResult{Caption: fmt.Sprintf("c%d", i), Image: models.URLImage("https://cdn/x.png")}
		_, err := st.Append(ctx, "client", models.NewHistoryEntry(res, base.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
	}

	got := st.List(ctx, "client")
	require.Len(t, got, 3)
	require.Equal(t, "c3", got[0].Caption)
	require.Equal(t, "c1", got[2].Caption)
}

func TestNew_BadURL(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "://bad")
	require.Error(t, err)
}
