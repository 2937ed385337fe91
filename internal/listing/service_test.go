package listing

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/farm-marketplace/internal/auth"
	"github.com/tair/farm-marketplace/internal/listing/manager"
	"github.com/tair/farm-marketplace/internal/listing/store/memory"
)

func TestInitializeService(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, err := InitializeService(memory.New(), nil, auth.NewTokenValidator("secret", ""), reg, manager.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, svc.Manager)
	require.NotNil(t, svc.HTTPHandler)
	require.NotNil(t, svc.Health)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Manager.Start(ctx))
	defer svc.Manager.Close()
	assert.Eventually(t, svc.Manager.Ready, 2*time.Second, 10*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["marketplace_listings_cached"])
}
