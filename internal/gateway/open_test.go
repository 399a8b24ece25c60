package gateway_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karoo_lodge/internal/app"
	"karoo_lodge/internal/catalog"
	"karoo_lodge/internal/domain"
	"karoo_lodge/internal/gateway"
	"karoo_lodge/internal/shared"
)

func TestOpenREST_PublicReadIsOneRetryAtMost(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	gw, err := gateway.Open(context.Background(), shared.Config{
		StoreDriver: "rest",
		BackendURL:  ts.URL,
		AnonKey:     "anon",
		GatewayRPS:  100,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = gw.Close() })
	assert.ErrorIs(t, gw.ElevatedErr, domain.ErrNotConfigured)

	res := app.NewContentService(gw.Restricted, catalog.Default(), time.Second).Rooms(context.Background())
	assert.Equal(t, app.SourceDefault, res.Source)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits), "first try plus one retry")
}
