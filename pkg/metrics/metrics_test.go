package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_EmptyURL(t *testing.T) {
	assert.NoError(t, Push(context.Background(), "", "fern"))
}

func TestPush_SendsToGateway(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	EntitiesTotal.WithLabelValues("carros", "brand", "synced").Inc()

	require.NoError(t, Push(context.Background(), server.URL, "fern_sync"))
	assert.Equal(t, "/metrics/job/fern_sync", gotPath)
}

func TestPush_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	assert.Error(t, Push(context.Background(), server.URL, "fern_sync"))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(UpsertsTotal.WithLabelValues("brands", "created"))
	UpsertsTotal.WithLabelValues("brands", "created").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(UpsertsTotal.WithLabelValues("brands", "created")))
}
