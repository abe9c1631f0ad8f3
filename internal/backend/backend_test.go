package backend

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marinagate/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenSQLiteMigrates(t *testing.T) {
	store, err := Open(context.Background(), config.Config{
		Backend:   config.BackendSQLite,
		SQLiteDSN: filepath.Join(t.TempDir(), "marinagate.db"),
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sites, err := store.ListSites(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sites)
}

func TestOpenRESTToleratesUnreachableBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	store, err := Open(context.Background(), config.Config{
		Backend:     config.BackendREST,
		RESTURL:     server.URL,
		RESTAPIKey:  "anon",
		RESTTimeout: time.Second,
	}, quietLogger())
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}

func TestOpenRejectsBadConfig(t *testing.T) {
	_, err := Open(context.Background(), config.Config{Backend: config.BackendREST}, quietLogger())
	assert.Error(t, err)

	_, err = Open(context.Background(), config.Config{Backend: "mongo"}, quietLogger())
	assert.ErrorContains(t, err, "unknown backend")
}
