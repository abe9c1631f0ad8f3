package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/marinagate/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTPPort:                0,
		Backend:                 config.BackendSQLite,
		SQLiteDSN:               filepath.Join(t.TempDir(), "marinagate.db"),
		TokenSecret:             "integration-secret",
		TokenTTL:                time.Hour,
		Location:                time.FixedZone("BRT", -3*60*60),
		Sites:                   []config.Site{{ID: "norte", Name: "Marina Norte"}},
		AutoCheckoutHours:       12,
		AutoCheckoutWarnHours:   1,
		AutoCheckoutObservation: "overwrite",
		BootstrapOwnerEmail:     "dona@marina.test",
		BootstrapOwnerPassword:  "segredo-forte",
	}
}

type apiClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c *apiClient) call(method, path, body string, out any) int {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("X-Site-ID", "norte")
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	if out != nil && rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestAppEndToEnd(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	a, err := newApp(ctx, testConfig(t), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close(context.Background()) })

	client := &apiClient{t: t, handler: a.handler}

	var session struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusCreated, client.call(http.MethodPost, "/sessions", `{"email":"dona@marina.test","password":"segredo-forte"}`, &session))
	require.NotEmpty(t, session.Token)
	client.token = session.Token

	var created struct {
		Person struct {
			ID string `json:"id"`
		} `json:"person"`
	}
	require.Equal(t, http.StatusCreated, client.call(http.MethodPost, "/people", `{"name":"Ana Souza","document":"123.456.789-00","category":"visitante"}`, &created))
	require.NotEmpty(t, created.Person.ID)

	var entry struct {
		Movement struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"movement"`
	}
	require.Equal(t, http.StatusCreated, client.call(http.MethodPost, "/movements", `{"person_id":"`+created.Person.ID+`"}`, &entry))
	assert.Equal(t, "DENTRO", entry.Movement.Status)

	assert.Equal(t, http.StatusConflict, client.call(http.MethodPost, "/movements", `{"person_id":"`+created.Person.ID+`"}`, nil))

	var inside struct {
		Entries []json.RawMessage `json:"entries"`
	}
	require.Equal(t, http.StatusOK, client.call(http.MethodGet, "/movements/inside", "", &inside))
	assert.Len(t, inside.Entries, 1)

	require.Equal(t, http.StatusOK, client.call(http.MethodPost, "/movements/"+entry.Movement.ID+"/exit", "", nil))
	require.Equal(t, http.StatusOK, client.call(http.MethodGet, "/movements/inside", "", &inside))
	assert.Empty(t, inside.Entries)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `marinagate_movements_total{action="entry",site="norte"} 1`)
}

func TestNewAppRejectsUnknownObservationPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoCheckoutObservation = "rewrite"

	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
