package web

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perbu/artifacts/internal/db"
	"github.com/perbu/artifacts/internal/engine"
)

type fakeRunners struct {
	statuses []engine.Status
	stopped  []string
}

func (f *fakeRunners) Statuses() []engine.Status { return f.statuses }

func (f *fakeRunners) Stop(name string) error {
	for _, st := range f.statuses {
		if st.Name == name {
			f.stopped = append(f.stopped, name)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", engine.ErrUnknownRunner, name)
}

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func newTestServer(t *testing.T, database *db.DB, opts ...Option) *httptest.Server {
	t.Helper()
	s, err := NewServer(database, "localhost:0", opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func post(t *testing.T, url, token string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestParseTemplates(t *testing.T) {
	_, err := ParseTemplates()
	require.NoError(t, err)
}

func TestIndex(t *testing.T) {
	database := setupTestDB(t)
	runners := &fakeRunners{statuses: []engine.Status{
		{Name: "Ann", Phase: engine.PhaseCooling, OnCooldown: true, Pending: []string{"/my/Ann/action/fight"}, LastAction: "/my/Ann/action/move", LastCooldown: 5, TasksDone: 3},
		{Name: "Bob", Phase: engine.PhaseStopped, LastCooldown: engine.CooldownUnset, LastError: "boom"},
	}}
	personas := func(name string) (string, bool) {
		if name == "Ann" {
			return "mining", true
		}
		return "", false
	}
	srv := newTestServer(t, database, WithRunners(runners), WithPersonas(personas))

	code, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `<a href="/characters/Ann">Ann</a>`)
	assert.Contains(t, body, "mining")
	assert.Contains(t, body, "/my/Ann/action/fight")
	assert.Contains(t, body, "5s")
	assert.Contains(t, body, "boom")
	assert.Contains(t, body, "No actions were executed")
}

func TestIndexServeOnly(t *testing.T) {
	srv := newTestServer(t, setupTestDB(t))

	code, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "No runners in this process")
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, setupTestDB(t))

	code, _ := get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCharacter(t *testing.T) {
	database := setupTestDB(t)
	now := time.Now()
	_, err := database.CreateRun("run-1", "Ann", "fighter", now)
	require.NoError(t, err)
	require.NoError(t, database.RecordAction(&db.Action{
		RunID: "run-1", Character: "Ann", Action: "move",
		Params: sql.NullString{String: `{"x":1,"y":0}`, Valid: true}, Cooldown: 5,
		StartedAt: now, FinishedAt: now,
	}))
	require.NoError(t, database.RecordAction(&db.Action{
		RunID: "run-1", Character: "Ann", Action: "fight",
		Error:     sql.NullString{String: "status 497: inventory full", Valid: true},
		StartedAt: now, FinishedAt: now,
	}))
	srv := newTestServer(t, database)

	code, body := get(t, srv.URL+"/characters/Ann")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "POST move")
	assert.Contains(t, body, "inventory full")
	// Params are escaped by html/template
	assert.Contains(t, body, "{&#34;x&#34;:1,&#34;y&#34;:0}")

	code, _ = get(t, srv.URL+"/characters/Nobody")
	assert.Equal(t, http.StatusNotFound, code)

	// The dashboard digest counts both actions
	_, body = get(t, srv.URL+"/")
	assert.True(t, strings.Contains(body, "<td>Ann</td>"), "digest table missing")
}

func TestCharacterWithRunnerOnly(t *testing.T) {
	runners := &fakeRunners{statuses: []engine.Status{{Name: "Ann", Phase: engine.PhaseIdle, LastCooldown: engine.CooldownUnset}}}
	srv := newTestServer(t, setupTestDB(t), WithRunners(runners))

	code, body := get(t, srv.URL+"/characters/Ann")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "No actions journaled for Ann")
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "artifacts_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	srv := newTestServer(t, setupTestDB(t), WithGatherer(reg))

	code, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "artifacts_test_total 1")
}

func TestStop(t *testing.T) {
	runners := &fakeRunners{statuses: []engine.Status{{Name: "Ann"}}}
	srv := newTestServer(t, setupTestDB(t), WithRunners(runners), WithAdminToken("secret"))
	url := srv.URL + "/admin/characters/Ann/stop"

	tests := []struct {
		name  string
		url   string
		token string
		want  int
	}{
		{"no token", url, "", http.StatusUnauthorized},
		{"wrong token", url, "guess", http.StatusForbidden},
		{"unknown character", srv.URL + "/admin/characters/Zed/stop", "secret", http.StatusNotFound},
		{"ok", url, "secret", http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, post(t, tt.url, tt.token))
		})
	}
	assert.Equal(t, []string{"Ann"}, runners.stopped)
}

func TestStopDisabled(t *testing.T) {
	runners := &fakeRunners{statuses: []engine.Status{{Name: "Ann"}}}
	srv := newTestServer(t, setupTestDB(t), WithRunners(runners))

	assert.Equal(t, http.StatusForbidden, post(t, srv.URL+"/admin/characters/Ann/stop", "anything"))
	assert.Empty(t, runners.stopped)
}

func TestStopWithoutRunners(t *testing.T) {
	srv := newTestServer(t, setupTestDB(t), WithAdminToken("secret"))

	assert.Equal(t, http.StatusServiceUnavailable, post(t, srv.URL+"/admin/characters/Ann/stop", "secret"))
}
