package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/agroclima/internal/config"
	"github.com/neexbeast/agroclima/internal/lookup"
)

func weatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather/Sorriso" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"city":      "Sorriso, Mato Grosso - BR",
			"latitude":  -12.5425,
			"longitude": -55.71139,
			"data": map[string]any{
				"temperature": 28.5, "humidity": 60, "wind_speed": 12,
				"precipitation": 0, "is_day": 1, "condition_code": 1,
			},
			"retrieved_at": "2026-10-14T15:04:05",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRun_CityFlag(t *testing.T) {
	srv := weatherServer(t)
	var out bytes.Buffer

	final := run(context.Background(), &config.Client{APIURL: srv.URL}, "Sorriso", strings.NewReader(""), &out, discard())

	assert.IsType(t, lookup.Success{}, final)
	assert.Contains(t, out.String(), "Searching Sorriso...")
	assert.Contains(t, out.String(), "Sorriso, Mato Grosso - BR")
	assert.Contains(t, out.String(), "Partly Cloudy")
}

func TestRun_NotFound(t *testing.T) {
	srv := weatherServer(t)
	var out bytes.Buffer

	final := run(context.Background(), &config.Client{APIURL: srv.URL}, "Atlantis", nil, &out, discard())

	assert.Equal(t, lookup.Failed{Kind: lookup.NotFound}, final)
	assert.Contains(t, out.String(), "City not found. Check the spelling.")
}

func TestRun_Stdin(t *testing.T) {
	srv := weatherServer(t)
	var out bytes.Buffer

	final := run(context.Background(), &config.Client{APIURL: srv.URL}, "", strings.NewReader("   \nSorriso\n"), &out, discard())

	require.IsType(t, lookup.Success{}, final)
	assert.NotContains(t, out.String(), "Searching ...", "blank lines are ignored")
}

func TestRun_ServiceDown(t *testing.T) {
	srv := weatherServer(t)
	srv.Close()
	var out bytes.Buffer

	final := run(context.Background(), &config.Client{APIURL: srv.URL}, "Sorriso", nil, &out, discard())

	assert.Equal(t, lookup.Failed{Kind: lookup.Unavailable}, final)
	assert.Contains(t, out.String(), "Service unavailable at the moment.")
}

func TestCheckCity(t *testing.T) {
	assert.NoError(t, checkCity("", false), "omitted flag means stdin mode")
	assert.NoError(t, checkCity("Sorriso", true))
	assert.Error(t, checkCity("   ", true))
	assert.Error(t, checkCity("", true))
}
