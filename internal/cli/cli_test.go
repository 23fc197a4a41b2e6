package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// useConfig points the CLI at apiURL through the environment and runs the
// same setup PersistentPreRunE does.
func useConfig(t *testing.T, apiURL string) {
	t.Helper()
	t.Setenv("ACTIVECAMPAIGN_API_URL", apiURL)
	t.Setenv("ACTIVECAMPAIGN_API_KEY", "test-key")
	configPath = filepath.Join(t.TempDir(), "config.yaml")
	logLevel, logFormat = "", ""
	require.NoError(t, setup(io.Discard))
}

func upstream(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func outputOf(cmd *cobra.Command) *bytes.Buffer {
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(io.Discard)
	return &buf
}

func TestSetupFlagOverrides(t *testing.T) {
	useConfig(t, "https://acct.api-us1.com")
	logLevel, logFormat = "debug", "json"
	t.Cleanup(func() { logLevel, logFormat = "", "" })

	require.NoError(t, setup(io.Discard))
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestSetupRejectsBadLogLevel(t *testing.T) {
	useConfig(t, "https://acct.api-us1.com")
	logLevel = "loud"
	t.Cleanup(func() { logLevel = "" })

	assert.Error(t, setup(io.Discard))
}

func TestNewServerRequiresCredentials(t *testing.T) {
	useConfig(t, "")
	_, err := newServer()
	assert.EqualError(t, err, "ACTIVECAMPAIGN_API_URL is not set")
}

func TestRunCall(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("Api-Token"))
		assert.Equal(t, "x@example.com", r.URL.Query().Get("email"))
		_, _ = io.WriteString(w, `{"contacts":[]}`)
	})
	useConfig(t, srv.URL)

	cmd := &cobra.Command{}
	out := outputOf(cmd)
	require.NoError(t, runCall(cmd, []string{"get_contact_by_email", `{"email":"x@example.com"}`}))
	assert.Equal(t, "No contact found with email: x@example.com\n", out.String())
}

func TestRunCallUnknownTool(t *testing.T) {
	useConfig(t, "https://acct.api-us1.com")

	cmd := &cobra.Command{}
	out := outputOf(cmd)
	require.NoError(t, runCall(cmd, []string{"nope"}))
	assert.Equal(t, "Error executing nope: Unknown tool: nope\n", out.String())
}

func TestRunCallRejectsInvalidJSON(t *testing.T) {
	useConfig(t, "https://acct.api-us1.com")

	cmd := &cobra.Command{}
	_ = outputOf(cmd)
	assert.Error(t, runCall(cmd, []string{"get_contact_by_id", `{contactId:`}))
}

func TestRunTools(t *testing.T) {
	t.Cleanup(func() { toolsFormat = "yaml" })

	toolsFormat = "json"
	cmd := &cobra.Command{}
	out := outputOf(cmd)
	require.NoError(t, runTools(cmd, nil))
	var tools []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &tools))
	assert.Len(t, tools, 5)

	toolsFormat = "yaml"
	out = outputOf(cmd)
	require.NoError(t, runTools(cmd, nil))
	var doc []map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	require.Len(t, doc, 5)
	assert.Equal(t, "get_contact_by_email", doc[0]["name"])
	assert.Contains(t, out.String(), "inputSchema:")

	toolsFormat = "xml"
	assert.Error(t, runTools(cmd, nil))
}

func TestRouterHealthz(t *testing.T) {
	useConfig(t, "https://acct.api-us1.com")
	srv, err := newServer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newRouter(srv).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

func TestRunChecks(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/3/fields", r.URL.Path)
		_, _ = io.WriteString(w, `{"fields":[{"id":"1","title":"Company"}]}`)
	})
	useConfig(t, srv.URL)

	checks := runChecks(context.Background(), srv.Client())
	var buf bytes.Buffer
	assert.False(t, printChecks(&buf, checks), buf.String())
	assert.Contains(t, buf.String(), "1 custom fields")
	assert.Contains(t, buf.String(), "All checks passed.")
}

func TestRunChecksBadToken(t *testing.T) {
	srv := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	useConfig(t, srv.URL)

	checks := runChecks(context.Background(), srv.Client())
	last := checks[len(checks)-1]
	assert.False(t, last.ok)
	assert.True(t, strings.HasPrefix(last.fix, "regenerate the API key"), last.fix)

	var buf bytes.Buffer
	assert.True(t, printChecks(&buf, checks))
}

func TestRunChecksMissingCredentials(t *testing.T) {
	useConfig(t, "")
	t.Setenv("ACTIVECAMPAIGN_API_KEY", "")
	require.NoError(t, setup(io.Discard))

	checks := runChecks(context.Background(), nil)
	var failed []string
	for _, c := range checks {
		if !c.ok {
			failed = append(failed, c.label)
		}
	}
	assert.Equal(t, []string{"API URL", "API key"}, failed)
}
