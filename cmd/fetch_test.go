package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/invoicefetch/internal/config"
	"github.com/teemow/invoicefetch/internal/pdftext/pdftest"
)

// clearFetchEnv isolates a test from the variables the fetch command reads.
func clearFetchEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvStartDate, config.EnvEndDate, config.EnvSearchStrings,
		config.EnvDownloadFolder, config.EnvAttachmentExtension, config.EnvQuery,
		config.EnvCredentialsFile, config.EnvTokenFile, config.EnvAccessToken,
		config.EnvLogLevel, config.EnvLogFormat,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestResolveFetchConfig(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		envFile     string
		args        []string
		check       func(t *testing.T, cfg config.Config)
		errContains string
	}{
		{
			name: "environment only",
			env: map[string]string{
				config.EnvSearchStrings: "invoice, receipt",
				config.EnvStartDate:     "2024/03/01",
			},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, []string{"invoice", "receipt"}, cfg.SearchStrings)
				assert.Equal(t, "2024/03/01", cfg.Window.Start)
				assert.Equal(t, config.DefaultEndDate, cfg.Window.End)
				assert.Equal(t, config.DefaultDownloadFolder, cfg.DownloadFolder)
			},
		},
		{
			name: "flags override environment",
			env: map[string]string{
				config.EnvSearchStrings:  "invoice",
				config.EnvDownloadFolder: "from-env",
			},
			args: []string{
				"--search-strings", "rechnung",
				"--download-folder", "from-flag",
				"--end-date", "2024/06/30",
				"--query", "from:billing@example.com",
			},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, []string{"rechnung"}, cfg.SearchStrings)
				assert.Equal(t, "from-flag", cfg.DownloadFolder)
				assert.Equal(t, "2024/06/30", cfg.Window.End)
				assert.Equal(t, "from:billing@example.com", cfg.Query)
			},
		},
		{
			name: "flag defaults do not mask environment",
			env: map[string]string{
				config.EnvSearchStrings:       "invoice",
				config.EnvAttachmentExtension: ".PDF",
			},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, ".PDF", cfg.AttachmentExtension)
			},
		},
		{
			name:    "default env file is loaded",
			envFile: "SEARCH_STRINGS=from-dotenv\nEND_DATE=2024/02/29\n",
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, []string{"from-dotenv"}, cfg.SearchStrings)
				assert.Equal(t, "2024/02/29", cfg.Window.End)
			},
		},
		{
			name:        "missing search strings",
			errContains: config.EnvSearchStrings,
		},
		{
			name:        "invalid start date",
			env:         map[string]string{config.EnvSearchStrings: "invoice"},
			args:        []string{"--start-date", "2024-01-01"},
			errContains: config.EnvStartDate,
		},
		{
			name:        "explicit env file must exist",
			env:         map[string]string{config.EnvSearchStrings: "invoice"},
			args:        []string{"--env-file", "does-not-exist.env"},
			errContains: "env-file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearFetchEnv(t)
			dir := t.TempDir()
			t.Chdir(dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.envFile != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultEnvFile), []byte(tt.envFile), 0o600))
			}

			cmd := &cobra.Command{Use: "fetch"}
			var flags fetchFlags
			bindFetchFlags(cmd, &flags)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg, err := resolveFetchConfig(cmd, flags)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.ErrorContains(t, err, tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

// mailbox serves a one-message Gmail mailbox over the REST API.
type mailbox struct {
	mu          sync.Mutex
	attachments map[string][]byte
	queries     []string
	auth        []string
}

func (m *mailbox) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auth = append(m.auth, r.Header.Get("Authorization"))

	idx := strings.Index(r.URL.Path, "/users/me/messages")
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path[idx:], "/users/me/messages"), "/")
	segments := strings.Split(rest, "/")

	var resp any
	switch {
	case rest == "":
		m.queries = append(m.queries, r.URL.Query().Get("q"))
		resp = map[string]any{"messages": []map[string]string{{"id": "m1"}}}
	case rest == "m1":
		var parts []map[string]any
		for name := range m.attachments {
			parts = append(parts, map[string]any{
				"filename": name,
				"mimeType": "application/pdf",
				"body":     map[string]any{"attachmentId": name, "size": len(m.attachments[name])},
			})
		}
		resp = map[string]any{"id": "m1", "payload": map[string]any{"mimeType": "multipart/mixed", "parts": parts}}
	case len(segments) == 3 && segments[0] == "m1" && segments[1] == "attachments":
		data, ok := m.attachments[segments[2]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		resp = map[string]any{"data": base64.URLEncoding.EncodeToString(data), "size": len(data)}
	default:
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (m *mailbox) recorded() (queries, auth []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...), append([]string(nil), m.auth...)
}

func TestRunFetch(t *testing.T) {
	clearFetchEnv(t)
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	invoice := pdftest.Build("INVOICE #2024-117", "Total due: 42 EUR")
	box := &mailbox{attachments: map[string][]byte{
		"invoice.pdf":    invoice,
		"newsletter.pdf": pdftest.Build("Monthly product update"),
	}}
	srv := httptest.NewServer(box)
	defer srv.Close()

	folder := filepath.Join(t.TempDir(), "out")
	cfg := config.Config{
		Window:              config.DateWindow{Start: "2024/10/01", End: "2024/10/31"},
		SearchStrings:       []string{"Invoice"},
		DownloadFolder:      folder,
		AttachmentExtension: ".pdf",
		AccessToken:         "static-token",
	}

	var stdout, stderr bytes.Buffer
	err := runFetch(context.Background(), cfg, fetchRuntime{
		stdout:        &stdout,
		stderr:        &stderr,
		clientOptions: []option.ClientOption{option.WithEndpoint(srv.URL + "/")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Downloaded: invoice.pdf\n", stdout.String())
	assert.Contains(t, stderr.String(), "fetch completed")

	saved, err := os.ReadFile(filepath.Join(folder, "invoice.pdf"))
	require.NoError(t, err)
	assert.Equal(t, invoice, saved)

	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	queries, auth := box.recorded()
	assert.Equal(t, []string{"after:2024/10/01 before:2024/10/31 has:attachment"}, queries)
	for _, header := range auth {
		assert.Equal(t, "Bearer static-token", header)
	}
}

func TestRunFetch_InvertedWindowWarns(t *testing.T) {
	clearFetchEnv(t)
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	box := &mailbox{}
	srv := httptest.NewServer(box)
	defer srv.Close()

	cfg := config.Config{
		Window:         config.DateWindow{Start: "2024/11/01", End: "2024/10/31"},
		SearchStrings:  []string{"invoice"},
		DownloadFolder: filepath.Join(t.TempDir(), "out"),
		AccessToken:    "static-token",
	}

	var stdout, stderr bytes.Buffer
	err := runFetch(context.Background(), cfg, fetchRuntime{
		stdout:        &stdout,
		stderr:        &stderr,
		clientOptions: []option.ClientOption{option.WithEndpoint(srv.URL + "/")},
	})
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "start date is after end date")
	assert.Empty(t, stdout.String())

	queries, _ := box.recorded()
	assert.Equal(t, []string{"after:2024/11/01 before:2024/10/31 has:attachment"}, queries)
}

func TestRunFetch_ListFailureIsFatal(t *testing.T) {
	clearFetchEnv(t)
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"insufficient permissions"}}`))
	}))
	defer srv.Close()

	cfg := config.Config{
		Window:         config.DateWindow{Start: config.DefaultStartDate, End: config.DefaultEndDate},
		SearchStrings:  []string{"invoice"},
		DownloadFolder: filepath.Join(t.TempDir(), "out"),
		AccessToken:    "static-token",
	}

	var stdout, stderr bytes.Buffer
	err := runFetch(context.Background(), cfg, fetchRuntime{
		stdout:        &stdout,
		stderr:        &stderr,
		clientOptions: []option.ClientOption{option.WithEndpoint(srv.URL + "/")},
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to enumerate candidate messages")
	assert.Empty(t, stdout.String())
}

func TestRunFetch_MissingToken(t *testing.T) {
	clearFetchEnv(t)
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })
	dir := t.TempDir()
	credentials := `{"installed":{"client_id":"id","client_secret":"secret","redirect_uris":["http://localhost"],` +
		`"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credentials.json"), []byte(credentials), 0o600))

	cfg := config.Config{
		Window:          config.DateWindow{Start: config.DefaultStartDate, End: config.DefaultEndDate},
		SearchStrings:   []string{"invoice"},
		DownloadFolder:  filepath.Join(dir, "out"),
		CredentialsFile: filepath.Join(dir, "credentials.json"),
		TokenFile:       filepath.Join(dir, "token.json"),
	}

	var stdout, stderr bytes.Buffer
	err := runFetch(context.Background(), cfg, fetchRuntime{stdout: &stdout, stderr: &stderr})
	require.Error(t, err)
	assert.ErrorContains(t, err, "invoicefetch auth")
}

func TestVersionCmd(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	cmd := newVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "invoicefetch version 1.2.3\n", out.String())
}
