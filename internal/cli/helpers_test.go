package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bistro/internal/testutil"
)

const (
	annEmail    = "ann@example.com"
	annPassword = "Aa1!aaaa"
	bobEmail    = "bob@example.com"
	bobPassword = "Bb2@bbbb"
)

// syncBuffer is a bytes.Buffer safe for the poller goroutine to write while
// the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cliHarness struct {
	fake       *testutil.FakeAPI
	configFile string
	opts       RootOptions
}

type result struct {
	stdout string
	stderr string
	code   int
}

// newCLI starts a fake backend with a regular user (Ann) and an admin (Bob)
// and writes a config file pointing at it.
func newCLI(t *testing.T) *cliHarness {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.AddUser("Ann", annEmail, annPassword, "user")
	fake.AddUser("Bob", bobEmail, bobPassword, "admin")

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	config := fmt.Sprintf(`api:
  baseURL: %s
  timeout: 5s
storage:
  path: %s
notifications:
  pollInterval: 1h
log:
  level: error
`, fake.URL(), filepath.Join(dir, "bistro.db"))
	require.NoError(t, os.WriteFile(configFile, []byte(config), 0o600))

	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	return &cliHarness{
		fake:       fake,
		configFile: configFile,
		opts:       RootOptions{Now: func() time.Time { return now }},
	}
}

func (h *cliHarness) run(args ...string) result {
	var stdout, stderr syncBuffer
	code := h.runContext(context.Background(), &stdout, &stderr, args...)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func (h *cliHarness) runContext(ctx context.Context, stdout, stderr *syncBuffer, args ...string) int {
	opts := h.opts
	return Execute(ctx, &opts, append([]string{"--config", h.configFile}, args...), stdout, stderr)
}

func (h *cliHarness) login(t *testing.T, email, password string) {
	t.Helper()
	res := h.run("login", "--email", email, "--password", password)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
}

// data decodes the data field of a JSON success response.
func data(t *testing.T, res result, v any) {
	t.Helper()
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}
