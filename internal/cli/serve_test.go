package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/txprop/internal/config"
)

type serving struct {
	grpcAddr string
	adminURL string
	cancel   context.CancelFunc
	done     chan error
}

func startServe(t *testing.T) *serving {
	t.Helper()
	cfg := config.Default()
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "serve.db")
	cfg.Coordinator.Name = "served"
	cfg.Coordinator.Address = "served:7400"
	cfg.Coordinator.Listen = "127.0.0.1:0"
	cfg.Admin.Listen = "127.0.0.1:0"

	type addrs struct{ grpc, admin net.Addr }
	ready := make(chan addrs, 1)
	opts := &ServeOptions{
		RootOptions: &RootOptions{
			Format: "text",
			Config: cfg,
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		},
		ShutdownTimeout: 5 * time.Second,
		ready: func(g, a net.Addr) {
			ready <- addrs{g, a}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &serving{cancel: cancel, done: make(chan error, 1)}
	go func() {
		s.done <- runServe(ctx, opts)
	}()

	select {
	case a := <-ready:
		s.grpcAddr = a.grpc.String()
		s.adminURL = "http://" + a.admin.String()
	case err := <-s.done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not become ready")
	}
	t.Cleanup(func() { s.stop(t) })
	return s
}

func (s *serving) stop(t *testing.T) {
	t.Helper()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	select {
	case err := <-s.done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Error("serve did not shut down")
	}
}

func (s *serving) getJSON(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(s.adminURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestServe_RemoteExportImport(t *testing.T) {
	s := startServe(t)

	assert.Equal(t, http.StatusOK, s.getJSON(t, "/healthz", nil))

	stdout, _, err := execute(t, "--remote", s.grpcAddr, "export", "--format", "json")
	require.NoError(t, err)
	var exp ExportResult
	decodeData(t, stdout, &exp)

	stdout, _, err = execute(t, "--remote", s.grpcAddr, "import", exp.Hex, "--commit", "--format", "json")
	require.NoError(t, err)
	var imp ImportResult
	decodeData(t, stdout, &imp)
	assert.Equal(t, exp.TxID, imp.TxID)
	assert.Equal(t, "served/active", imp.Description)
	assert.Equal(t, "committed", imp.Outcome)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			Status  string `json:"status"`
			Address string `json:"address"`
		} `json:"data"`
	}
	assert.Equal(t, http.StatusOK, s.getJSON(t, "/v1/transactions/"+exp.TxID, &body))
	assert.Equal(t, "committed", body.Data.Status)
	assert.Equal(t, "served:7400", body.Data.Address)

	// Both CLI runs disposed their proxies, so no handles remain.
	var reg struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	assert.Equal(t, http.StatusOK, s.getJSON(t, "/v1/registry", &reg))
	assert.Equal(t, 0, reg.Data.Count)

	s.stop(t)
	_, err = http.Get(s.adminURL + "/healthz")
	assert.Error(t, err, "admin listener closed after shutdown")
}

func TestServe_RefusesRemote(t *testing.T) {
	cfg := config.Default()
	cfg.Coordinator.Remote = "127.0.0.1:1"
	opts := &ServeOptions{RootOptions: &RootOptions{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}}

	err := runServe(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestServe_ListenError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()

	cfg := config.Default()
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "serve.db")
	cfg.Coordinator.Listen = lis.Addr().String()
	opts := &ServeOptions{RootOptions: &RootOptions{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}}

	err = runServe(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "listen coordinator")
}

func TestRemote_Unreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())

	stdout, _, err := execute(t, "--remote", addr, "export", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, codeCommand, decodeError(t, stdout))
}
