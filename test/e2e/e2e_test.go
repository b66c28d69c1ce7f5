package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	startupTimeout = 10 * time.Second
	pollInterval   = 100 * time.Millisecond
)

// lockedBuffer is a thread-safe wrapper around bytes.Buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

// serverProc holds the running server subprocess and its output.
type serverProc struct {
	cmd    *exec.Cmd
	stdout *lockedBuffer
	url    string
	dbPath string
	exited chan error
}

var (
	builtBinary string
	buildOnce   sync.Once
	buildErr    error
)

func getBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "aosd-e2e-*")
		if err != nil {
			buildErr = err
			return
		}
		binary := filepath.Join(dir, "aosd")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/aosd")
		cmd.Dir = findRepoRoot(t)
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build failed: %w\n%s", err, out)
			return
		}
		builtBinary = binary
	})
	require.NoError(t, buildErr)
	return builtBinary
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "could not find repo root")
		dir = parent
	}
}

func startServer(t *testing.T, binary string, extraEnv ...string) *serverProc {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "find free port")
	addr := ln.Addr().String()
	ln.Close()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	stdout := &lockedBuffer{}
	cmd := exec.Command(binary)
	cmd.Dir = t.TempDir()
	cmd.Env = append(os.Environ(),
		"AOS_LISTEN_ADDR="+addr,
		"AOS_STORAGE=sqlite",
		"AOS_DB_PATH="+dbPath,
		"AOS_LOG_LEVEL=info",
		"AOS_QUEUE_SIZE=4",
		"AOS_WORKER_COUNT=2",
	)
	cmd.Env = append(cmd.Env, extraEnv...)
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	require.NoError(t, cmd.Start(), "start server")

	sp := &serverProc{
		cmd:    cmd,
		stdout: stdout,
		url:    "http://" + addr,
		dbPath: dbPath,
		exited: make(chan error, 1),
	}
	go func() { sp.exited <- cmd.Wait() }()

	t.Cleanup(func() {
		cmd.Process.Kill()
		<-sp.exited
	})

	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(sp.url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return sp
			}
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("server did not become ready within %v\nstdout:\n%s", startupTimeout, stdout.String())
	return nil
}

func (sp *serverProc) publish(t *testing.T, payloadType, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(sp.url+"/v1/publish?payload_type="+payloadType, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out), "decode publish response")
	return resp.StatusCode, out
}

func (sp *serverProc) getJSON(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(sp.url + path)
	require.NoError(t, err, "GET %s", path)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out), "decode %s", path)
	return resp.StatusCode, out
}

func (sp *serverProc) waitForStatus(t *testing.T, id, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		_, op := sp.getJSON(t, "/v1/operations/"+id)
		if op["status"] == want {
			return op
		}
		time.Sleep(pollInterval)
	}
	t.Fatalf("operation %s did not reach %q\nstdout:\n%s", id, want, sp.stdout.String())
	return nil
}

func TestHealthzAndMetrics(t *testing.T) {
	sp := startServer(t, getBinary(t))

	status, body := sp.getJSON(t, "/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sqlite", body["storage"])

	resp, err := http.Get(sp.url + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	metrics, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	for _, name := range []string{"aos_http_requests_total", "aos_queue_in_flight"} {
		assert.Contains(t, string(metrics), name)
	}
}

func TestPublishCompletesAndPersists(t *testing.T) {
	sp := startServer(t, getBinary(t))

	status, op := sp.publish(t, "Delay", `{"name":"e2e","step_count":3,"step_delay_ms":10}`)
	require.Equal(t, http.StatusOK, status, "publish: %v", op)
	id, _ := op["id"].(string)
	require.Len(t, id, 26, "expected a ULID")

	done := sp.waitForStatus(t, id, "completed")
	assert.NotNil(t, done["completed_at"])

	// The payload round-trips through SQLite as its registered type.
	_, payload := sp.getJSON(t, "/v1/operations/"+id+"/payload")
	assert.Equal(t, float64(3), payload["step_count"])

	_, result := sp.getJSON(t, "/v1/operations/"+id+"/result")
	assert.Equal(t, id, result["operation_id"])

	_, page := sp.getJSON(t, "/v1/operations?status=completed")
	assert.Equal(t, float64(1), page["total"])
}

func TestCancelOverHTTP(t *testing.T) {
	sp := startServer(t, getBinary(t))

	_, op := sp.publish(t, "Delay", `{"step_count":100,"step_delay_ms":50}`)
	id, _ := op["id"].(string)
	sp.waitForStatus(t, id, "running")

	resp, err := http.Post(sp.url+"/v1/cancel/"+id+"?wait_for_completion=true&timeout_ms=5000", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	canceled := sp.waitForStatus(t, id, "canceled")
	assert.NotNil(t, canceled["canceled_at"])
	assert.NotNil(t, canceled["failed_at"])

	status, _ := sp.getJSON(t, "/v1/operations/"+id+"/result")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestQueueFullReturns429(t *testing.T) {
	sp := startServer(t, getBinary(t), "AOS_PAYLOAD_LIMITS=Delay:1")

	statuses := map[int]int{}
	for range 8 {
		status, _ := sp.publish(t, "Delay", `{"step_count":20,"step_delay_ms":50}`)
		statuses[status]++
	}
	assert.NotZero(t, statuses[http.StatusOK], "statuses = %v", statuses)
	assert.NotZero(t, statuses[http.StatusTooManyRequests], "statuses = %v", statuses)
}

func TestGracefulShutdownClosesDatabase(t *testing.T) {
	sp := startServer(t, getBinary(t))

	status, op := sp.publish(t, "Delay", `{"step_count":1,"step_delay_ms":1}`)
	require.Equal(t, http.StatusOK, status)
	id, _ := op["id"].(string)
	sp.waitForStatus(t, id, "completed")

	require.NoError(t, sp.cmd.Process.Signal(syscall.SIGTERM))
	select {
	case err := <-sp.exited:
		sp.exited <- err
		require.NoError(t, err, "stdout:\n%s", sp.stdout.String())
	case <-time.After(10 * time.Second):
		t.Fatalf("server did not exit after SIGTERM\nstdout:\n%s", sp.stdout.String())
	}

	// Closing the last connection checkpoints and removes the WAL file.
	_, err := os.Stat(sp.dbPath + "-wal")
	assert.True(t, os.IsNotExist(err), "write-ahead log left behind: %v", err)
	assert.Contains(t, sp.stdout.String(), `"msg":"server stopped"`)
}

func TestStructuredJSONLogs(t *testing.T) {
	sp := startServer(t, getBinary(t))

	resp, err := http.Get(sp.url + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return strings.Contains(sp.stdout.String(), `"msg":"request"`)
	}, 2*time.Second, 50*time.Millisecond)

	scanner := bufio.NewScanner(strings.NewReader(sp.stdout.String()))
	found := false
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if entry["msg"] == "request" {
			found = true
			for _, key := range []string{"method", "path", "status", "duration_ms", "request_id"} {
				assert.Contains(t, entry, key, "request log: %v", entry)
			}
			break
		}
	}
	assert.True(t, found, "no request log line found\nstdout:\n%s", sp.stdout.String())
}
