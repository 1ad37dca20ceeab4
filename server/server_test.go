package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamsxin/memory-cleaner/cleaner"
	"github.com/dreamsxin/memory-cleaner/config"
	"github.com/dreamsxin/memory-cleaner/download"
	"github.com/dreamsxin/memory-cleaner/history"
	"github.com/dreamsxin/memory-cleaner/types"
)

// cyclingReader 循环返回预设的内存快照
type cyclingReader struct {
	snapshots []types.MemorySnapshot
	calls     int
}

func (r *cyclingReader) Snapshot(ctx context.Context) (*types.MemorySnapshot, error) {
	snapshot := r.snapshots[r.calls%len(r.snapshots)]
	r.calls++
	snapshot.Timestamp = time.Now()
	return &snapshot, nil
}

// failingReader 模拟查询失败
type failingReader struct{}

func (r *failingReader) Snapshot(ctx context.Context) (*types.MemorySnapshot, error) {
	return nil, errors.New("memory query unavailable")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestReader() *cyclingReader {
	return &cyclingReader{
		snapshots: []types.MemorySnapshot{
			{TotalBytes: 16_000_000_000, UsedBytes: 8_000_000_000, FreeBytes: 8_000_000_000},
			{TotalBytes: 16_000_000_000, UsedBytes: 6_500_000_000, FreeBytes: 9_500_000_000},
		},
	}
}

// newTestServer 搭建一个使用临时目录和模拟工具的服务
func newTestServer(t *testing.T, toolScript string) (*Server, *history.Store) {
	t.Helper()

	dataDir := t.TempDir()

	toolPath := filepath.Join(dataDir, "cleanup-tool")
	if toolScript != "" {
		if runtime.GOOS == "windows" {
			t.Skip("tool stub scripts require a Unix shell")
		}
		require.NoError(t, os.WriteFile(toolPath, []byte(toolScript), 0755))
	}

	cfg := config.Default()
	cfg.ToolPath = toolPath
	cfg.DataDir = dataDir
	cfg.HistoryFile = filepath.Join(dataDir, "history.json")
	cfg.CleanupTimeout = 5 * time.Second
	cfg.MaxRows = 10

	logger := discardLogger()
	reader := newTestReader()

	store := history.NewStore(cfg.HistoryFile, cfg.MaxRows, logger)
	store.Load()

	executor := cleaner.NewExecutor(cfg.ToolPath, cfg.CleanupTimeout, reader, store, logger)
	downloader := download.NewDownloader(logger)

	return New(cfg, reader, executor, store, downloader, logger), store
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleMemory(t *testing.T) {
	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")

	rec := doRequest(s, http.MethodGet, "/api/memory", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp memoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, uint64(16_000_000_000), resp.Snapshot.TotalBytes)
	assert.InDelta(t, 50.0, resp.UsedPercent, 0.001)
	assert.NotEmpty(t, resp.TotalHuman)
}

func TestHandleMemoryQueryFailure(t *testing.T) {
	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")
	s.reader = &failingReader{}

	rec := doRequest(s, http.MethodGet, "/api/memory", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp memoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Snapshot)
	assert.NotEmpty(t, resp.Warning)
}

func TestHandleCleanup(t *testing.T) {
	s, store := newTestServer(t, "#!/bin/sh\nexit 0\n")

	rec := doRequest(s, http.MethodPost, "/api/cleanup", `{"standby_list":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Result)
	assert.True(t, resp.Result.Succeeded)
	assert.True(t, resp.Result.Options.StandbyList)
	assert.Equal(t, int64(1_500_000_000), resp.Result.FreedBytes)

	assert.Equal(t, 1, store.Len())
}

func TestHandleCleanupAllFlagsWarning(t *testing.T) {
	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")

	body := `{"modified_page_list":true,"standby_list":true,"priority0_standby_list":true,"working_sets":true}`
	rec := doRequest(s, http.MethodPost, "/api/cleanup", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cleanupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Warning)
}

func TestHandleCleanupEmptyOptions(t *testing.T) {
	s, store := newTestServer(t, "#!/bin/sh\nexit 0\n")

	rec := doRequest(s, http.MethodPost, "/api/cleanup", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, store.Len())
}

func TestHandleCleanupConcurrentRejected(t *testing.T) {
	// 工具先落一个标记文件再休眠，保证第二个请求到达时清理确实在执行中
	s, store := newTestServer(t, "#!/bin/sh\ntouch \"$(dirname \"$0\")/running\"\nsleep 2\n")
	marker := filepath.Join(s.cfg.DataDir, "running")

	first := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		first <- doRequest(s, http.MethodPost, "/api/cleanup", `{"standby_list":true}`)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "cleanup tool never started")

	rec := doRequest(s, http.MethodPost, "/api/cleanup", `{"working_sets":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	assert.Equal(t, http.StatusOK, (<-first).Code)
	assert.Equal(t, 1, store.Len(), "only the first cleanup is recorded")
}

func TestHandleCleanupToolMissing(t *testing.T) {
	s, _ := newTestServer(t, "")

	rec := doRequest(s, http.MethodPost, "/api/cleanup", `{"standby_list":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleHistory(t *testing.T) {
	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")

	// 先产生两条记录
	doRequest(s, http.MethodPost, "/api/cleanup", `{"standby_list":true}`)
	doRequest(s, http.MethodPost, "/api/cleanup", `{"working_sets":true}`)

	rec := doRequest(s, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []types.CleanupResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestHandleHistoryDelete(t *testing.T) {
	s, store := newTestServer(t, "#!/bin/sh\nexit 0\n")
	doRequest(s, http.MethodPost, "/api/cleanup", `{"standby_list":true}`)
	require.Equal(t, 1, store.Len())

	// 缺少确认参数
	rec := doRequest(s, http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, store.Len())

	// 显式确认
	rec = doRequest(s, http.MethodDelete, "/api/history?confirm=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, store.Len())
}

func TestHandleChart(t *testing.T) {
	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")

	rec := doRequest(s, http.MethodGet, "/api/history/chart", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "empty history has no chart")

	doRequest(s, http.MethodPost, "/api/cleanup", `{"standby_list":true}`)

	rec = doRequest(s, http.MethodGet, "/api/history/chart?count=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/history/chart?count=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/history/chart?count=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var chartData types.ChartData
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chartData))
	assert.Len(t, chartData.Labels, 1)
	assert.Len(t, chartData.Datasets, 3)
}

func TestHandleConfig(t *testing.T) {
	s, store := newTestServer(t, "#!/bin/sh\nexit 0\n")

	rec := doRequest(s, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp configResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.MaxRows)

	// 更新上限
	rec = doRequest(s, http.MethodPost, "/api/config", `{"max_rows":3}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, store.MaxRows())

	// 非法上限
	rec = doRequest(s, http.MethodPost, "/api/config", `{"max_rows":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 3, store.MaxRows())
}

func TestHandleVersion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tag_name":"v1.1.0","html_url":"https://example.com"}`))
	}))
	defer ts.Close()

	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")
	s.cfg.ReleaseAPIURL = ts.URL

	rec := doRequest(s, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status download.UpdateStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "v1.1.0", status.LatestVersion)
	assert.True(t, status.UpdateAvailable)
}

func TestServeIndex(t *testing.T) {
	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")

	rec := doRequest(s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Memory Cleanup Utility")

	rec = doRequest(s, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, "#!/bin/sh\nexit 0\n")

	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(s, http.MethodPost, "/api/memory", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(s, http.MethodGet, "/api/cleanup", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, doRequest(s, http.MethodPut, "/api/history", "").Code)
}
