package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dreamsxin/memory-cleaner/cleaner"
	"github.com/dreamsxin/memory-cleaner/config"
	"github.com/dreamsxin/memory-cleaner/download"
	"github.com/dreamsxin/memory-cleaner/history"
	"github.com/dreamsxin/memory-cleaner/system"
	"github.com/dreamsxin/memory-cleaner/types"
	"github.com/dreamsxin/memory-cleaner/util"
)

//go:embed index.html
var indexHTML []byte

// Server 内存清理仪表盘的HTTP服务
type Server struct {
	cfg        *config.Config
	reader     system.Reader
	executor   *cleaner.Executor
	store      *history.Store
	downloader *download.Downloader
	logger     *slog.Logger

	// 同一时间只允许一次清理操作执行
	cleanupMu sync.Mutex
}

// New creates the dashboard server
func New(cfg *config.Config, reader system.Reader, executor *cleaner.Executor, store *history.Store, downloader *download.Downloader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:        cfg,
		reader:     reader,
		executor:   executor,
		store:      store,
		downloader: downloader,
		logger:     logger,
	}
}

// Handler returns the HTTP handler with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/api/memory", s.handleMemory)
	mux.HandleFunc("/api/cleanup", s.handleCleanup)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/chart", s.handleChart)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/version", s.handleVersion)

	return mux
}

// ListenAndServe starts the dashboard on the configured address
func (s *Server) ListenAndServe() error {
	s.logger.Info("memory cleanup dashboard running", "addr", s.cfg.ListenAddr)
	return http.ListenAndServe(s.cfg.ListenAddr, s.Handler())
}

// serveIndex 提供仪表盘页面
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// memoryResponse 当前内存状态，查询失败时snapshot为空并附带警告
type memoryResponse struct {
	Snapshot    *types.MemorySnapshot `json:"snapshot,omitempty"`
	UsedPercent float64               `json:"used_percent"`
	TotalHuman  string                `json:"total_human,omitempty"`
	FreeHuman   string                `json:"free_human,omitempty"`
	UsedHuman   string                `json:"used_human,omitempty"`
	Warning     string                `json:"warning,omitempty"`
}

// handleMemory 返回当前内存快照
func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, err := s.reader.Snapshot(r.Context())
	if err != nil {
		// 查询失败降级为占位显示，下次刷新重试
		s.logger.Warn("memory query failed", "error", err)
		writeJSON(w, memoryResponse{Warning: err.Error()})
		return
	}

	writeJSON(w, memoryResponse{
		Snapshot:    snapshot,
		UsedPercent: snapshot.UsedPercent(),
		TotalHuman:  util.FormatBytes(int64(snapshot.TotalBytes)),
		FreeHuman:   util.FormatBytes(int64(snapshot.FreeBytes)),
		UsedHuman:   util.FormatBytes(int64(snapshot.UsedBytes)),
	})
}

// cleanupResponse 清理操作的响应
type cleanupResponse struct {
	Result     *types.CleanupResult `json:"result"`
	FreedHuman string               `json:"freed_human"`
	Warning    string               `json:"warning,omitempty"`
}

// handleCleanup 执行清理操作，同一时间只接受一个请求
func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var options types.CleanupOptions
	if err := json.NewDecoder(r.Body).Decode(&options); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// 并发的清理请求会产生无意义的before/after差值，直接拒绝
	if !s.cleanupMu.TryLock() {
		http.Error(w, "Cleanup already in progress", http.StatusConflict)
		return
	}
	defer s.cleanupMu.Unlock()

	result, err := s.executor.Run(r.Context(), options)
	if err != nil {
		var missing *cleaner.ToolMissingError
		switch {
		case errors.Is(err, cleaner.ErrNoOptions):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &missing):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	resp := cleanupResponse{
		Result:     result,
		FreedHuman: util.FormatBytes(result.FreedBytes),
	}
	if options.All() {
		resp.Warning = "All cleanup options selected. Your system may lock up briefly during the cleanup process."
	}

	writeJSON(w, resp)
}

// handleHistory 查询或删除历史记录
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		records := s.store.Records()
		if records == nil {
			records = []types.CleanupResult{}
		}
		writeJSON(w, records)

	case http.MethodDelete:
		// 删除历史需要显式确认
		if r.URL.Query().Get("confirm") != "true" {
			http.Error(w, "History deletion requires confirm=true", http.StatusBadRequest)
			return
		}
		if err := s.store.Clear(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleChart 返回历史记录的图表数据
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	count := 50 // 默认50条
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		var err error
		count, err = strconv.Atoi(countStr)
		if err != nil || count < 0 {
			http.Error(w, "Invalid count parameter", http.StatusBadRequest)
			return
		}
	}

	chartData, err := s.store.ChartData(count)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	writeJSON(w, chartData)
}

// configResponse 运行时可见的配置
type configResponse struct {
	MaxRows        int    `json:"max_rows"`
	CleanupTimeout string `json:"cleanup_timeout"`
	ToolPath       string `json:"tool_path"`
}

// handleConfig 查看或更新保留上限
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, configResponse{
			MaxRows:        s.store.MaxRows(),
			CleanupTimeout: s.cfg.CleanupTimeout.String(),
			ToolPath:       s.cfg.ToolPath,
		})

	case http.MethodPost:
		var req struct {
			MaxRows int `json:"max_rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if err := s.store.SetMaxRows(req.MaxRows); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleVersion 返回本地版本与最新发布版本
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status, err := s.downloader.CheckUpdate(ctx, s.cfg.VersionFile(), s.cfg.ReleaseAPIURL)
	if err != nil {
		// 版本检查失败不致命，返回本地信息并附带警告
		s.logger.Warn("update check failed", "error", err)
		writeJSON(w, map[string]interface{}{
			"local_version": status.LocalVersion,
			"warning":       err.Error(),
		})
		return
	}

	writeJSON(w, status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
