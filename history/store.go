package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/dreamsxin/memory-cleaner/types"
)

// PersistenceError 历史文件写入失败，内存中的记录不受影响
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist history to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store 管理清理历史记录的持久化，超出上限时淘汰最旧的记录
type Store struct {
	mu       sync.RWMutex
	path     string
	maxRows  int
	records  []types.CleanupResult
	fileLock *flock.Flock
	logger   *slog.Logger
}

// NewStore creates a history store backed by the file at path.
// Call Load to read previously persisted records.
func NewStore(path string, maxRows int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	// 确保数据目录存在，失败时Append会返回PersistenceError
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warn("failed to create history data directory", "path", filepath.Dir(path), "error", err)
	}

	return &Store{
		path:     path,
		maxRows:  maxRows,
		fileLock: flock.New(path + ".lock"),
		logger:   logger,
	}
}

// Load 加载持久化的历史记录。
// 文件缺失返回空序列；文件损坏记录警告并按空处理，启动不会因此失败。
func (s *Store) Load() []types.CleanupResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read history file", "path", s.path, "error", err)
		}
		s.records = nil
		return nil
	}

	var doc types.HistoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("history file is corrupted, starting with empty history", "path", s.path, "error", err)
		s.records = nil
		return nil
	}

	s.records = doc.Records
	s.evictLocked()

	return s.snapshotLocked()
}

// Append 追加一条记录并持久化，超出上限时从头部淘汰。
// 持久化失败返回PersistenceError，内存中的记录保持完整。
func (s *Store) Append(result types.CleanupResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, result)
	s.evictLocked()

	return s.persistLocked()
}

// Records 返回当前历史记录的副本
func (s *Store) Records() []types.CleanupResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of retained records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// MaxRows returns the current retention cap
func (s *Store) MaxRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxRows
}

// Clear 清空历史记录并持久化空序列。
// 调用方负责在调用前完成用户确认。
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	return s.persistLocked()
}

// SetMaxRows 更新保留上限，当前记录超过新上限时立即淘汰最旧的记录
func (s *Store) SetMaxRows(n int) error {
	if n <= 0 {
		return fmt.Errorf("max rows must be positive, got %d", n)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxRows = n
	if s.evictLocked() {
		return s.persistLocked()
	}
	return nil
}

// evictLocked 从头部淘汰记录直到满足上限，返回是否发生淘汰
func (s *Store) evictLocked() bool {
	if s.maxRows <= 0 || len(s.records) <= s.maxRows {
		return false
	}
	s.records = s.records[len(s.records)-s.maxRows:]
	return true
}

// persistLocked 原子地写入历史文件：先写临时文件再改名，
// 写入中途崩溃不会破坏已有文件
func (s *Store) persistLocked() error {
	doc := types.HistoryDocument{
		Records: s.records,
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	if err := s.fileLock.Lock(); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}
	defer s.fileLock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.tmp")
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PersistenceError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Path: s.path, Err: err}
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return &PersistenceError{Path: s.path, Err: err}
	}

	return nil
}

func (s *Store) snapshotLocked() []types.CleanupResult {
	result := make([]types.CleanupResult, len(s.records))
	copy(result, s.records)
	return result
}
