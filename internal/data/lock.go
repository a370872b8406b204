package data

import (
	"fmt"
	"os"
	"path/filepath"

	"nominatim-indexer/internal/biz"
	"nominatim-indexer/internal/conf"

	"github.com/gofrs/flock"
)

// NewUpdateLock 配置了 lock_file 时返回跨进程文件锁，否则返回 nil（只做进程内互斥）。
func NewUpdateLock(c *conf.Update) biz.UpdateLock {
	if c == nil || c.LockFile == "" {
		return nil
	}
	return &fileLock{path: c.LockFile, flock: flock.New(c.LockFile)}
}

type fileLock struct {
	path  string
	flock *flock.Flock
}

// TryLock attempts the exclusive lock without blocking.
func (l *fileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire update lock %s: %w", l.path, err)
	}
	return ok, nil
}

func (l *fileLock) Unlock() error {
	return l.flock.Unlock()
}
