package storage

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/sprout/internal/constants"
	"github.com/julianstephens/sprout/internal/logger"
)

// ErrLockTimeout is returned when a write lock could not be acquired in time
var ErrLockTimeout = stderrors.New("timed out waiting for write lock")

var (
	findProcessFunc = ps.FindProcess
	lockWait        = constants.JournalLockWait
	lockRetry       = constants.JournalLockRetry

	// pathLocks serializes writers inside this process; the lockfile does
	// the same across processes.
	pathLocks = &keyedMutex{locks: make(map[string]*sync.Mutex)}
)

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// lockPath takes the in-process mutex for path, then creates the lockfile
// holding our PID. The returned func releases both.
func lockPath(path string) (func(), error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	m := pathLocks.get(abs)
	m.Lock()

	if err := acquireLockfile(abs); err != nil {
		m.Unlock()
		return nil, err
	}
	return func() {
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove lockfile", "path", abs, "error", err)
		}
		m.Unlock()
	}, nil
}

func acquireLockfile(path string) error {
	deadline := time.Now().Add(lockWait)
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			_, writeErr := f.WriteString(strconv.Itoa(os.Getpid()))
			closeErr := f.Close()
			if writeErr != nil || closeErr != nil {
				_ = os.Remove(path)
				return fmt.Errorf("failed to write lockfile: %v", stderrors.Join(writeErr, closeErr))
			}
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lockfile: %w", err)
		}

		if lockfileIsStale(path) {
			logger.Warn("Reclaiming stale lockfile", "path", path)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove stale lockfile: %w", err)
			}
			continue
		}

		if time.Now().After(deadline) {
			return ErrLockTimeout
		}
		time.Sleep(lockRetry)
	}
}

// lockfileIsStale reports whether the process that wrote the lockfile is gone.
// A lockfile carrying our own PID is a leftover, since the in-process mutex
// is already held by the caller.
func lockfileIsStale(path string) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		// The owner may be between create and write; only an old empty file is stale
		info, err := os.Stat(path)
		return err == nil && time.Since(info.ModTime()) > lockWait
	}
	pid, err := strconv.Atoi(text)
	if err != nil || pid <= 0 {
		return true
	}
	if pid == os.Getpid() {
		return true
	}
	process, err := findProcessFunc(pid)
	if err != nil {
		return false
	}
	return process == nil
}
