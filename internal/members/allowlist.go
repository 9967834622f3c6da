// Package members provides host allowlist filtering for the transfer run
package members

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/meetops/zoom-to-drive/internal/logging"
)

// Allowlist decides which account members are in scope for a run. An empty
// file path admits every member.
type Allowlist interface {
	IsAllowed(email string) bool
	Hosts() []string
	Reload() error
	Close() error
}

// AllowlistConfig holds configuration for the host allowlist
type AllowlistConfig struct {
	FilePath  string // newline-delimited host emails; empty disables filtering
	WatchFile bool   // reload on file changes
}

type allowlist struct {
	config AllowlistConfig

	mu    sync.RWMutex
	hosts map[string]bool
	order []string

	watcher   *fsnotify.Watcher
	stopWatch chan struct{}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9._-]+\.[a-zA-Z]{2,}$`)

// NewAllowlist creates a host allowlist from the configured file. Comparison
// is case-insensitive; lines starting with # are comments.
func NewAllowlist(config AllowlistConfig) (Allowlist, error) {
	a := &allowlist{
		config:    config,
		hosts:     make(map[string]bool),
		stopWatch: make(chan struct{}),
	}

	if config.FilePath == "" {
		return a, nil
	}

	if err := a.load(); err != nil {
		return nil, fmt.Errorf("failed to load host allowlist: %w", err)
	}

	if config.WatchFile {
		if err := a.startWatcher(); err != nil {
			return nil, fmt.Errorf("failed to watch host allowlist: %w", err)
		}
	}

	return a, nil
}

// IsAllowed reports whether a host email is in scope
func (a *allowlist) IsAllowed(email string) bool {
	if a.config.FilePath == "" {
		return true
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hosts[strings.ToLower(email)]
}

// Hosts returns the allowlisted emails in file order
func (a *allowlist) Hosts() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result := make([]string, len(a.order))
	copy(result, a.order)
	return result
}

// Reload re-reads the allowlist file
func (a *allowlist) Reload() error {
	if a.config.FilePath == "" {
		return nil
	}
	return a.load()
}

// Close stops the file watcher
func (a *allowlist) Close() error {
	if a.watcher != nil {
		close(a.stopWatch)
		return a.watcher.Close()
	}
	return nil
}

func (a *allowlist) load() error {
	file, err := os.Open(a.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open allowlist file: %w", err)
	}
	defer file.Close()

	hosts := make(map[string]bool)
	var order []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !emailRegex.MatchString(line) {
			logging.Warn("Skipping invalid allowlist entry: %s", line)
			continue
		}

		email := strings.ToLower(line)
		if !hosts[email] {
			hosts[email] = true
			order = append(order, email)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read allowlist file: %w", err)
	}

	a.mu.Lock()
	a.hosts = hosts
	a.order = order
	a.mu.Unlock()

	return nil
}

func (a *allowlist) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(a.config.FilePath); err != nil {
		watcher.Close()
		return err
	}
	a.watcher = watcher

	go a.watchLoop()
	return nil
}

func (a *allowlist) watchLoop() {
	for {
		select {
		case event, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				// Editors often replace rather than rewrite; give the
				// write a moment to settle
				time.Sleep(10 * time.Millisecond)
				if err := a.load(); err != nil {
					logging.Warn("Failed to reload host allowlist: %v", err)
				}
			}

		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("Allowlist watcher error: %v", err)

		case <-a.stopWatch:
			return
		}
	}
}
