// Package cache holds reconciled reports between upstream refreshes.
package cache

import (
	"sync"
	"time"

	applog "demonstrativo/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry
	Purge()
	Size() int
}

// Cleaner is implemented by caches with expiring entries
type Cleaner interface {
	CleanExpired() int
	Purge()
}

// Manager runs periodic expiry for registered caches and invalidates them
// together when the ledger changes.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	logger      *applog.Logger
	startOnce   sync.Once
	stopOnce    sync.Once
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a new cache manager
func NewManager(logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Default(applog.ComponentCache)
	}
	return &Manager{
		logger:      logger.WithComponent(applog.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager
func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// InvalidateAll purges every registered cache
func (m *Manager) InvalidateAll() {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	for _, c := range caches {
		c.Purge()
	}
	m.logger.Debug("Caches invalidated", "caches", len(caches))
}

// StartCleanup begins periodic expiry. Later calls are no-ops.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.startOnce.Do(func() {
		go m.cleanup(interval)
	})
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			caches := append([]Cleaner(nil), m.caches...)
			m.mu.Unlock()

			total := 0
			for _, c := range caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				m.logger.Debug("Expired cache entries removed", "count", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup routine if it was started
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		started := true
		m.startOnce.Do(func() { started = false })
		if started {
			<-m.cleanupDone
		}
	})
}
