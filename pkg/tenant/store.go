// Package tenant loads and serves per-tenant search configuration from a
// TOML document. In serve mode the document is watched and reloaded on
// change, so scope edits apply without a restart.
package tenant

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/fedsearch/fedsearch/pkg/core"
	"github.com/fedsearch/fedsearch/pkg/log"
)

type document struct {
	// ExcludedDomains is the global result blacklist, applied across all
	// tenants by host suffix.
	ExcludedDomains []string                    `toml:"excluded_domains"`
	Tenants         map[string]core.TenantScope `toml:"tenants"`
}

// Store holds the tenant configuration in memory. Reads are lock-protected
// snapshots; a failed reload keeps the previous configuration.
type Store struct {
	path   string
	logger *log.Logger

	mu       sync.RWMutex
	tenants  map[string]core.TenantScope
	excluded []string
}

// Load reads the tenant document at path. A missing file yields an empty
// store rather than an error, so serve mode can start before provisioning.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		logger:  log.ForService("tenants"),
		tenants: make(map[string]core.TenantScope),
	}
	if err := s.reload(); err != nil {
		if os.IsNotExist(err) {
			s.logger.Warnf("tenant document %s not found, starting empty", path)
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshaling tenant document: %w", err)
	}

	tenants := make(map[string]core.TenantScope, len(doc.Tenants))
	for name, scope := range doc.Tenants {
		scope.Name = name
		tenants[name] = scope
	}

	s.mu.Lock()
	s.tenants = tenants
	s.excluded = doc.ExcludedDomains
	s.mu.Unlock()

	s.logger.Infof("loaded %d tenants from %s", len(tenants), s.path)
	return nil
}

// Tenant returns the scope for a tenant name.
func (s *Store) Tenant(name string) (core.TenantScope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope, ok := s.tenants[name]
	return scope, ok
}

// Names returns all configured tenant names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tenants))
	for name := range s.tenants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExcludedDomains returns the global domain blacklist. The slice must not be
// mutated by callers.
func (s *Store) ExcludedDomains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.excluded
}

// Watch reloads the tenant document whenever it changes, until ctx is
// canceled. Reload failures are logged and the previous configuration stays
// active.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory: editors replace the file on save, which drops
	// a watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		if cerr := watcher.Close(); cerr != nil {
			s.logger.Warnf("closing watcher: %v", cerr)
		}
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.path), err)
	}

	go func() {
		defer func() {
			if err := watcher.Close(); err != nil {
				s.logger.Warnf("closing watcher: %v", err)
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(s.path) {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					if err := s.reload(); err != nil {
						s.logger.Errorf("reloading tenants: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Errorf("watcher error: %v", err)
			}
		}
	}()

	return nil
}
