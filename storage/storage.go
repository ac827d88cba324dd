// Package storage provides named, durable SQL storage instances backed by
// pure-Go SQLite (modernc.org/sqlite).
//
// A Namespace maps logical instance names to database files under one data
// directory. Instances are created lazily and cached, so resolving the same
// name always yields the same handle. Adapters (sessions, settings) never
// open databases themselves; they go through a Namespace.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
)

// Namespace is the storage binding: a directory of per-instance SQLite files.
// A nil *Namespace is a valid "unavailable" binding; Resolve on it returns
// ErrStorageUnavailable instead of panicking.
type Namespace struct {
	dir string

	mu        sync.Mutex
	instances map[string]*Instance
}

// Open prepares a namespace rooted at dir, creating the directory if needed.
// An empty dir means no storage is bound: Open returns (nil, nil) and every
// later Resolve reports ErrStorageUnavailable.
func Open(dir string) (*Namespace, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrapf(err, "storage.Open %q", dir)
	}
	return &Namespace{
		dir:       dir,
		instances: make(map[string]*Instance),
	}, nil
}

// Resolve returns the instance for name, opening it on first use.
// The name is sanitized first, so any tenant identifier is a valid input.
// Resolution is idempotent: the same name always yields the same instance.
func (n *Namespace) Resolve(name string) (*Instance, error) {
	if n == nil {
		return nil, apperrors.ErrStorageUnavailable
	}
	sanitized := SanitizeName(name)
	if sanitized == "" {
		return nil, fmt.Errorf("storage.Resolve: empty instance name")
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if inst, ok := n.instances[sanitized]; ok {
		return inst, nil
	}

	path := filepath.Join(n.dir, sanitized+".db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, apperrors.Wrapf(err, "storage.Resolve %q", sanitized)
	}
	// SQLite serializes writers per database file. One connection keeps the
	// at-most-one-writer guarantee without SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	inst := NewInstance(sanitized, db)
	n.instances[sanitized] = inst
	return inst, nil
}

// Close closes every open instance. Safe on a nil namespace.
func (n *Namespace) Close() error {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	var firstErr error
	for name, inst := range n.instances {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = apperrors.Wrapf(err, "storage.Close %q", name)
		}
		delete(n.instances, name)
	}
	return firstErr
}

// SanitizeName maps an arbitrary tenant or logical name to a deterministic
// instance name: every character outside [A-Za-z0-9-] becomes '-'.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}
