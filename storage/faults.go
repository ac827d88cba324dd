package storage

import (
	"fmt"
	"strings"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
)

// FaultKind classifies a storage execution fault. Classification happens
// once, at the driver boundary; adapters test kinds with errors.Is rather
// than matching message text.
type FaultKind int

const (
	// FaultExec is any execution fault with no more specific classification:
	// malformed query, constraint violation, underlying outage.
	FaultExec FaultKind = iota

	// FaultNoSuchTable means the statement referenced a table that does not
	// exist yet. The settings load path recovers from this exactly once.
	FaultNoSuchTable
)

// Fault wraps a driver error with its classification and the operation that
// produced it. It satisfies errors.Is(err, apperrors.ErrNoSuchTable) when
// Kind is FaultNoSuchTable.
type Fault struct {
	Kind     FaultKind
	Op       string // "run", "first" or "all"
	Instance string
	Err      error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("storage %s on %q: %v", f.Op, f.Instance, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func (f *Fault) Is(target error) bool {
	return target == apperrors.ErrNoSuchTable && f.Kind == FaultNoSuchTable
}

// newFault classifies err and wraps it. The substring match is best effort:
// it covers the SQLite wording ("no such table") and the Postgres-style
// wording ("does not exist") some drivers emit.
func newFault(op, instance string, err error) *Fault {
	kind := FaultExec
	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "does not exist") {
		kind = FaultNoSuchTable
	}
	return &Fault{Kind: kind, Op: op, Instance: instance, Err: err}
}
