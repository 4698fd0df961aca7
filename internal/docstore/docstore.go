// Package docstore is the document store client the relationship layer is
// written against. Backends live in sub-packages (mongostore, firestorestore)
// plus the in-memory Store in this package.
//
// Paths are slash separated and alternate collection and document ids, for
// example "users/u1/friends/u2". A document path has an even number of
// segments, a collection path an odd number.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Update when the target document is missing.
	ErrNotFound = errors.New("docstore: document not found")
	// ErrInvalidPath is returned for malformed document or collection paths.
	ErrInvalidPath = errors.New("docstore: invalid path")
	// ErrReadAfterWrite is returned when a transaction reads after writing.
	ErrReadAfterWrite = errors.New("docstore: transaction reads must precede writes")
	// ErrTxConflict is returned when a transaction lost a race on a document.
	ErrTxConflict = errors.New("docstore: transaction conflict")
)

// Fields is the content of one document.
type Fields map[string]any

// Snapshot is the state of one document at read time.
type Snapshot struct {
	Path       string
	ID         string
	Exists     bool
	Data       Fields
	UpdateTime time.Time
}

// Reader is implemented by Store and Tx.
type Reader interface {
	Get(ctx context.Context, path string) (*Snapshot, error)
	Query(ctx context.Context, q Query) ([]*Snapshot, error)
}

// Writer is implemented by Store, Tx and WriteBatch.
type Writer interface {
	Set(ctx context.Context, path string, data Fields, opts ...SetOption) error
	Update(ctx context.Context, path string, updates ...Update) error
	Delete(ctx context.Context, path string) error
}

// ReadWriter is what repositories are built on, so the same repository code
// runs directly against the store or inside a transaction.
type ReadWriter interface {
	Reader
	Writer
}

// Tx is the handle passed to a RunTransaction callback. Every read must
// happen before the first write.
type Tx interface {
	ReadWriter
}

// WriteBatch collects writes that are committed atomically. Writes on a batch
// only fail at Commit.
type WriteBatch interface {
	Writer
	Commit(ctx context.Context) error
}

// Subscription delivers document snapshots until Stop is called or the
// watch context ends. A deleted document is delivered with Exists=false.
type Subscription interface {
	Changes() <-chan *Snapshot
	// Err reports why the channel was closed, nil after Stop.
	Err() error
	Stop()
}

// Store is a document store client.
type Store interface {
	ReadWriter
	Batch() WriteBatch
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Watch emits the current state of the document, then every change.
	Watch(ctx context.Context, path string) (Subscription, error)
	// WatchQuery emits every document matching q, then every change to them.
	WatchQuery(ctx context.Context, q Query) (Subscription, error)
	Close(ctx context.Context) error
}

// SetOption configures Set.
type SetOption func(*SetOptions)

// SetOptions is exported for backends.
type SetOptions struct {
	Merge bool
}

// Merge makes Set update the given fields and keep the others.
func Merge() SetOption {
	return func(o *SetOptions) { o.Merge = true }
}

// ApplySetOptions folds opts into a SetOptions value.
func ApplySetOptions(opts []SetOption) SetOptions {
	var o SetOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
