package docstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const subscriptionBuffer = 64

// WriteOp describes one committed write, passed to fault hooks.
type WriteOp struct {
	Kind string // "set", "update" or "delete"
	Path string
}

type memDoc struct {
	data    Fields
	updated time.Time
}

// MemoryStore is an in-process Store. Every batch and transaction commits
// under one lock, so it is linearizable. Transactions hold the lock for the
// whole callback: a callback must only use its Tx, never the store itself.
type MemoryStore struct {
	mu     sync.Mutex
	docs   map[string]*memDoc
	subs   map[*memSub]struct{}
	writes int64
	fault  func(op WriteOp) error
	now    func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*memDoc),
		subs: make(map[*memSub]struct{}),
		now:  time.Now,
	}
}

// SetFault installs a hook consulted for every write of a commit. When it
// returns an error the whole commit is rejected and nothing is applied.
func (s *MemoryStore) SetFault(fn func(op WriteOp) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

// Writes returns the number of writes committed so far.
func (s *MemoryStore) Writes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *MemoryStore) Get(ctx context.Context, path string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, _, err := SplitDoc(path); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(path), nil
}

func (s *MemoryStore) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := CheckCollection(q.Collection); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryLocked(q), nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, data Fields, opts ...SetOption) error {
	b := s.Batch()
	_ = b.Set(ctx, path, data, opts...)
	return b.Commit(ctx)
}

func (s *MemoryStore) Update(ctx context.Context, path string, updates ...Update) error {
	b := s.Batch()
	_ = b.Update(ctx, path, updates...)
	return b.Commit(ctx)
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	b := s.Batch()
	_ = b.Delete(ctx, path)
	return b.Commit(ctx)
}

func (s *MemoryStore) Batch() WriteBatch {
	return &memBatch{store: s}
}

func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commitLocked(tx.writes)
}

func (s *MemoryStore) Watch(ctx context.Context, path string) (Subscription, error) {
	if _, _, err := SplitDoc(path); err != nil {
		return nil, err
	}
	sub := newMemSub(s)
	sub.path = path

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	sub.send(s.snapshotLocked(path))
	s.mu.Unlock()

	go sub.watchContext(ctx)
	return sub, nil
}

func (s *MemoryStore) WatchQuery(ctx context.Context, q Query) (Subscription, error) {
	if err := CheckCollection(q.Collection); err != nil {
		return nil, err
	}
	sub := newMemSub(s)
	sub.query = &q
	sub.matched = make(map[string]bool)

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	for _, snap := range s.queryLocked(q) {
		sub.matched[snap.Path] = true
		sub.send(snap)
	}
	s.mu.Unlock()

	go sub.watchContext(ctx)
	return sub, nil
}

// Close stops every open subscription.
func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	subs := make([]*memSub, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.Stop()
	}
	return nil
}

func (s *MemoryStore) snapshotLocked(path string) *Snapshot {
	_, id, _ := SplitDoc(path)
	snap := &Snapshot{Path: path, ID: id}
	if doc, ok := s.docs[path]; ok {
		snap.Exists = true
		snap.Data = NormalizeFields(doc.data)
		snap.UpdateTime = doc.updated
	}
	return snap
}

func (s *MemoryStore) queryLocked(q Query) []*Snapshot {
	var out []*Snapshot
	for path, doc := range s.docs {
		collection, _, _ := SplitDoc(path)
		if collection != q.Collection || !Matches(doc.data, q.Filters) {
			continue
		}
		out = append(out, s.snapshotLocked(path))
	}
	SortSnapshots(out, q.OrderBy, q.Descending)
	if q.Max > 0 && len(out) > q.Max {
		out = out[:q.Max]
	}
	return out
}

type pendingWrite struct {
	op      WriteOp
	data    Fields
	merge   bool
	updates []Update
}

// commitLocked applies writes all-or-nothing and notifies subscribers.
func (s *MemoryStore) commitLocked(writes []pendingWrite) error {
	if len(writes) == 0 {
		return nil
	}
	if s.fault != nil {
		for _, w := range writes {
			if err := s.fault(w.op); err != nil {
				return err
			}
		}
	}

	now := s.now()
	staged := make(map[string]*memDoc)
	lookup := func(path string) *memDoc {
		if doc, ok := staged[path]; ok {
			return doc
		}
		return s.docs[path]
	}

	for _, w := range writes {
		switch w.op.Kind {
		case "set":
			data := NormalizeFields(w.data)
			if cur := lookup(w.op.Path); w.merge && cur != nil {
				merged := NormalizeFields(cur.data)
				for k, v := range data {
					merged[k] = v
				}
				data = merged
			}
			staged[w.op.Path] = &memDoc{data: data, updated: now}
		case "update":
			cur := lookup(w.op.Path)
			if cur == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, w.op.Path)
			}
			data := NormalizeFields(cur.data)
			if err := ApplyUpdates(data, w.updates); err != nil {
				return err
			}
			staged[w.op.Path] = &memDoc{data: data, updated: now}
		case "delete":
			staged[w.op.Path] = nil
		}
	}

	for path, doc := range staged {
		if doc == nil {
			delete(s.docs, path)
		} else {
			s.docs[path] = doc
		}
	}
	s.writes += int64(len(writes))

	for path := range staged {
		s.notifyLocked(path)
	}
	return nil
}

func (s *MemoryStore) notifyLocked(path string) {
	if len(s.subs) == 0 {
		return
	}
	snap := s.snapshotLocked(path)
	collection, _, _ := SplitDoc(path)
	for sub := range s.subs {
		switch {
		case sub.query == nil:
			if sub.path == path {
				sub.send(snap)
			}
		case sub.query.Collection == collection:
			matches := snap.Exists && Matches(snap.Data, sub.query.Filters)
			switch {
			case matches:
				sub.matched[path] = true
				sub.send(snap)
			case sub.matched[path]:
				delete(sub.matched, path)
				_, id, _ := SplitDoc(path)
				sub.send(&Snapshot{Path: path, ID: id})
			}
		}
	}
}

type memBatch struct {
	store  *MemoryStore
	writes []pendingWrite
	err    error
}

func (b *memBatch) Set(_ context.Context, path string, data Fields, opts ...SetOption) error {
	if _, _, err := SplitDoc(path); err != nil {
		b.err = err
		return err
	}
	o := ApplySetOptions(opts)
	b.writes = append(b.writes, pendingWrite{op: WriteOp{Kind: "set", Path: path}, data: NormalizeFields(data), merge: o.Merge})
	return nil
}

func (b *memBatch) Update(_ context.Context, path string, updates ...Update) error {
	if _, _, err := SplitDoc(path); err != nil {
		b.err = err
		return err
	}
	b.writes = append(b.writes, pendingWrite{op: WriteOp{Kind: "update", Path: path}, updates: updates})
	return nil
}

func (b *memBatch) Delete(_ context.Context, path string) error {
	if _, _, err := SplitDoc(path); err != nil {
		b.err = err
		return err
	}
	b.writes = append(b.writes, pendingWrite{op: WriteOp{Kind: "delete", Path: path}})
	return nil
}

func (b *memBatch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	return b.store.commitLocked(b.writes)
}

// memTx runs with the store lock held by RunTransaction.
type memTx struct {
	store  *MemoryStore
	writes []pendingWrite
}

func (t *memTx) Get(ctx context.Context, path string) (*Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	if _, _, err := SplitDoc(path); err != nil {
		return nil, err
	}
	return t.store.snapshotLocked(path), nil
}

func (t *memTx) Query(ctx context.Context, q Query) ([]*Snapshot, error) {
	if len(t.writes) > 0 {
		return nil, ErrReadAfterWrite
	}
	if err := CheckCollection(q.Collection); err != nil {
		return nil, err
	}
	return t.store.queryLocked(q), nil
}

func (t *memTx) Set(_ context.Context, path string, data Fields, opts ...SetOption) error {
	if _, _, err := SplitDoc(path); err != nil {
		return err
	}
	o := ApplySetOptions(opts)
	t.writes = append(t.writes, pendingWrite{op: WriteOp{Kind: "set", Path: path}, data: NormalizeFields(data), merge: o.Merge})
	return nil
}

func (t *memTx) Update(_ context.Context, path string, updates ...Update) error {
	if _, _, err := SplitDoc(path); err != nil {
		return err
	}
	t.writes = append(t.writes, pendingWrite{op: WriteOp{Kind: "update", Path: path}, updates: updates})
	return nil
}

func (t *memTx) Delete(_ context.Context, path string) error {
	if _, _, err := SplitDoc(path); err != nil {
		return err
	}
	t.writes = append(t.writes, pendingWrite{op: WriteOp{Kind: "delete", Path: path}})
	return nil
}

type memSub struct {
	store   *MemoryStore
	path    string
	query   *Query
	matched map[string]bool
	ch      chan *Snapshot
	done    chan struct{}
	once    sync.Once
	err     error
	closed  bool
}

func newMemSub(s *MemoryStore) *memSub {
	return &memSub{
		store: s,
		ch:    make(chan *Snapshot, subscriptionBuffer),
		done:  make(chan struct{}),
	}
}

// send must be called with the store lock held.
func (m *memSub) send(snap *Snapshot) {
	if m.closed {
		return
	}
	select {
	case m.ch <- snap:
	default:
		logrus.WithField("path", snap.Path).Warn("Subscription buffer full, dropping snapshot")
	}
}

func (m *memSub) watchContext(ctx context.Context) {
	select {
	case <-ctx.Done():
		m.stop(ctx.Err())
	case <-m.done:
	}
}

func (m *memSub) Changes() <-chan *Snapshot { return m.ch }

func (m *memSub) Err() error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return m.err
}

func (m *memSub) Stop() { m.stop(nil) }

func (m *memSub) stop(err error) {
	m.once.Do(func() {
		m.store.mu.Lock()
		delete(m.store.subs, m)
		m.closed = true
		m.err = err
		close(m.ch)
		m.store.mu.Unlock()
		close(m.done)
	})
}
