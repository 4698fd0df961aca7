// Package firestorestore implements docstore.Store on Cloud Firestore, whose
// document and collection paths match docstore paths one to one.
package firestorestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store is a docstore.Store backed by a Firestore client.
type Store struct {
	client *firestore.Client
}

// Connect creates a client for projectID. An empty credentialsFile uses the
// ambient credentials; FIRESTORE_EMULATOR_HOST is honoured by the client.
func Connect(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	logrus.WithField("project", projectID).Info("Connected to Firestore")
	return &Store{client: client}, nil
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close(context.Context) error {
	return s.client.Close()
}

func (s *Store) doc(path string) (*firestore.DocumentRef, error) {
	if _, _, err := docstore.SplitDoc(path); err != nil {
		return nil, err
	}
	return s.client.Doc(path), nil
}

func (s *Store) Get(ctx context.Context, path string) (*docstore.Snapshot, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := ref.Get(ctx)
	return toSnapshot(ref, snap, err)
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	fq, err := s.query(q)
	if err != nil {
		return nil, err
	}
	docs, err := fq.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	return toSnapshots(docs), nil
}

func (s *Store) query(q docstore.Query) (firestore.Query, error) {
	if err := docstore.CheckCollection(q.Collection); err != nil {
		return firestore.Query{}, err
	}
	fq := s.client.Collection(q.Collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, string(f.Op), docstore.Normalize(f.Value))
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Max > 0 {
		fq = fq.Limit(q.Max)
	}
	return fq, nil
}

func (s *Store) Set(ctx context.Context, path string, data docstore.Fields, opts ...docstore.SetOption) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Set(ctx, map[string]any(docstore.NormalizeFields(data)), setOptions(opts)...); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, path string, updates ...docstore.Update) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Update(ctx, toUpdates(updates)); err != nil {
		return mapWriteError(path, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	ref, err := s.doc(path)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) Batch() docstore.WriteBatch {
	return &batch{store: s, wb: s.client.Batch()}
}

func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		return fn(ctx, &tx{store: s, tx: ftx})
	})
	if err != nil && status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
	}
	return err
}

func setOptions(opts []docstore.SetOption) []firestore.SetOption {
	if docstore.ApplySetOptions(opts).Merge {
		return []firestore.SetOption{firestore.MergeAll}
	}
	return nil
}

func toUpdates(updates []docstore.Update) []firestore.Update {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		var v any
		switch u.Op {
		case docstore.OpSet:
			v = docstore.Normalize(u.Value)
		case docstore.OpIncrement:
			v = firestore.Increment(docstore.Normalize(u.Value))
		case docstore.OpArrayUnion:
			v = firestore.ArrayUnion(normalizeSlice(u.Values)...)
		case docstore.OpArrayRemove:
			v = firestore.ArrayRemove(normalizeSlice(u.Values)...)
		case docstore.OpDeleteField:
			v = firestore.Delete
		}
		out = append(out, firestore.Update{Path: u.Field, Value: v})
	}
	return out
}

func normalizeSlice(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = docstore.Normalize(v)
	}
	return out
}

func mapWriteError(path string, err error) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return fmt.Errorf("failed to update %s: %w", path, err)
}

func toSnapshot(ref *firestore.DocumentRef, snap *firestore.DocumentSnapshot, err error) (*docstore.Snapshot, error) {
	if err != nil && status.Code(err) != codes.NotFound {
		return nil, fmt.Errorf("failed to get %s: %w", ref.Path, err)
	}
	out := &docstore.Snapshot{Path: relativePath(ref), ID: ref.ID}
	if err == nil && snap != nil && snap.Exists() {
		out.Exists = true
		out.Data = docstore.NormalizeFields(snap.Data())
		out.UpdateTime = snap.UpdateTime
	}
	return out, nil
}

func toSnapshots(docs []*firestore.DocumentSnapshot) []*docstore.Snapshot {
	out := make([]*docstore.Snapshot, 0, len(docs))
	for _, d := range docs {
		snap, _ := toSnapshot(d.Ref, d, nil)
		out = append(out, snap)
	}
	return out
}

// relativePath drops the "projects/p/databases/d/documents/" prefix.
func relativePath(ref *firestore.DocumentRef) string {
	segments := []string{ref.ID}
	for parent := ref.Parent; parent != nil; {
		segments = append([]string{parent.ID}, segments...)
		if parent.Parent == nil {
			break
		}
		segments = append([]string{parent.Parent.ID}, segments...)
		parent = parent.Parent.Parent
	}
	return docstore.Doc(segments...)
}

type tx struct {
	store *Store
	tx    *firestore.Transaction
}

func (t *tx) Get(_ context.Context, path string) (*docstore.Snapshot, error) {
	ref, err := t.store.doc(path)
	if err != nil {
		return nil, err
	}
	snap, err := t.tx.Get(ref)
	return toSnapshot(ref, snap, err)
}

func (t *tx) Query(_ context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	fq, err := t.store.query(q)
	if err != nil {
		return nil, err
	}
	docs, err := t.tx.Documents(fq).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	return toSnapshots(docs), nil
}

func (t *tx) Set(_ context.Context, path string, data docstore.Fields, opts ...docstore.SetOption) error {
	ref, err := t.store.doc(path)
	if err != nil {
		return err
	}
	return t.tx.Set(ref, map[string]any(docstore.NormalizeFields(data)), setOptions(opts)...)
}

// Update inside a transaction surfaces a missing document at commit time.
func (t *tx) Update(_ context.Context, path string, updates ...docstore.Update) error {
	ref, err := t.store.doc(path)
	if err != nil {
		return err
	}
	return t.tx.Update(ref, toUpdates(updates))
}

func (t *tx) Delete(_ context.Context, path string) error {
	ref, err := t.store.doc(path)
	if err != nil {
		return err
	}
	return t.tx.Delete(ref)
}

type batch struct {
	store *Store
	wb    *firestore.WriteBatch
	err   error
}

func (b *batch) Set(_ context.Context, path string, data docstore.Fields, opts ...docstore.SetOption) error {
	ref, err := b.store.doc(path)
	if err != nil {
		b.err = err
		return err
	}
	b.wb.Set(ref, map[string]any(docstore.NormalizeFields(data)), setOptions(opts)...)
	return nil
}

func (b *batch) Update(_ context.Context, path string, updates ...docstore.Update) error {
	ref, err := b.store.doc(path)
	if err != nil {
		b.err = err
		return err
	}
	b.wb.Update(ref, toUpdates(updates))
	return nil
}

func (b *batch) Delete(_ context.Context, path string) error {
	ref, err := b.store.doc(path)
	if err != nil {
		b.err = err
		return err
	}
	b.wb.Delete(ref)
	return nil
}

func (b *batch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	if _, err := b.wb.Commit(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %v", docstore.ErrNotFound, err)
		}
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

type subscription struct {
	ch     chan *docstore.Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func (s *subscription) Changes() <-chan *docstore.Snapshot { return s.ch }

func (s *subscription) Err() error {
	<-s.done
	return s.err
}

func (s *subscription) Stop() {
	s.cancel()
	<-s.done
}

func newSubscription(ctx context.Context) (*subscription, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &subscription{
		ch:     make(chan *docstore.Snapshot, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}, ctx
}

func (s *subscription) finish(ctx context.Context, err error) {
	if err != nil && !errors.Is(err, iterator.Done) && ctx.Err() == nil && status.Code(err) != codes.Canceled {
		s.err = err
	}
}

func (s *Store) Watch(ctx context.Context, path string) (docstore.Subscription, error) {
	ref, err := s.doc(path)
	if err != nil {
		return nil, err
	}
	sub, ctx := newSubscription(ctx)
	it := ref.Snapshots(ctx)

	go func() {
		defer close(sub.done)
		defer close(sub.ch)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil && status.Code(err) != codes.NotFound {
				sub.finish(ctx, err)
				return
			}
			out, _ := toSnapshot(ref, snap, nil)
			if snap == nil || !snap.Exists() {
				out = &docstore.Snapshot{Path: path, ID: ref.ID}
			}
			select {
			case sub.ch <- out:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}

func (s *Store) WatchQuery(ctx context.Context, q docstore.Query) (docstore.Subscription, error) {
	fq, err := s.query(q)
	if err != nil {
		return nil, err
	}
	sub, ctx := newSubscription(ctx)
	it := fq.Snapshots(ctx)

	go func() {
		defer close(sub.done)
		defer close(sub.ch)
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				sub.finish(ctx, err)
				return
			}
			for _, change := range qs.Changes {
				out, _ := toSnapshot(change.Doc.Ref, change.Doc, nil)
				if change.Kind == firestore.DocumentRemoved {
					out = &docstore.Snapshot{Path: out.Path, ID: out.ID}
				}
				select {
				case sub.ch <- out:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return sub, nil
}
