package mongostore

import (
	"context"
	"fmt"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// tx runs every call on the session context handed to the callback.
type tx struct {
	store *Store
}

func (t *tx) Get(ctx context.Context, path string) (*docstore.Snapshot, error) {
	return t.store.Get(ctx, path)
}

func (t *tx) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	return t.store.Query(ctx, q)
}

func (t *tx) Set(ctx context.Context, path string, data docstore.Fields, opts ...docstore.SetOption) error {
	return t.store.Set(ctx, path, data, opts...)
}

func (t *tx) Update(ctx context.Context, path string, updates ...docstore.Update) error {
	return t.store.Update(ctx, path, updates...)
}

func (t *tx) Delete(ctx context.Context, path string) error {
	return t.store.Delete(ctx, path)
}

type batchWrite struct {
	kind    string
	path    string
	data    docstore.Fields
	opts    docstore.SetOptions
	updates []docstore.Update
}

// batch replays its writes inside one transaction at Commit.
type batch struct {
	store  *Store
	writes []batchWrite
}

func (b *batch) Set(_ context.Context, path string, data docstore.Fields, opts ...docstore.SetOption) error {
	b.writes = append(b.writes, batchWrite{kind: "set", path: path, data: docstore.NormalizeFields(data), opts: docstore.ApplySetOptions(opts)})
	return nil
}

func (b *batch) Update(_ context.Context, path string, updates ...docstore.Update) error {
	b.writes = append(b.writes, batchWrite{kind: "update", path: path, updates: updates})
	return nil
}

func (b *batch) Delete(_ context.Context, path string) error {
	b.writes = append(b.writes, batchWrite{kind: "delete", path: path})
	return nil
}

func (b *batch) Commit(ctx context.Context) error {
	if len(b.writes) == 0 {
		return nil
	}
	return b.store.RunTransaction(ctx, func(ctx context.Context, _ docstore.Tx) error {
		for _, w := range b.writes {
			var err error
			switch w.kind {
			case "set":
				err = b.store.applySet(ctx, w.path, w.data, w.opts)
			case "update":
				err = b.store.applyUpdate(ctx, w.path, w.updates)
			case "delete":
				err = b.store.Delete(ctx, w.path)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type changeEvent struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument bson.M `bson:"fullDocument"`
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

// watch opens a change stream, emits the initial state and then forwards
// changes until ctx ends. match, when set, turns documents that stopped
// matching into removals.
func (s *Store) watch(
	ctx context.Context,
	coll *mongo.Collection,
	pipeline mongo.Pipeline,
	initial func(ctx context.Context) ([]*docstore.Snapshot, error),
	match func(*docstore.Snapshot) bool,
) (docstore.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	stream, err := coll.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open change stream on %s: %w", coll.Name(), err)
	}
	current, err := initial(ctx)
	if err != nil {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	sub := &subscription{
		ch:     make(chan *docstore.Snapshot, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(sub.ch)
		defer stream.Close(context.Background())

		for _, snap := range current {
			select {
			case sub.ch <- snap:
			case <-ctx.Done():
				return
			}
		}

		for stream.Next(ctx) {
			var ev changeEvent
			if err := stream.Decode(&ev); err != nil {
				logrus.WithError(err).Warn("Failed to decode change event")
				continue
			}
			snap := eventSnapshot(ev)
			if match != nil && snap.Exists && !match(snap) {
				snap = &docstore.Snapshot{Path: snap.Path, ID: snap.ID}
			}
			select {
			case sub.ch <- snap:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			sub.err = err
		}
	}()
	return sub, nil
}

func eventSnapshot(ev changeEvent) *docstore.Snapshot {
	if ev.OperationType == "delete" || ev.FullDocument == nil {
		_, id, _ := docstore.SplitDoc(ev.DocumentKey.ID)
		return &docstore.Snapshot{Path: ev.DocumentKey.ID, ID: id}
	}
	return toSnapshot(ev.FullDocument)
}
