// Package mongostore implements docstore.Store on MongoDB.
//
// A document "users/u1/friends/u2" lives in the collection "users.friends"
// with _id "users/u1/friends/u2" and _parent "users/u1". Batches and
// transactions run as session transactions, so the deployment must be a
// replica set.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dias221467/Social_Graph/internal/docstore"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	idField     = "_id"
	parentField = "_parent"
	updateField = "_updatedAt"
)

// Store is a docstore.Store backed by one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect opens a client and pings the server.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	logrus.WithField("database", database).Info("Connected to MongoDB")
	return New(client, database), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// collectionFor maps a collection path to its Mongo collection and the
// parent document path used to scope it.
func (s *Store) collectionFor(collectionPath string) (*mongo.Collection, string, error) {
	parent, err := docstore.ParentDoc(collectionPath)
	if err != nil {
		return nil, "", err
	}
	parts := strings.Split(collectionPath, "/")
	names := make([]string, 0, len(parts)/2+1)
	for i := 0; i < len(parts); i += 2 {
		names = append(names, parts[i])
	}
	return s.db.Collection(strings.Join(names, ".")), parent, nil
}

func (s *Store) docCollection(path string) (*mongo.Collection, string, error) {
	collectionPath, _, err := docstore.SplitDoc(path)
	if err != nil {
		return nil, "", err
	}
	return s.collectionFor(collectionPath)
}

func (s *Store) Get(ctx context.Context, path string) (*docstore.Snapshot, error) {
	coll, _, err := s.docCollection(path)
	if err != nil {
		return nil, err
	}
	var raw bson.M
	err = coll.FindOne(ctx, bson.M{idField: path}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		_, id, _ := docstore.SplitDoc(path)
		return &docstore.Snapshot{Path: path, ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return toSnapshot(raw), nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) ([]*docstore.Snapshot, error) {
	coll, parent, err := s.collectionFor(q.Collection)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(parent, q.Filters)
	if err != nil {
		return nil, err
	}

	opts := options.Find()
	sort := bson.D{}
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		sort = append(sort, bson.E{Key: q.OrderBy, Value: dir})
	}
	sort = append(sort, bson.E{Key: idField, Value: 1})
	opts.SetSort(sort)
	if q.Max > 0 {
		opts.SetLimit(int64(q.Max))
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var out []*docstore.Snapshot
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", q.Collection, err)
		}
		out = append(out, toSnapshot(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", q.Collection, err)
	}
	return out, nil
}

func (s *Store) Set(ctx context.Context, path string, data docstore.Fields, opts ...docstore.SetOption) error {
	return s.applySet(ctx, path, data, docstore.ApplySetOptions(opts))
}

func (s *Store) Update(ctx context.Context, path string, updates ...docstore.Update) error {
	return s.applyUpdate(ctx, path, updates)
}

func (s *Store) Delete(ctx context.Context, path string) error {
	coll, _, err := s.docCollection(path)
	if err != nil {
		return err
	}
	if _, err := coll.DeleteOne(ctx, bson.M{idField: path}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

func (s *Store) applySet(ctx context.Context, path string, data docstore.Fields, o docstore.SetOptions) error {
	coll, parent, err := s.docCollection(path)
	if err != nil {
		return err
	}
	doc := bson.M{}
	for k, v := range docstore.NormalizeFields(data) {
		doc[k] = v
	}
	doc[parentField] = parent
	doc[updateField] = time.Now()

	if o.Merge {
		_, err = coll.UpdateOne(ctx, bson.M{idField: path}, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	} else {
		doc[idField] = path
		_, err = coll.ReplaceOne(ctx, bson.M{idField: path}, doc, options.Replace().SetUpsert(true))
	}
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

func (s *Store) applyUpdate(ctx context.Context, path string, updates []docstore.Update) error {
	coll, _, err := s.docCollection(path)
	if err != nil {
		return err
	}
	update, err := buildUpdate(updates)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx, bson.M{idField: path}, update)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, path)
	}
	return nil
}

func (s *Store) Batch() docstore.WriteBatch {
	return &batch{store: s}
}

// RunTransaction runs fn in a session transaction. The driver retries fn on
// transient transaction errors, so fn must be safe to call more than once.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx, &tx{store: s})
	})
	return err
}

func (s *Store) Watch(ctx context.Context, path string) (docstore.Subscription, error) {
	coll, _, err := s.docCollection(path)
	if err != nil {
		return nil, err
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{"documentKey._id": path}}}}
	return s.watch(ctx, coll, pipeline, func(ctx context.Context) ([]*docstore.Snapshot, error) {
		snap, err := s.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		return []*docstore.Snapshot{snap}, nil
	}, nil)
}

func (s *Store) WatchQuery(ctx context.Context, q docstore.Query) (docstore.Subscription, error) {
	coll, parent, err := s.collectionFor(q.Collection)
	if err != nil {
		return nil, err
	}
	match := func(snap *docstore.Snapshot) bool {
		return snap.Exists && snap.Data != nil && docstore.Matches(snap.Data, q.Filters)
	}
	prefix := parent + "/"
	if parent == "" {
		prefix = ""
	}
	pipeline := mongo.Pipeline{{{Key: "$match", Value: bson.M{
		"documentKey._id": primitive.Regex{Pattern: "^" + regexQuote(prefix) + "[^/]+$"},
	}}}}
	return s.watch(ctx, coll, pipeline, func(ctx context.Context) ([]*docstore.Snapshot, error) {
		return s.Query(ctx, q)
	}, match)
}

func regexQuote(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func buildFilter(parent string, filters []docstore.Filter) (bson.M, error) {
	filter := bson.M{parentField: parent}
	var and []bson.M
	for _, f := range filters {
		v := docstore.Normalize(f.Value)
		var cond bson.M
		switch f.Op {
		case docstore.Equal, docstore.ArrayContains:
			// Mongo equality on an array field matches any element.
			cond = bson.M{f.Field: v}
		case docstore.Less:
			cond = bson.M{f.Field: bson.M{"$lt": v}}
		case docstore.LessEqual:
			cond = bson.M{f.Field: bson.M{"$lte": v}}
		case docstore.Greater:
			cond = bson.M{f.Field: bson.M{"$gt": v}}
		case docstore.GreaterEqual:
			cond = bson.M{f.Field: bson.M{"$gte": v}}
		default:
			return nil, fmt.Errorf("mongostore: unsupported filter op %q", f.Op)
		}
		and = append(and, cond)
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter, nil
}

func buildUpdate(updates []docstore.Update) (bson.M, error) {
	set := bson.M{updateField: time.Now()}
	inc := bson.M{}
	unset := bson.M{}
	addToSet := bson.M{}
	pull := bson.M{}

	for _, u := range updates {
		switch u.Op {
		case docstore.OpSet:
			set[u.Field] = docstore.Normalize(u.Value)
		case docstore.OpIncrement:
			inc[u.Field] = docstore.Normalize(u.Value)
		case docstore.OpDeleteField:
			unset[u.Field] = ""
		case docstore.OpArrayUnion:
			addToSet[u.Field] = bson.M{"$each": normalizeSlice(u.Values)}
		case docstore.OpArrayRemove:
			pull[u.Field] = bson.M{"$in": normalizeSlice(u.Values)}
		default:
			return nil, fmt.Errorf("mongostore: unsupported update op %d", u.Op)
		}
	}

	update := bson.M{"$set": set}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(addToSet) > 0 {
		update["$addToSet"] = addToSet
	}
	if len(pull) > 0 {
		update["$pull"] = pull
	}
	return update, nil
}

func normalizeSlice(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = docstore.Normalize(v)
	}
	return out
}

// toSnapshot strips the bookkeeping fields and converts BSON types to the
// canonical docstore types.
func toSnapshot(raw bson.M) *docstore.Snapshot {
	path, _ := raw[idField].(string)
	_, id, _ := docstore.SplitDoc(path)
	snap := &docstore.Snapshot{Path: path, ID: id, Exists: true, Data: docstore.Fields{}}
	if t, ok := raw[updateField].(primitive.DateTime); ok {
		snap.UpdateTime = t.Time()
	}
	for k, v := range raw {
		if k == idField || k == parentField || k == updateField {
			continue
		}
		snap.Data[k] = fromBSON(v)
	}
	return snap
}

func fromBSON(v any) any {
	switch x := v.(type) {
	case primitive.DateTime:
		return x.Time()
	case int32:
		return int64(x)
	case primitive.A:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = fromBSON(e)
		}
		return out
	case primitive.M:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = fromBSON(e)
		}
		return out
	case primitive.D:
		out := make(map[string]any, len(x))
		for _, e := range x {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	}
	return docstore.Normalize(v)
}
