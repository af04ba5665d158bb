package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/okian/solodex/internal/domain/entity"
	"github.com/okian/solodex/internal/domain/query"
	"github.com/okian/solodex/pkg/logger"
)

const backendMongo = "mongo"

// MongoStore keeps one collection per kind. Documents carry the record id in
// an "id" field with a unique index; Mongo's own _id is never exposed.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	settings
}

var _ Store = (*MongoStore)(nil)
var _ Finder = (*MongoStore)(nil)
var _ Upserter = (*MongoStore)(nil)

// NewMongoStore connects to uri, pings the server and ensures the id indexes.
func NewMongoStore(ctx context.Context, uri, database string, opts ...Option) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", ErrBackend, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: ping: %w", ErrBackend, err)
	}

	s := &MongoStore{client: client, db: client.Database(database), settings: newSettings(opts)}
	for _, k := range entity.Kinds() {
		idx := mongo.IndexModel{
			Keys:    bson.D{{Key: entity.FieldID, Value: 1}},
			Options: options.Index().SetUnique(true).SetName("id_unique"),
		}
		if _, err := s.coll(k).Indexes().CreateOne(ctx, idx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("%w: index %s: %w", ErrBackend, k, err)
		}
	}
	s.log.Info(ctx, "connected to mongo", logger.String("database", database))
	return s, nil
}

// Backend implements Store.
func (s *MongoStore) Backend() string { return backendMongo }

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) coll(kind entity.Kind) *mongo.Collection {
	return s.db.Collection(kind.Describe().Collection)
}

var hideObjectID = bson.D{{Key: "_id", Value: 0}} //nolint:gochecknoglobals // shared projection

// List implements Store.
func (s *MongoStore) List(ctx context.Context, kind entity.Kind) (recs []entity.Record, err error) {
	defer func(start time.Time) { observe(backendMongo, kind, "list", start, err) }(time.Now())
	return s.find(ctx, kind, bson.D{}, options.Find().SetProjection(hideObjectID))
}

// Find implements Finder. Filters narrow the candidates in the database and
// query.Apply finishes the query in Go, so list and object fields compare by
// the same string form as the other backends. Skip, limit and projection run
// in the database only when there is nothing to filter or sort.
func (s *MongoStore) Find(ctx context.Context, kind entity.Kind, q query.Query) (recs []entity.Record, err error) {
	defer func(start time.Time) { observe(backendMongo, kind, "find", start, err) }(time.Now())

	if len(q.Filters) == 0 && q.Sort == "" {
		if q.Limit == 0 {
			return []entity.Record{}, nil
		}
		return s.find(ctx, kind, bson.D{}, FindOptions(q))
	}

	filter, ok := BuildFilter(q.Filters)
	if !ok {
		filter = bson.D{}
	}
	recs, err = s.find(ctx, kind, filter, options.Find().SetProjection(hideObjectID))
	if err != nil {
		return nil, err
	}
	return q.Apply(recs), nil
}

// Get implements Store.
func (s *MongoStore) Get(ctx context.Context, kind entity.Kind, id string) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendMongo, kind, "get", start, err) }(time.Now())

	var doc bson.M
	err = s.coll(kind).FindOne(ctx, bson.D{{Key: entity.FieldID, Value: id}},
		options.FindOne().SetProjection(hideObjectID)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrBackend, kind, err)
	}
	return FromBSON(doc), nil
}

// Create implements Store.
func (s *MongoStore) Create(ctx context.Context, kind entity.Kind, in entity.Record) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendMongo, kind, "create", start, err) }(time.Now())

	rec = in.Clone()
	if rec == nil {
		rec = entity.Record{}
	}
	if rec.ID() == "" {
		id, err := s.uniqueID(func(id string) (bool, error) {
			n, err := s.coll(kind).CountDocuments(ctx, bson.D{{Key: entity.FieldID, Value: id}}, options.Count().SetLimit(1))
			return n > 0, err
		})
		if err != nil {
			return nil, fmt.Errorf("%w: create %s: %w", ErrBackend, kind, err)
		}
		rec[entity.FieldID] = id
	} else {
		rec[entity.FieldID] = rec.ID()
	}

	if _, err := s.coll(kind).InsertOne(ctx, ToBSON(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID())
		}
		return nil, fmt.Errorf("%w: create %s: %w", ErrBackend, kind, err)
	}
	return rec, nil
}

// Replace implements Store. Patch keys that Mongo would read as a path or an
// operator go through a whole-document replace so they are stored literally.
func (s *MongoStore) Replace(ctx context.Context, kind entity.Kind, id string, patch entity.Record) (rec entity.Record, err error) {
	defer func(start time.Time) { observe(backendMongo, kind, "replace", start, err) }(time.Now())

	set := bson.M{}
	for k, v := range patch {
		if k == entity.FieldID || k == "_id" {
			continue
		}
		set[k] = toBSONValue(v)
	}
	if len(set) == 0 {
		return s.Get(ctx, kind, id)
	}
	if HasLiteralKeys(patch) {
		return s.replaceDocument(ctx, kind, id, patch)
	}

	var doc bson.M
	err = s.coll(kind).FindOneAndUpdate(ctx,
		bson.D{{Key: entity.FieldID, Value: id}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(hideObjectID),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: replace %s: %w", ErrBackend, kind, err)
	}
	return FromBSON(doc), nil
}

func (s *MongoStore) replaceDocument(ctx context.Context, kind entity.Kind, id string, patch entity.Record) (entity.Record, error) {
	cur, err := s.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	merged := entity.Merge(cur, patch)
	delete(merged, "_id")
	merged[entity.FieldID] = id

	res, err := s.coll(kind).ReplaceOne(ctx, bson.D{{Key: entity.FieldID, Value: id}}, ToBSON(merged))
	if err != nil {
		return nil, fmt.Errorf("%w: replace %s: %w", ErrBackend, kind, err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return merged, nil
}

// HasLiteralKeys reports whether a patch key contains a dot or starts with
// a dollar sign, which $set would treat as a path or an operator.
func HasLiteralKeys(patch entity.Record) bool {
	for k := range patch {
		if strings.Contains(k, ".") || strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// Delete implements Store.
func (s *MongoStore) Delete(ctx context.Context, kind entity.Kind, id string) (err error) {
	defer func(start time.Time) { observe(backendMongo, kind, "delete", start, err) }(time.Now())

	res, err := s.coll(kind).DeleteOne(ctx, bson.D{{Key: entity.FieldID, Value: id}})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrBackend, kind, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert implements Upserter with one unordered bulk write of replace-by-id
// operations.
func (s *MongoStore) Upsert(ctx context.Context, kind entity.Kind, recs []entity.Record) (n int, err error) {
	defer func(start time.Time) { observe(backendMongo, kind, "upsert", start, err) }(time.Now())

	models := make([]mongo.WriteModel, 0, len(recs))
	for _, r := range recs {
		id := r.ID()
		if id == "" {
			continue
		}
		doc := ToBSON(r)
		doc[entity.FieldID] = id
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.D{{Key: entity.FieldID, Value: id}}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	if len(models) == 0 {
		return 0, nil
	}
	res, err := s.coll(kind).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("%w: upsert %s: %w", ErrBackend, kind, err)
	}
	return int(res.UpsertedCount + res.MatchedCount), nil
}

func (s *MongoStore) find(ctx context.Context, kind entity.Kind, filter any, opts *options.FindOptions) ([]entity.Record, error) {
	cur, err := s.coll(kind).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: find %s: %w", ErrBackend, kind, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrBackend, kind, err)
	}
	recs := make([]entity.Record, len(docs))
	for i, d := range docs {
		recs[i] = FromBSON(d)
	}
	return recs, nil
}

// exactTypes convert to the same string in Mongo as in query.Stringify.
var exactTypes = bson.A{"string", "int", "long", "bool", "null"} //nolint:gochecknoglobals // static type list

// BuildFilter narrows candidates for exact-match filters. A document passes
// a term when the field exists and either its string form equals the value or
// its type is one whose Mongo string form can differ from query.Stringify
// (lists, objects, doubles, dates), leaving those to query.Matches.
// ok is false when a field name cannot be used as a Mongo path, in which case
// every document is a candidate.
func BuildFilter(filters map[string]string) (bson.D, bool) {
	if len(filters) == 0 {
		return bson.D{}, true
	}
	terms := make(bson.A, 0, len(filters))
	for field, want := range filters {
		if field == "" || strings.ContainsAny(field, ".$") {
			return nil, false
		}
		path := "$" + field
		typ := bson.D{{Key: "$type", Value: path}}
		terms = append(terms,
			bson.D{{Key: "$ne", Value: bson.A{typ, "missing"}}},
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "$not", Value: bson.A{
					bson.D{{Key: "$in", Value: bson.A{typ, exactTypes}}},
				}}},
				bson.D{{Key: "$eq", Value: bson.A{
					bson.D{{Key: "$convert", Value: bson.D{
						{Key: "input", Value: path},
						{Key: "to", Value: "string"},
						{Key: "onError", Value: nil},
						{Key: "onNull", Value: "null"},
					}}},
					want,
				}}},
			}}},
		)
	}
	return bson.D{{Key: "$expr", Value: bson.D{{Key: "$and", Value: terms}}}}, true
}

// FindOptions carries skip and limit of an unsorted query.
func FindOptions(q query.Query) *options.FindOptions {
	opts := options.Find().SetProjection(hideObjectID)
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if len(q.Fields) > 0 {
		proj := bson.D{{Key: "_id", Value: 0}, {Key: entity.FieldID, Value: 1}}
		for _, f := range q.Fields {
			if f != entity.FieldID && f != "_id" {
				proj = append(proj, bson.E{Key: f, Value: 1})
			}
		}
		opts.SetProjection(proj)
	}
	return opts
}

// ToBSON converts a record for storage. JSON numbers become int64 or float64.
func ToBSON(r entity.Record) bson.M {
	out := make(bson.M, len(r))
	for k, v := range r {
		if k == "_id" {
			continue
		}
		out[k] = toBSONValue(v)
	}
	return out
}

func toBSONValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		m := make(bson.M, len(x))
		for k, e := range x {
			m[k] = toBSONValue(e)
		}
		return m
	case entity.Record:
		return ToBSON(x)
	case []any:
		a := make(bson.A, len(x))
		for i, e := range x {
			a[i] = toBSONValue(e)
		}
		return a
	default:
		return v
	}
}

// FromBSON converts a stored document into a record, dropping _id.
func FromBSON(doc bson.M) entity.Record {
	out := make(entity.Record, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		out[k] = fromBSONValue(v)
	}
	return out
}

func fromBSONValue(v any) any {
	switch x := v.(type) {
	case bson.M:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = fromBSONValue(e)
		}
		return m
	case bson.D:
		m := make(map[string]any, len(x))
		for _, e := range x {
			m[e.Key] = fromBSONValue(e.Value)
		}
		return m
	case bson.A:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = fromBSONValue(e)
		}
		return a
	case int32:
		return int64(x)
	case primitive.DateTime:
		return x.Time().UTC().Format(time.RFC3339)
	case primitive.ObjectID:
		return x.Hex()
	default:
		return v
	}
}
