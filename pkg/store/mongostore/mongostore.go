// Package mongostore archives orchestration results, plans included, in
// MongoDB. Results are stored whole under their id in the "results"
// collection and can be listed by domain.
package mongostore

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
)

// Collection holds the archived results.
const Collection = "results"

// DefaultTimeout bounds connecting and pinging.
const DefaultTimeout = 10 * time.Second

// Archive is a MongoDB result archive.
type Archive struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens the archive in database db at uri and ensures its indexes.
func Connect(ctx context.Context, uri, db string) (*Archive, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "connect mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStore, err, "ping mongodb")
	}

	a := &Archive{client: client, coll: client.Database(db).Collection(Collection)}
	_, err = a.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "plan.domain", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "backend", Value: 1}}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeStore, err, "create indexes")
	}
	return a, nil
}

// Name implements pipeline.Sink.
func (a *Archive) Name() string { return "archive" }

// Accept stores res, replacing an earlier version with the same id.
func (a *Archive) Accept(ctx context.Context, res *orchestrator.Result) error {
	_, err := a.coll.ReplaceOne(ctx, bson.M{"_id": res.ID}, res, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrap(errors.ErrCodeStore, err, "archive result %s", res.ID)
	}
	return nil
}

// Get loads one result.
func (a *Archive) Get(ctx context.Context, id string) (*orchestrator.Result, error) {
	var res orchestrator.Result
	err := a.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.New(errors.ErrCodeNotFound, "result %s not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "load result %s", id)
	}
	return &res, nil
}

// Query selects archived results.
type Query struct {
	Domain  string // empty matches every domain
	Success *bool
	Limit   int // 0 means DefaultLimit
}

// DefaultLimit caps List when Query.Limit is zero.
const DefaultLimit = 50

// filter builds the MongoDB filter for q.
func (q Query) filter() bson.D {
	f := bson.D{}
	if q.Domain != "" {
		f = append(f, bson.E{Key: "plan.domain", Value: q.Domain})
	}
	if q.Success != nil {
		f = append(f, bson.E{Key: "success", Value: *q.Success})
	}
	return f
}

func (q Query) limit() int64 {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return int64(q.Limit)
}

// List returns matching results, newest first.
func (a *Archive) List(ctx context.Context, q Query) ([]orchestrator.Result, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(q.limit())
	cur, err := a.coll.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "list results")
	}
	var out []orchestrator.Result
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStore, err, "decode results")
	}
	return out, nil
}

// Close disconnects the client.
func (a *Archive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return a.client.Disconnect(ctx)
}
