// Package mongostore keeps permission requests in a MongoDB collection.
//
// Documents written by earlier tools may carry submitted_at as a BSON date, a
// string in one of several formats, or something else entirely; the store
// decodes each form into a permission.RawTimestamp and leaves interpretation
// to the normalizer.
package mongostore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"permissiondesk/internal/config"
	"permissiondesk/internal/permission"
)

// document keeps every field raw so a legacy document with a numeric roll
// number or a non-ObjectID _id still decodes.
type document struct {
	ID          bson.RawValue `bson:"_id"`
	RollNumber  bson.RawValue `bson:"rollno"`
	Branch      bson.RawValue `bson:"branch"`
	Reason      bson.RawValue `bson:"reason"`
	Email       bson.RawValue `bson:"email"`
	SubmittedAt bson.RawValue `bson:"submitted_at"`
}

// Store implements permission.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	loc    *time.Location
}

var _ permission.Store = (*Store)(nil)

// Connect dials cfg.MongoURI, retrying with exponential backoff until the
// server answers a ping or cfg.ConnectTimeout elapses.
func Connect(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Store, error) {
	var client *mongo.Client
	dial := func() error {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			return err
		}
		client = c
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = cfg.ConnectTimeout
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("mongo not ready")
	}
	if err := backoff.RetryNotify(dial, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
	return &Store{client: client, coll: coll, loc: cfg.Location()}, nil
}

func (s *Store) Insert(ctx context.Context, rec permission.NewRecord) (string, error) {
	res, err := s.coll.InsertOne(ctx, newDocument(rec))
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprint(res.InsertedID), nil
}

func (s *Store) FetchAll(ctx context.Context, f permission.Filter) ([]permission.Record, error) {
	opts := options.Find()
	if f.NewestFirst {
		opts.SetSort(bson.D{{Key: "submitted_at", Value: -1}, {Key: "_id", Value: -1}})
	}
	cur, err := s.coll.Find(ctx, buildFilter(f), opts)
	if err != nil {
		return nil, err
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]permission.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.record(s.loc))
	}
	return out, nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteBefore only matches BSON dates; string timestamps never compare
// against a date in MongoDB and are kept.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.D{{Key: "submitted_at", Value: bson.D{{Key: "$lt", Value: cutoff}}}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func newDocument(rec permission.NewRecord) bson.D {
	doc := bson.D{
		{Key: "rollno", Value: rec.RollNumber},
		{Key: "branch", Value: rec.Branch},
		{Key: "reason", Value: rec.Reason},
		{Key: "email", Value: rec.Email},
	}
	if v := rec.SubmittedAt.Value(); v != nil {
		doc = append(doc, bson.E{Key: "submitted_at", Value: v})
	}
	return doc
}

func buildFilter(f permission.Filter) bson.D {
	var conds bson.A
	if f.RollNumber != "" {
		conds = append(conds, bson.D{{Key: "rollno", Value: primitive.Regex{Pattern: regexp.QuoteMeta(f.RollNumber), Options: "i"}}})
	}
	if f.ExactRollNumber != "" {
		conds = append(conds, bson.D{{Key: "rollno", Value: f.ExactRollNumber}})
	}
	var window bson.D
	if f.From != nil {
		window = append(window, bson.E{Key: "$gte", Value: *f.From})
	}
	if f.Until != nil {
		window = append(window, bson.E{Key: "$lt", Value: *f.Until})
	}
	if len(window) > 0 {
		conds = append(conds, bson.D{{Key: "submitted_at", Value: window}})
	}

	switch len(conds) {
	case 0:
		return bson.D{}
	case 1:
		return conds[0].(bson.D)
	default:
		return bson.D{{Key: "$and", Value: conds}}
	}
}

func (d document) record(loc *time.Location) permission.Record {
	return permission.Record{
		ID:          stringValue(d.ID),
		RollNumber:  stringValue(d.RollNumber),
		Branch:      stringValue(d.Branch),
		Reason:      stringValue(d.Reason),
		Email:       stringValue(d.Email),
		SubmittedAt: rawFromBSON(d.SubmittedAt, loc),
	}
}

// stringValue renders a pass-through field as text. Missing and null values
// become "".
func stringValue(v bson.RawValue) string {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return ""
	case bsontype.String:
		return v.StringValue()
	case bsontype.ObjectID:
		return v.ObjectID().Hex()
	default:
		var x any
		if err := v.Unmarshal(&x); err != nil {
			return v.String()
		}
		return fmt.Sprint(x)
	}
}

func rawFromBSON(v bson.RawValue, loc *time.Location) permission.RawTimestamp {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return permission.AbsentTimestamp()
	case bsontype.DateTime:
		return permission.TimeTimestamp(v.Time().In(loc))
	case bsontype.String:
		return permission.TextTimestamp(v.StringValue())
	default:
		var x any
		if err := v.Unmarshal(&x); err != nil {
			return permission.OtherTimestamp(v.Type.String())
		}
		return permission.OtherTimestamp(x)
	}
}
