package db

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/goverify/internal/pkg/goerror"
	"github.com/shandysiswandi/goverify/internal/pkg/instrument"
	"github.com/shandysiswandi/goverify/internal/verification/entity"
)

// The email doubles as the document id, which gives the conditional upsert
// its uniqueness guarantee without a second index.
type verificationDoc struct {
	Email      string    `bson:"_id"`
	ID         int64     `bson:"id"`
	CodeDigest string    `bson:"code_digest"`
	ExpiresAt  time.Time `bson:"expires_at"`
	Attempts   int       `bson:"attempts"`
	Verified   bool      `bson:"verified"`
	LastSentAt time.Time `bson:"last_sent_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d verificationDoc) toEntity() *entity.Verification {
	return &entity.Verification{
		ID:         d.ID,
		Email:      d.Email,
		CodeDigest: d.CodeDigest,
		ExpiresAt:  d.ExpiresAt.UTC(),
		Attempts:   d.Attempts,
		Verified:   d.Verified,
		LastSentAt: d.LastSentAt.UTC(),
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

type Mongo struct {
	coll *mongo.Collection
	ins  instrument.Instrumentation
}

func NewMongo(database *mongo.Database, ins instrument.Instrumentation) *Mongo {
	return &Mongo{coll: database.Collection("verifications"), ins: ins}
}

func (s *Mongo) mapError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return goerror.ErrNotFound
	}

	if mongo.IsDuplicateKeyError(err) {
		return goerror.ErrConflict
	}

	return err
}

func (s *Mongo) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.outbound.db").Start(ctx, name)
}

func (s *Mongo) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Mongo) FindByEmail(ctx context.Context, email string) (_ *entity.Verification, err error) {
	ctx, span := s.startSpan(ctx, "FindByEmail")
	defer func() { s.endSpan(span, err) }()

	var doc verificationDoc
	if err = s.coll.FindOne(ctx, bson.M{"_id": email}).Decode(&doc); err != nil {
		return nil, s.mapError(err)
	}

	return doc.toEntity(), nil
}

func (s *Mongo) SaveNewCode(ctx context.Context, rec entity.Verification, resendCutoff time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "SaveNewCode")
	defer func() { s.endSpan(span, err) }()

	// A throttled record fails the filter, so the upsert tries to insert a
	// duplicate _id and reports a key conflict instead of overwriting it.
	filter := bson.M{
		"_id":          rec.Email,
		"last_sent_at": bson.M{"$lte": resendCutoff},
	}
	update := bson.M{
		"$set": bson.M{
			"email":        rec.Email,
			"code_digest":  rec.CodeDigest,
			"expires_at":   rec.ExpiresAt,
			"attempts":     0,
			"verified":     false,
			"verified_at":  nil,
			"last_sent_at": rec.LastSentAt,
		},
		"$setOnInsert": bson.M{
			"id":         rec.ID,
			"created_at": rec.LastSentAt,
		},
	}

	if _, err = s.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return s.mapError(err)
	}

	return nil
}

func (s *Mongo) IncrementAttempts(ctx context.Context, email, digest string, maxAttempts int) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "IncrementAttempts")
	defer func() { s.endSpan(span, err) }()

	filter := bson.M{
		"_id":         email,
		"code_digest": digest,
		"verified":    false,
		"attempts":    bson.M{"$lt": maxAttempts},
	}
	update := bson.M{"$inc": bson.M{"attempts": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc verificationDoc
	if err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, goerror.ErrConflict
		}

		return 0, err
	}

	return doc.Attempts, nil
}

func (s *Mongo) MarkVerified(ctx context.Context, email, digest string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "MarkVerified")
	defer func() { s.endSpan(span, err) }()

	filter := bson.M{
		"_id":         email,
		"code_digest": digest,
		"verified":    false,
	}
	update := bson.M{"$set": bson.M{"verified": true, "verified_at": at}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}

	if res.ModifiedCount == 0 {
		return goerror.ErrConflict
	}

	return nil
}

func (s *Mongo) DeleteByEmail(ctx context.Context, email string) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteByEmail")
	defer func() { s.endSpan(span, err) }()

	if _, err = s.coll.DeleteOne(ctx, bson.M{"_id": email}); err != nil {
		return err
	}

	return nil
}

// Close disconnects the underlying client.
func (s *Mongo) Close() error {
	return s.coll.Database().Client().Disconnect(context.Background())
}
