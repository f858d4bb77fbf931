package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quickpoll/internal/domain/poll"
)

const collectionName = "polls"

// maxUpdateAttempts bounds the compare-and-swap loop in Update.
const maxUpdateAttempts = 10

var ErrUpdateConflict = errors.New("poll changed concurrently too many times")

// pollDocument mirrors the stored shape. Version is bumped by every write so
// Update can detect a concurrent vote or edit between its read and write.
type pollDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Question     string             `bson:"question"`
	Options      []string           `bson:"options"`
	Votes        []int              `bson:"votes"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
	Version      int64              `bson:"version"`
}

func (d *pollDocument) toDomain() *poll.Poll {
	return &poll.Poll{
		ID:           d.ID.Hex(),
		Question:     d.Question,
		Options:      d.Options,
		Votes:        d.Votes,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

type PollRepo struct {
	db   *mongo.Database
	coll *mongo.Collection
}

func NewPollRepo(db *mongo.Database) *PollRepo {
	return &PollRepo{db: db, coll: db.Collection(collectionName)}
}

func (r *PollRepo) Create(ctx context.Context, p *poll.Poll) (string, error) {
	doc := pollDocument{
		Question:     p.Question,
		Options:      p.Options,
		Votes:        p.Votes,
		PasswordHash: p.PasswordHash,
		CreatedAt:    p.CreatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	p.ID = oid.Hex()
	return p.ID, nil
}

func (r *PollRepo) GetByID(ctx context.Context, id string) (*poll.Poll, error) {
	doc, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// IncrementVote uses a positional $inc guarded by an existence check on the
// element, so it is a single atomic document update.
func (r *PollRepo) IncrementVote(ctx context.Context, id string, index int) (*poll.Poll, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, poll.ErrPollNotFound
	}
	if index < 0 {
		return nil, poll.ErrInvalidOptionIndex
	}

	field := "votes." + strconv.Itoa(index)
	filter := bson.M{"_id": oid, field: bson.M{"$exists": true}}
	update := bson.M{"$inc": bson.M{field: 1, "version": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc pollDocument
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if countErr != nil {
			return nil, countErr
		}
		if n == 0 {
			return nil, poll.ErrPollNotFound
		}
		return nil, poll.ErrInvalidOptionIndex
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *PollRepo) Update(ctx context.Context, id string, fn func(p *poll.Poll) error) (*poll.Poll, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := r.find(ctx, id)
		if err != nil {
			return nil, err
		}

		p := doc.toDomain()
		if err := fn(p); err != nil {
			return nil, err
		}

		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": doc.ID, "version": doc.Version},
			bson.M{
				"$set": bson.M{"options": p.Options, "votes": p.Votes},
				"$inc": bson.M{"version": 1},
			},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 1 {
			return p, nil
		}
	}
	return nil, ErrUpdateConflict
}

func (r *PollRepo) Ping(ctx context.Context) error {
	return r.db.Client().Ping(ctx, nil)
}

func (r *PollRepo) find(ctx context.Context, id string) (*pollDocument, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, poll.ErrPollNotFound
	}

	var doc pollDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, poll.ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
