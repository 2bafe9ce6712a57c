package models

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrEventNotFound = errors.New("event not found")

type mongoEventRepo struct {
	col *mongo.Collection
}

func NewMongoEventRepository(col *mongo.Collection) EventRepository {
	return &mongoEventRepo{col: col}
}

// eventDoc is the raw stored shape. Timestamps are decoded loosely so a
// document written with legacy numeric seconds still loads.
type eventDoc struct {
	ID        string   `bson:"id"`
	Title     string   `bson:"title"`
	URL       string   `bson:"url,omitempty"`
	ImageURL  string   `bson:"imageUrl,omitempty"`
	DateStart any      `bson:"dateStart"`
	DateEnd   any      `bson:"dateEnd"`
	UID       string   `bson:"uid"`
	CreatedAt any      `bson:"createdAt"`
	Design    bool     `bson:"design"`
	Coding    bool     `bson:"coding"`
	Other     bool     `bson:"other"`
	Likes     []string `bson:"likes"`
}

func (d eventDoc) toEvent() Event {
	likes := d.Likes
	if likes == nil {
		likes = []string{}
	}
	return Event{
		ID:        d.ID,
		Title:     d.Title,
		URL:       d.URL,
		ImageURL:  d.ImageURL,
		DateStart: NormalizeTime(d.DateStart),
		DateEnd:   NormalizeTime(d.DateEnd),
		UID:       d.UID,
		CreatedAt: NormalizeTime(d.CreatedAt),
		Design:    d.Design,
		Coding:    d.Coding,
		Other:     d.Other,
		Likes:     likes,
	}
}

func (s EventScope) filter() bson.M {
	switch {
	case s.OwnerID != "":
		return bson.M{"uid": s.OwnerID}
	case s.LikedBy != "":
		return bson.M{"likes": s.LikedBy}
	}
	return bson.M{}
}

func (r *mongoEventRepo) findCtx(ctx context.Context, filter bson.M) ([]Event, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Event{}
	for cur.Next(ctx) {
		var d eventDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toEvent())
	}
	return out, cur.Err()
}

func (r *mongoEventRepo) GetAll() ([]Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.findCtx(ctx, bson.M{})
}

func (r *mongoEventRepo) Find(scope EventScope) ([]Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.findCtx(ctx, scope.filter())
}

func (r *mongoEventRepo) GetByID(id string) (Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var d eventDoc
	if err := r.col.FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	return d.toEvent(), nil
}

func (r *mongoEventRepo) Create(e *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if e.Likes == nil {
		e.Likes = []string{}
	}
	_, err := r.col.InsertOne(ctx, e)
	return err
}

func (r *mongoEventRepo) Update(e *Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.col.UpdateOne(ctx, bson.M{"id": e.ID}, bson.M{"$set": e})
	return err
}

func (r *mongoEventRepo) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.col.DeleteOne(ctx, bson.M{"id": id})
	return err
}

// AddLike / RemoveLike mutate liked-by membership only. $addToSet and
// $pull commute and are idempotent, so concurrent toggles converge.
func (r *mongoEventRepo) AddLike(id, uid string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.col.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$addToSet": bson.M{"likes": uid}})
	return err
}

func (r *mongoEventRepo) RemoveLike(id, uid string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.col.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$pull": bson.M{"likes": uid}})
	return err
}

// Watch subscribes to the scoped set. It pushes an initial snapshot, then
// re-queries and pushes the full set again after every change stream
// notification; the consumer always rebuilds wholesale. Requires the
// deployment to support change streams (replica set).
func (r *mongoEventRepo) Watch(ctx context.Context, scope EventScope, fn Snapshot) error {
	push := func() error {
		events, err := r.findCtx(ctx, scope.filter())
		if err != nil {
			return err
		}
		fn(events)
		return nil
	}

	if err := push(); err != nil {
		return err
	}

	stream, err := r.col.Watch(ctx, mongo.Pipeline{},
		options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		if err := push(); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
