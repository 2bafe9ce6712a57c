package models

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ===== Events =====

// Event is the single domain entity: a postable calendar event with an
// optional attachment and a liked-by set. Field names mirror the stored
// document shape.
type Event struct {
	ID        string    `json:"id" bson:"id"`
	Title     string    `json:"title" bson:"title" binding:"required"`
	URL       string    `json:"url,omitempty" bson:"url,omitempty"`
	ImageURL  string    `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	DateStart time.Time `json:"dateStart" bson:"dateStart" binding:"required"`
	DateEnd   time.Time `json:"dateEnd" bson:"dateEnd" binding:"required"`
	UID       string    `json:"uid" bson:"uid"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	Design    bool      `json:"design" bson:"design"`
	Coding    bool      `json:"coding" bson:"coding"`
	Other     bool      `json:"other" bson:"other"`
	Likes     []string  `json:"likes" bson:"likes"`
}

// HasGenre reports whether the flag for the named genre is set.
// Unknown genre names are false.
func (e Event) HasGenre(genre string) bool {
	switch genre {
	case "design":
		return e.Design
	case "coding":
		return e.Coding
	case "other":
		return e.Other
	}
	return false
}

// LikedBy reports whether uid is a member of the liked-by set.
func (e Event) LikedBy(uid string) bool {
	for _, id := range e.Likes {
		if id == uid {
			return true
		}
	}
	return false
}

// RepairDates enforces end >= start: a start moved past the end drags
// the end along with it.
func (e *Event) RepairDates() {
	if e.DateEnd.Before(e.DateStart) {
		e.DateEnd = e.DateStart
	}
}

// EventScope narrows a query or subscription server-side. The zero value
// means the whole collection. At most one field is expected to be set.
type EventScope struct {
	OwnerID string // uid == OwnerID
	LikedBy string // likes array-contains LikedBy
}

// Snapshot receives a full rebuild of the subscribed set. Every
// notification carries the complete current list, never a delta.
type Snapshot func(events []Event)

type EventRepository interface {
	GetAll() ([]Event, error)
	GetByID(id string) (Event, error)
	Find(scope EventScope) ([]Event, error)
	Create(e *Event) error
	Update(e *Event) error
	Delete(id string) error

	// Membership helpers for the liked-by set. Both are idempotent at the
	// store: adding a present member or removing an absent one is a no-op.
	AddLike(id, uid string) error
	RemoveLike(id, uid string) error

	// Watch delivers an initial snapshot, then one snapshot per store
	// change, until ctx is cancelled. It blocks for the life of the
	// subscription.
	Watch(ctx context.Context, scope EventScope, fn Snapshot) error
}

// NormalizeTime converts a store-native timestamp value to a time.Time.
// Numeric values are treated as epoch seconds (the legacy stored form);
// anything unrecognizable becomes the zero time so a single bad field
// never fails a whole feed rebuild.
func NormalizeTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0)
	case int64:
		return time.Unix(t, 0)
	case int32:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	}
	return time.Time{}
}

// ===== Users =====

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserRepository interface {
	Create(u *User) error
	ValidateCredentials(email, plain string) (User, error)
	GetByID(id int64) (User, error)
}
