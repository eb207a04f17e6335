package inventory

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Entry records one stock adjustment with enough information to reverse it.
type Entry struct {
	ID         string    `bson:"_id"`
	ProductID  string    `bson:"product_id"`
	VariantKey string    `bson:"variant_key,omitempty"`
	Delta      int       `bson:"delta"`
	Op         string    `bson:"op"`
	At         time.Time `bson:"at"`
}

type Journal interface {
	Append(ctx context.Context, entry Entry) error
}

type mongoJournal struct {
	collection *mongo.Collection
}

func NewMongoJournal(db *mongo.Database) Journal {
	return &mongoJournal{
		collection: db.Collection("inventory_journal"),
	}
}

func (j *mongoJournal) Append(ctx context.Context, entry Entry) error {
	_, err := j.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

// NopJournal discards entries; used by tests and deployments that do not
// keep an audit trail.
type NopJournal struct{}

func (NopJournal) Append(context.Context, Entry) error { return nil }
