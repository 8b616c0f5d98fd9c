// Package mirror synchronizes client preference documents between the
// remote document store and the local relational store. The remote store is
// owned by the web frontend; the monitor pulls documents down, pushes
// server-side changes back up, and watches for edits between cycles.
package mirror

import (
	"context"
	"fmt"
	"log"
	"time"

	"abc-inventory-monitor/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChangeKind classifies a remote document change.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

// Change is one remote preference-document event observed by Watch.
type Change struct {
	Kind     ChangeKind
	ClientID string
	Doc      model.PrefDoc
}

// Mirror is the remote preference-document store. Documents are keyed by
// client id (the collection _id).
type Mirror struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// prefDocument wraps a PrefDoc with its _id for (de)serialization.
type prefDocument struct {
	ID            string `bson:"_id"`
	model.PrefDoc `bson:",inline"`
}

// New connects to the document store and verifies the connection.
func New(uri, database, collection string) (*Mirror, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("[Mirror] Connected to %s/%s", database, collection)
	return &Mirror{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// PullAll fetches every preference document, keyed by client id.
func (m *Mirror) PullAll(ctx context.Context) (map[string]model.PrefDoc, error) {
	cursor, err := m.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list preference documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := make(map[string]model.PrefDoc)
	for cursor.Next(ctx) {
		var doc prefDocument
		if err := cursor.Decode(&doc); err != nil {
			log.Printf("[Mirror] Skipping undecodable document: %v", err)
			continue
		}
		docs[doc.ID] = doc.PrefDoc
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate preference documents: %w", err)
	}
	return docs, nil
}

// Pull fetches one client's preference document. The second return is false
// if no document exists for the id.
func (m *Mirror) Pull(ctx context.Context, clientID string) (model.PrefDoc, bool, error) {
	var doc prefDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": clientID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return model.PrefDoc{}, false, nil
	}
	if err != nil {
		return model.PrefDoc{}, false, fmt.Errorf("failed to pull document for %s: %w", clientID, err)
	}
	return doc.PrefDoc, true, nil
}

// Push upserts one client's preference document, stamping UpdatedAt.
func (m *Mirror) Push(ctx context.Context, clientID string, doc model.PrefDoc) error {
	doc.UpdatedAt = time.Now().UTC()

	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": clientID}, prefDocument{ID: clientID, PrefDoc: doc}, opts)
	if err != nil {
		return fmt.Errorf("failed to push document for %s: %w", clientID, err)
	}
	return nil
}

// Delete removes one client's preference document. Missing documents are
// not an error.
func (m *Mirror) Delete(ctx context.Context, clientID string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"_id": clientID})
	if err != nil {
		return fmt.Errorf("failed to delete document for %s: %w", clientID, err)
	}
	return nil
}

// Watch opens a change stream and forwards document events until the
// context is cancelled. The returned channel closes when the stream ends.
// Requires a replica-set deployment; callers fall back to per-cycle polling
// when Watch fails.
func (m *Mirror) Watch(ctx context.Context) (<-chan Change, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := m.collection.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				OperationType string `bson:"operationType"`
				DocumentKey   struct {
					ID string `bson:"_id"`
				} `bson:"documentKey"`
				FullDocument *prefDocument `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				log.Printf("[Mirror] Failed to decode change event: %v", err)
				continue
			}

			change := Change{ClientID: event.DocumentKey.ID}
			switch event.OperationType {
			case "insert":
				change.Kind = ChangeAdded
			case "update", "replace":
				change.Kind = ChangeModified
			case "delete":
				change.Kind = ChangeRemoved
			default:
				continue
			}
			if event.FullDocument != nil {
				change.Doc = event.FullDocument.PrefDoc
			}

			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			log.Printf("[Mirror] Change stream closed: %v", err)
		}
	}()
	return out, nil
}

// Close disconnects from the document store.
func (m *Mirror) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
