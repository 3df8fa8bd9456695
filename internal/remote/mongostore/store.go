// Package mongostore implements the remote document-store contract on
// MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mka6199/wagebook/internal/logging"
	"github.com/mka6199/wagebook/internal/models"
	"github.com/mka6199/wagebook/internal/opid"
)

// Store talks to the workers and payments collections of one database.
type Store struct {
	client   *mongo.Client
	workers  *mongo.Collection
	payments *mongo.Collection
	timeout  time.Duration
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, dbName string, timeout time.Duration) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &Store{
		client:   client,
		workers:  db.Collection(models.Worker{}.CollectionName()),
		payments: db.Collection(models.Payment{}.CollectionName()),
		timeout:  timeout,
	}, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// CreateWorker inserts a worker and returns its id. Temporary offline ids
// are replaced with a fresh remote id at insert time.
func (s *Store) CreateWorker(ctx context.Context, w models.Worker) (string, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	if w.ID == "" || opid.IsTemp(w.ID) {
		w.ID = newDocID()
	}
	if _, err := s.workers.InsertOne(ctx, w); err != nil {
		return "", fmt.Errorf("failed to create worker: %w", err)
	}
	return w.ID, nil
}

// UpdateWorker applies a partial update by id.
func (s *Store) UpdateWorker(ctx context.Context, id string, patch map[string]any) error {
	return s.update(ctx, s.workers, "worker", id, patch)
}

// DeleteWorker removes a worker. Delete is a hard remove.
func (s *Store) DeleteWorker(ctx context.Context, id string) error {
	return s.delete(ctx, s.workers, "worker", id)
}

// WatchWorkers re-reads the collection on every remote change and hands the
// full row set to the callback.
func (s *Store) WatchWorkers(ctx context.Context, callback func(rows []models.Worker)) (func(), error) {
	return watch(ctx, s.workers, callback)
}

// CreatePayment inserts a payment and returns its id.
func (s *Store) CreatePayment(ctx context.Context, p models.Payment) (string, error) {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	if p.ID == "" || opid.IsTemp(p.ID) {
		p.ID = newDocID()
	}
	if _, err := s.payments.InsertOne(ctx, p); err != nil {
		return "", fmt.Errorf("failed to create payment: %w", err)
	}
	return p.ID, nil
}

// UpdatePayment applies a partial update by id.
func (s *Store) UpdatePayment(ctx context.Context, id string, patch map[string]any) error {
	return s.update(ctx, s.payments, "payment", id, patch)
}

// DeletePayment removes a payment.
func (s *Store) DeletePayment(ctx context.Context, id string) error {
	return s.delete(ctx, s.payments, "payment", id)
}

// WatchPayments re-reads the collection on every remote change.
func (s *Store) WatchPayments(ctx context.Context, callback func(rows []models.Payment)) (func(), error) {
	return watch(ctx, s.payments, callback)
}

func (s *Store) update(ctx context.Context, coll *mongo.Collection, kind, id string, patch map[string]any) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	set := bson.M{}
	for k, v := range patch {
		set[k] = v
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", kind, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, coll *mongo.Collection, kind, id string) error {
	ctx, cancel := s.callCtx(ctx)
	defer cancel()

	if _, err := coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", kind, id, err)
	}
	return nil
}

// watch opens a change stream and re-queries the full collection on every
// event. Collections here are small (one business's workers and payments),
// so a full re-read per change is acceptable.
func watch[T any](ctx context.Context, coll *mongo.Collection, callback func(rows []T)) (func(), error) {
	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream on %s: %w", coll.Name(), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)

	emit := func() {
		rows, err := readAll[T](watchCtx, coll)
		if err != nil {
			logging.Error("Failed to re-read collection after change", err, nil)
			return
		}
		callback(rows)
	}

	// Initial snapshot, then one re-read per change event.
	go func() {
		defer stream.Close(context.Background())
		emit()
		for stream.Next(watchCtx) {
			emit()
		}
	}()

	return cancel, nil
}

func readAll[T any](ctx context.Context, coll *mongo.Collection) ([]T, error) {
	cursor, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []T
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func newDocID() string {
	return opid.NewDoc()
}
