package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

const (
	snapshotsCollection = "overview_snapshots"
	alertsCollection    = "alerts"
)

// Repository defines the history storage used by scheduled runs.
type Repository interface {
	SaveOverviewSnapshot(ctx context.Context, snapshot models.OverviewSnapshot) error
	SaveAlerts(ctx context.Context, alerts []models.Alert) (int, error)
	ListAlerts(ctx context.Context, orgID string, since time.Time) ([]models.Alert, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository connects, verifies the connection and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{client: client, dbName: dbName}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection(snapshotsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create snapshot index: %w", err)
	}
	_, err = r.collection(alertsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create alert index: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// SaveOverviewSnapshot stores an overview computed by a scheduled run.
func (r *MongoDBRepository) SaveOverviewSnapshot(ctx context.Context, snapshot models.OverviewSnapshot) error {
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection(snapshotsCollection).InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert overview snapshot: %w", err)
	}
	return nil
}

// SaveAlerts stores alerts keyed by their id. Alerts already stored are skipped; the number of
// newly stored alerts is returned.
func (r *MongoDBRepository) SaveAlerts(ctx context.Context, alerts []models.Alert) (int, error) {
	if len(alerts) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, len(alerts))
	for i, a := range alerts {
		docs[i] = a
	}

	res, err := r.collection(alertsCollection).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) && onlyDuplicates(bulkErr) {
			if res == nil {
				return 0, nil
			}
			// InsertedIDs already excludes the documents that failed.
			return len(res.InsertedIDs), nil
		}
		return 0, fmt.Errorf("failed to insert alerts: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// ListAlerts returns the alerts of an organization created since the given time, newest first.
func (r *MongoDBRepository) ListAlerts(ctx context.Context, orgID string, since time.Time) ([]models.Alert, error) {
	cur, err := r.collection(alertsCollection).Find(ctx,
		bson.M{"org_id": orgID, "created_at": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find alerts: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.Alert
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}
	return out, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func onlyDuplicates(err mongo.BulkWriteException) bool {
	if err.WriteConcernError != nil || len(err.WriteErrors) == 0 {
		return false
	}
	for _, we := range err.WriteErrors {
		if we.Code != 11000 {
			return false
		}
	}
	return true
}
