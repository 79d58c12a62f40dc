package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/aquafarm/internal/domain/models"
)

func TestOnlyDuplicates(t *testing.T) {
	dup := mongo.BulkWriteError{WriteError: mongo.WriteError{Code: 11000}}
	other := mongo.BulkWriteError{WriteError: mongo.WriteError{Code: 121}}

	assert.True(t, onlyDuplicates(mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{dup, dup}}))
	assert.False(t, onlyDuplicates(mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{dup, other}}))
	assert.False(t, onlyDuplicates(mongo.BulkWriteException{}))
	assert.False(t, onlyDuplicates(mongo.BulkWriteException{
		WriteErrors:       []mongo.BulkWriteError{dup},
		WriteConcernError: &mongo.WriteConcernError{Code: 64},
	}))
}

func sampleAlerts(ids ...string) []models.Alert {
	out := make([]models.Alert, len(ids))
	for i, id := range ids {
		out[i] = models.Alert{
			ID:        id,
			Kind:      models.AlertAnomaly,
			OrgID:     "farm-1",
			SystemID:  "tank-1",
			Parameter: "feeding_amount",
			Severity:  models.SeverityWarning,
			Date:      time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC),
		}
	}
	return out
}

func repoFor(mt *mtest.T) *MongoDBRepository {
	return &MongoDBRepository{client: mt.Client, dbName: mt.DB.Name()}
}

func TestSaveAlerts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("all new", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		stored, err := repoFor(mt).SaveAlerts(context.Background(), sampleAlerts("a1", "a2", "a3"))
		require.NoError(mt, err)
		assert.Equal(mt, 3, stored)
	})

	mt.Run("already stored alerts are skipped", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(
			mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"},
			mtest.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key error"},
		))

		stored, err := repoFor(mt).SaveAlerts(context.Background(), sampleAlerts("a1", "a2", "a3"))
		require.NoError(mt, err)
		assert.Equal(mt, 1, stored)
	})

	mt.Run("every alert already stored", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(
			mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"},
			mtest.WriteError{Index: 1, Code: 11000, Message: "E11000 duplicate key error"},
		))

		stored, err := repoFor(mt).SaveAlerts(context.Background(), sampleAlerts("a1", "a2"))
		require.NoError(mt, err)
		assert.Equal(mt, 0, stored)
	})

	mt.Run("other write errors are returned", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(
			mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"},
			mtest.WriteError{Index: 1, Code: 121, Message: "Document failed validation"},
		))

		stored, err := repoFor(mt).SaveAlerts(context.Background(), sampleAlerts("a1", "a2"))
		require.Error(mt, err)
		assert.Zero(mt, stored)
		assert.Contains(mt, err.Error(), "failed to insert alerts")

		var bulkErr mongo.BulkWriteException
		assert.True(mt, errors.As(err, &bulkErr))
	})

	mt.Run("nothing to store", func(mt *mtest.T) {
		stored, err := repoFor(mt).SaveAlerts(context.Background(), nil)
		require.NoError(mt, err)
		assert.Zero(mt, stored)
	})
}

func TestListAlerts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes stored alerts", func(mt *mtest.T) {
		created := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
		ns := mt.DB.Name() + "." + alertsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "a2"},
				{Key: "kind", Value: "predictive"},
				{Key: "org_id", Value: "farm-1"},
				{Key: "system_id", Value: "tank-2"},
				{Key: "parameter", Value: "ammonia"},
				{Key: "severity", Value: "critical"},
				{Key: "observed", Value: 0.09},
				{Key: "created_at", Value: created},
			},
			bson.D{
				{Key: "_id", Value: "a1"},
				{Key: "kind", Value: "anomaly"},
				{Key: "org_id", Value: "farm-1"},
				{Key: "created_at", Value: created.Add(-time.Hour)},
			},
		))

		got, err := repoFor(mt).ListAlerts(context.Background(), "farm-1", created.AddDate(0, 0, -7))
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "a2", got[0].ID)
		assert.Equal(mt, models.AlertPredictive, got[0].Kind)
		assert.Equal(mt, models.SeverityCritical, got[0].Severity)
		assert.Equal(mt, 0.09, got[0].Observed)
		assert.True(mt, created.Equal(got[0].CreatedAt))
		assert.Equal(mt, models.AlertAnomaly, got[1].Kind)
	})

	mt.Run("query failure is wrapped", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized on aquafarm",
		}))

		_, err := repoFor(mt).ListAlerts(context.Background(), "farm-1", time.Now())
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "find alerts")

		var cmdErr mongo.CommandError
		require.True(mt, errors.As(err, &cmdErr))
		assert.Equal(mt, int32(13), cmdErr.Code)
	})
}
