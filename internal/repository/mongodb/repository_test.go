package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

func TestSyncReports(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	report := models.SyncReport{
		ID:           "report-1",
		GeneratedAt:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Machines:     4,
		CacheVersion: 17,
	}

	mt.Run("save", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoDBRepositoryFromClient(mt.Client, "vendsync")

		require.NoError(mt, repo.SaveSyncReport(context.Background(), report))
	})

	mt.Run("save duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		repo := NewMongoDBRepositoryFromClient(mt.Client, "vendsync")

		err := repo.SaveSyncReport(context.Background(), report)
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to insert sync report")
	})

	mt.Run("latest", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + syncReportsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "report-1"},
			{Key: "machines", Value: 4},
			{Key: "cache_version", Value: int64(17)},
		}))
		repo := NewMongoDBRepositoryFromClient(mt.Client, mt.DB.Name())

		got, err := repo.LatestSyncReport(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, "report-1", got.ID)
		assert.Equal(mt, 4, got.Machines)
		assert.EqualValues(mt, 17, got.CacheVersion)
	})

	mt.Run("latest empty", func(mt *mtest.T) {
		ns := mt.DB.Name() + "." + syncReportsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewMongoDBRepositoryFromClient(mt.Client, mt.DB.Name())

		_, err := repo.LatestSyncReport(context.Background())
		assert.ErrorIs(mt, err, models.ErrNoSyncReports)
	})
}
