package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/vendsync/internal/domain/models"
)

const syncReportsCollection = "sync_reports"

// Repository defines the interface for sync report storage.
type Repository interface {
	SaveSyncReport(ctx context.Context, report models.SyncReport) error
	LatestSyncReport(ctx context.Context) (*models.SyncReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return NewMongoDBRepositoryFromClient(client, dbName), nil
}

// NewMongoDBRepositoryFromClient wraps an already connected client.
func NewMongoDBRepositoryFromClient(client *mongo.Client, dbName string) *MongoDBRepository {
	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: syncReportsCollection,
	}
}

// SaveSyncReport saves a sync report to the database.
func (r *MongoDBRepository) SaveSyncReport(ctx context.Context, report models.SyncReport) error {
	_, err := r.collection().InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to insert sync report: %w", err)
	}
	return nil
}

// LatestSyncReport returns the most recently generated report.
func (r *MongoDBRepository) LatestSyncReport(ctx context.Context) (*models.SyncReport, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "generated_at", Value: -1}})

	var report models.SyncReport
	err := r.collection().FindOne(ctx, bson.D{}, opts).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNoSyncReports
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest sync report: %w", err)
	}
	return &report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}
