// internal/database/mongodb.go
package database

import (
	"context"
	"fmt"
	"time"

	"abiahub/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	database := client.Database(cfg.DatabaseName)

	logrus.WithField("database", cfg.DatabaseName).Info("connected to MongoDB")

	return &MongoDB{
		Client:   client,
		Database: database,
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting from MongoDB: %w", err)
	}
	return nil
}

// CreateIndexes creates indexes for all collections.
// NOTE: bson.D is used instead of maps to preserve key order in compound keys.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "lga_id", Value: 1}},
		},
	}
	if _, err := m.Database.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}

	reportIndexes := []mongo.IndexModel{
		{
			// Compound index for the main list filters
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "category", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "reporter_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "lga_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "priority", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "payment_status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "tx_ref", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "submission_channel", Value: 1}},
		},
		{
			// Text index for free text search over title/description/address
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "address", Value: "text"},
			},
		},
	}
	if _, err := m.Database.Collection("reports").Indexes().CreateMany(ctx, reportIndexes); err != nil {
		return fmt.Errorf("creating report indexes: %w", err)
	}

	proposalIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "author_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "lga_id", Value: 1}},
		},
	}
	if _, err := m.Database.Collection("proposals").Indexes().CreateMany(ctx, proposalIndexes); err != nil {
		return fmt.Errorf("creating proposal indexes: %w", err)
	}

	requestIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "applicant_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "service_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "lga_id", Value: 1}},
		},
	}
	if _, err := m.Database.Collection("service_requests").Indexes().CreateMany(ctx, requestIndexes); err != nil {
		return fmt.Errorf("creating service request indexes: %w", err)
	}

	rewardIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "action_type", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "reference_id", Value: 1},
				{Key: "reference_type", Value: 1},
			},
		},
	}
	if _, err := m.Database.Collection("rewards").Indexes().CreateMany(ctx, rewardIndexes); err != nil {
		return fmt.Errorf("creating reward indexes: %w", err)
	}

	notificationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "is_read", Value: 1},
			},
		},
	}
	if _, err := m.Database.Collection("notifications").Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		return fmt.Errorf("creating notification indexes: %w", err)
	}

	deviceTokenIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.Database.Collection("device_tokens").Indexes().CreateMany(ctx, deviceTokenIndexes); err != nil {
		return fmt.Errorf("creating device token indexes: %w", err)
	}

	auditIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "entity", Value: 1},
				{Key: "entity_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "action", Value: 1}},
		},
	}
	if _, err := m.Database.Collection("audit_logs").Indexes().CreateMany(ctx, auditIndexes); err != nil {
		return fmt.Errorf("creating audit log indexes: %w", err)
	}

	lgaIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.Database.Collection("lgas").Indexes().CreateMany(ctx, lgaIndexes); err != nil {
		return fmt.Errorf("creating LGA indexes: %w", err)
	}

	ussdIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Abandoned USSD sessions expire after an hour
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(3600),
		},
	}
	if _, err := m.Database.Collection("ussd_sessions").Indexes().CreateMany(ctx, ussdIndexes); err != nil {
		return fmt.Errorf("creating USSD session indexes: %w", err)
	}

	logrus.Info("MongoDB indexes created")
	return nil
}
