package storage

import (
	"context"
	"crypto/tls"
	"errors"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	UsersCollection        = "users"
	ItemsCollection        = "items"
	RequestsCollection     = "requests"
	TransactionsCollection = "transactions"
)

// Connect opens a client, pings it and returns the named database.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	if uri == "" {
		return nil, nil, errors.New("mongo uri is empty")
	}

	// Atlas occasionally fails TLS negotiation unless TLS 1.2 is forced.
	opts := options.Client().ApplyURI(uri)
	if opts.TLSConfig != nil {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	logrus.WithField("db", dbName).Info("MongoDB connected")
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the geo, lookup and uniqueness indexes.
// Only the unique email index is required; the rest are best-effort.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "ecoPoints", Value: -1}}},
	})
	if err != nil {
		return err
	}

	bestEffort := map[string][]mongo.IndexModel{
		ItemsCollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
		RequestsCollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		TransactionsCollection: {
			{Keys: bson.D{{Key: "borrower", Value: 1}}},
			{Keys: bson.D{{Key: "lender", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}
	for name, idx := range bestEffort {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			logrus.WithError(err).WithField("collection", name).Warn("index creation failed")
		}
	}
	return nil
}

// IsDuplicateKeyError reports whether err is a unique index violation.
func IsDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
