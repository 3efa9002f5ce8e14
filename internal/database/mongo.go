package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spothole/spothole-api/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo bundles the client with the application database.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// ConnectMongo dials and pings the server.
func ConnectMongo(ctx context.Context, uri, dbName string) (*Mongo, error) {
	start := time.Now()
	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("mongo connected", "uri", RedactURI(uri), "db", dbName, "elapsed", time.Since(start).Round(time.Millisecond).String())
	return &Mongo{Client: c, DB: c.Database(dbName)}, nil
}

func (m *Mongo) Disconnect(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// ReportIndexes are the indexes the pothole collection must carry. The
// 2dsphere index keeps location queryable for point-in-region lookups.
func ReportIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "location", Value: "2dsphere"}},
			Options: options.Index().SetName("location_2dsphere"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	}
}

// EnsureIndexes creates missing indexes. Existing ones are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ictx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var errs []error
	col := db.Collection(store.PotholesCollection)
	for _, model := range ReportIndexes() {
		if _, err := col.Indexes().CreateOne(ictx, model); err != nil {
			errs = append(errs, fmt.Errorf("index %v: %w", model.Keys, err))
		}
	}
	users := db.Collection(store.UsersCollection)
	for _, model := range UserIndexes() {
		if _, err := users.Indexes().CreateOne(ictx, model); err != nil {
			errs = append(errs, fmt.Errorf("index users %v: %w", model.Keys, err))
		}
	}
	return errors.Join(errs...)
}

// UserIndexes keep email unique, as the identity provider assumes.
func UserIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("email_1").SetUnique(true),
		},
	}
}

// RedactURI masks credentials in a connection string.
func RedactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
