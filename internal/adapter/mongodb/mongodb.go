// Package mongodb implements the domain repositories on MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vitalstats/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	statsCollection   = "healthstats"
	usersCollection   = "users"
	revokedCollection = "revoked_tokens"
)

// DB wraps a MongoDB database and implements domain repository interfaces.
type DB struct {
	client  *mongo.Client
	stats   *mongo.Collection
	users   *mongo.Collection
	revoked *mongo.Collection
}

// Ensure interfaces are met.
var _ domain.StatsRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.RevokedTokenRepository = (*RevokedTokenRepo)(nil)

// Open connects to MongoDB, pings, and ensures the indexes exist.
func Open(uri, database string) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	db := client.Database(database)
	d := &DB{
		client:  client,
		stats:   db.Collection(statsCollection),
		users:   db.Collection(usersCollection),
		revoked: db.Collection(revokedCollection),
	}
	if err := d.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return d, nil
}

// Close disconnects the client.
func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.client.Disconnect(ctx)
}

func (d *DB) ensureIndexes(ctx context.Context) error {
	if _, err := d.stats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_user_day"),
		},
		{Keys: bson.D{{Key: "date", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("ensure indexes %s: %w", statsCollection, err)
	}
	if _, err := d.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("ensure indexes %s: %w", usersCollection, err)
	}
	// Expired revocations are also removed by the server's TTL monitor.
	if _, err := d.revoked.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		return fmt.Errorf("ensure indexes %s: %w", revokedCollection, err)
	}
	return nil
}

// translate maps driver errors onto domain sentinels. dup is returned for a
// duplicate key.
func translate(err, dup error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", dup, err)
	default:
		return err
	}
}
