package mongodb

import (
	"context"
	"time"

	"vitalstats/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (d *DB) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := d.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return doc.user(), nil
}

// GetByUsername retrieves a user by username.
func (d *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return d.findUser(ctx, bson.M{"username": username})
}

// GetByID retrieves a user by ID.
func (d *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return d.findUser(ctx, bson.M{"_id": id})
}

// Create creates a new user.
func (d *DB) Create(ctx context.Context, u *domain.User) error {
	_, err := d.users.InsertOne(ctx, toUserDoc(u))
	return translate(err, domain.ErrUserExists)
}

// List returns all users in registration order.
func (d *DB) List(ctx context.Context) ([]domain.User, error) {
	cur, err := d.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, *doc.user())
	}
	return users, nil
}

// Delete removes the user, then their records. Without a transaction a
// failure between the two leaves orphaned records that no session can reach;
// deleting again finishes the job.
func (d *DB) Delete(ctx context.Context, id string) error {
	res, err := d.users.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if _, err := d.stats.DeleteMany(ctx, bson.M{"userId": id}); err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProfile applies the non-nil fields of upd to the user.
func (d *DB) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate, updatedAt time.Time) (*domain.User, error) {
	set := bson.M{"updatedAt": updatedAt.UTC()}
	if upd.FullName != nil {
		set["fullName"] = *upd.FullName
	}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.DateOfBirth != nil {
		set["dateOfBirth"] = upd.DateOfBirth.UTC()
	}
	if upd.Gender != nil {
		set["gender"] = *upd.Gender
	}
	if upd.Weight != nil {
		set["weight"] = *upd.Weight
	}
	if upd.Height != nil {
		set["height"] = *upd.Height
	}
	if upd.PasswordHash != nil {
		set["passwordHash"] = *upd.PasswordHash
	}

	var doc userDoc
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := d.users.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return nil, translate(err, domain.ErrUserExists)
	}
	return doc.user(), nil
}

// RevokedTokenRepo implements revoked token persistence on DB.
type RevokedTokenRepo struct {
	db *DB
}

// NewRevokedTokenRepo wraps a DB as a RevokedTokenRepository.
func NewRevokedTokenRepo(db *DB) *RevokedTokenRepo {
	return &RevokedTokenRepo{db: db}
}

// Revoke records a token ID as revoked until expiresAt.
func (r *RevokedTokenRepo) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := r.db.revoked.ReplaceOne(ctx,
		bson.M{"_id": tokenID},
		revokedDoc{TokenID: tokenID, ExpiresAt: expiresAt.UTC()},
		options.Replace().SetUpsert(true),
	)
	return err
}

// IsRevoked reports whether the token ID has been revoked.
func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.db.revoked.CountDocuments(ctx, bson.M{"_id": tokenID}, options.Count().SetLimit(1))
	return n > 0, err
}

// DeleteExpired deletes revocations whose token has expired.
func (r *RevokedTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.revoked.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now.UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
