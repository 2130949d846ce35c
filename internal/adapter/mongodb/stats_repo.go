package mongodb

import (
	"context"
	"time"

	"vitalstats/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func dayFilter(userID string, from, to domain.Day) bson.M {
	return bson.M{
		"userId": userID,
		"date":   bson.M{"$gte": from.Start, "$lte": to.End},
	}
}

// Insert stores a new record. The unique (userId, date) index rejects a
// second record for the same day.
func (d *DB) Insert(ctx context.Context, rec *domain.HealthStatsRecord) error {
	_, err := d.stats.InsertOne(ctx, toStatsDoc(rec))
	return translate(err, domain.ErrDuplicateRecord)
}

// FindByDay returns the user's record for the day.
func (d *DB) FindByDay(ctx context.Context, userID string, day domain.Day) (*domain.HealthStatsRecord, error) {
	var doc statsDoc
	if err := d.stats.FindOne(ctx, dayFilter(userID, day, day)).Decode(&doc); err != nil {
		return nil, translate(err, domain.ErrDuplicateRecord)
	}
	rec := doc.record()
	return &rec, nil
}

// FindRange returns the user's records inside the inclusive day range, ascending by date.
func (d *DB) FindRange(ctx context.Context, userID string, from, to domain.Day) ([]domain.HealthStatsRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	return d.findRecords(ctx, dayFilter(userID, from, to), opts)
}

// ListAll returns every record, ascending by date then user.
func (d *DB) ListAll(ctx context.Context) ([]domain.HealthStatsRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "userId", Value: 1}})
	return d.findRecords(ctx, bson.M{}, opts)
}

func (d *DB) findRecords(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.HealthStatsRecord, error) {
	cur, err := d.stats.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []statsDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	recs := make([]domain.HealthStatsRecord, 0, len(docs))
	for _, doc := range docs {
		recs = append(recs, doc.record())
	}
	return recs, nil
}

// Update replaces the vitals and exercise log of the user's record for the
// day in a single document update.
func (d *DB) Update(ctx context.Context, userID string, day domain.Day, vitals domain.Vitals, log domain.ExerciseLog, updatedAt time.Time) (*domain.HealthStatsRecord, error) {
	update := bson.M{"$set": bson.M{
		"vitals":      toVitalsDoc(vitals),
		"exerciseLog": toExerciseDoc(log),
		"updatedAt":   updatedAt.UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc statsDoc
	err := d.stats.FindOneAndUpdate(ctx, dayFilter(userID, day, day), update, opts).Decode(&doc)
	if err != nil {
		return nil, translate(err, domain.ErrDuplicateRecord)
	}
	rec := doc.record()
	return &rec, nil
}
