package mongodb

import (
	"errors"
	"testing"
	"time"

	"vitalstats/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestTranslate(t *testing.T) {
	dupErr := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}

	if err := translate(mongo.ErrNoDocuments, domain.ErrDuplicateRecord); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := translate(dupErr, domain.ErrDuplicateRecord); !errors.Is(err, domain.ErrDuplicateRecord) {
		t.Errorf("expected ErrDuplicateRecord, got %v", err)
	}
	if err := translate(dupErr, domain.ErrUserExists); !errors.Is(err, domain.ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
	boom := errors.New("server selection timeout")
	if err := translate(boom, domain.ErrDuplicateRecord); err != boom {
		t.Errorf("expected error to pass through, got %v", err)
	}
}

func TestStatsDocRoundTrip(t *testing.T) {
	pulse, bp := 72, "120/80"
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := &domain.HealthStatsRecord{
		ID:     "r1",
		UserID: "u1",
		Date:   day,
		Vitals: domain.Vitals{PulseRate: &pulse, BloodPressure: &bp},
	}

	raw, err := bson.Marshal(toStatsDoc(rec))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	doc := bson.Raw(raw)
	if _, err := doc.LookupErr("vitals", "bloodOxygen"); err == nil {
		t.Error("absent readings must not be stored")
	}
	if _, err := doc.LookupErr("vitals", "pulseRate"); err != nil {
		t.Errorf("expected camelCase pulseRate field: %v", err)
	}

	var decoded statsDoc
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal doc: %v", err)
	}
	got := decoded.record()
	if !got.Date.Equal(day) || *got.Vitals.PulseRate != 72 || *got.Vitals.BloodPressure != "120/80" {
		t.Errorf("unexpected record %+v", got)
	}
}
