package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"prepaid-meter-cloud/internal/pricing"
	"prepaid-meter-cloud/internal/readings/application/events"
	readings "prepaid-meter-cloud/internal/readings/domain"
	"prepaid-meter-cloud/internal/readings/infrastructure/memory"
)

type recordingBus struct {
	mu     sync.Mutex
	events []any
}

func (b *recordingBus) Publish(_ context.Context, event any) error {
	b.mu.Lock()
	b.events = append(b.events, event)
	b.mu.Unlock()
	return nil
}

func (b *recordingBus) Recorded() []events.ReadingRecorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []events.ReadingRecorded
	for _, event := range b.events {
		if evt, ok := event.(events.ReadingRecorded); ok {
			result = append(result, evt)
		}
	}
	return result
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*IngestService, *memory.ReadingRepository, *recordingBus) {
	t.Helper()
	repo := memory.NewReadingRepository()
	bus := &recordingBus{}
	tariff := pricing.MustTariff(decimal.RequireFromString("20.00"))
	clock := fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	service, err := NewIngestService(repo, tariff, bus, clock)
	if err != nil {
		t.Fatalf("new ingest service: %v", err)
	}
	return service, repo, bus
}

func TestRecordDerivesCostAndPublishes(t *testing.T) {
	service, repo, bus := newTestService(t)

	reading, err := service.Record(context.Background(), NewReading{
		UserID:    "user-1",
		Timestamp: time.Date(2026, 3, 10, 11, 30, 0, 0, time.UTC),
		EnergyKWh: decimal.RequireFromString("2.5"),
		PowerKW:   decimal.RequireFromString("1.2"),
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if reading.Cost.StringFixed(2) != "50.00" {
		t.Fatalf("expected cost 50.00, got %s", reading.Cost)
	}
	if reading.ID == "" {
		t.Fatal("expected reading id to be assigned")
	}

	stored, err := repo.Latest(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !stored.Cost.Equal(reading.Cost) {
		t.Fatalf("stored cost %s != returned cost %s", stored.Cost, reading.Cost)
	}

	recorded := bus.Recorded()
	if len(recorded) != 1 {
		t.Fatalf("expected one ReadingRecorded event, got %d", len(recorded))
	}
	if recorded[0].ReadingID != reading.ID || !recorded[0].EnergyKWh.Equal(reading.EnergyKWh) {
		t.Fatalf("event does not match reading: %+v", recorded[0])
	}
}

func TestRecordRejectsInvalidInputBeforeWrite(t *testing.T) {
	service, repo, bus := newTestService(t)

	cases := []struct {
		name  string
		input NewReading
		want  error
	}{
		{
			name:  "negative energy",
			input: NewReading{UserID: "user-1", EnergyKWh: decimal.RequireFromString("-1"), PowerKW: decimal.Zero},
			want:  readings.ErrNegativeEnergy,
		},
		{
			name:  "negative power",
			input: NewReading{UserID: "user-1", EnergyKWh: decimal.Zero, PowerKW: decimal.RequireFromString("-0.5")},
			want:  readings.ErrNegativePower,
		},
		{
			name:  "empty user",
			input: NewReading{EnergyKWh: decimal.Zero, PowerKW: decimal.Zero},
			want:  readings.ErrEmptyUserID,
		},
		{
			name:  "bad battery status",
			input: NewReading{UserID: "user-1", EnergyKWh: decimal.Zero, PowerKW: decimal.Zero, BatteryStatus: "exploding"},
			want:  readings.ErrInvalidBatteryStatus,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Record(context.Background(), tc.input)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := repo.Latest(context.Background(), "user-1"); !errors.Is(err, readings.ErrNotFound) {
		t.Fatal("expected no readings written after rejected inputs")
	}
	if len(bus.Recorded()) != 0 {
		t.Fatal("expected no events published after rejected inputs")
	}
}

func TestRecordBatchAllOrNothing(t *testing.T) {
	service, repo, bus := newTestService(t)

	_, err := service.RecordBatch(context.Background(), []NewReading{
		{UserID: "user-1", EnergyKWh: decimal.RequireFromString("1.0"), PowerKW: decimal.RequireFromString("0.5")},
		{UserID: "user-1", EnergyKWh: decimal.RequireFromString("-2"), PowerKW: decimal.Zero},
	})
	if !errors.Is(err, readings.ErrNegativeEnergy) {
		t.Fatalf("expected ErrNegativeEnergy, got %v", err)
	}
	if _, err := repo.Latest(context.Background(), "user-1"); !errors.Is(err, readings.ErrNotFound) {
		t.Fatal("expected nothing written when a batch entry is invalid")
	}

	batch, err := service.RecordBatch(context.Background(), []NewReading{
		{UserID: "user-1", EnergyKWh: decimal.RequireFromString("1.0"), PowerKW: decimal.RequireFromString("0.5")},
		{UserID: "user-1", EnergyKWh: decimal.RequireFromString("2.0"), PowerKW: decimal.RequireFromString("0.7")},
	})
	if err != nil {
		t.Fatalf("record batch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(batch))
	}
	if got := len(bus.Recorded()); got != 2 {
		t.Fatalf("expected 2 events, got %d", got)
	}
}

func TestLatestReturnsNewestByTimestamp(t *testing.T) {
	service, _, _ := newTestService(t)

	older := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for _, ts := range []time.Time{newer, older} {
		if _, err := service.Record(context.Background(), NewReading{
			UserID:    "user-1",
			Timestamp: ts,
			EnergyKWh: decimal.RequireFromString("1"),
			PowerKW:   decimal.RequireFromString("1"),
		}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	latest, err := service.Latest(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !latest.Timestamp.Equal(newer) {
		t.Fatalf("expected latest timestamp %v, got %v", newer, latest.Timestamp)
	}
}
