package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"prepaid-meter-cloud/internal/pricing"
	"prepaid-meter-cloud/internal/readings/application/events"
	readings "prepaid-meter-cloud/internal/readings/domain"
)

// EventPublisher emits domain events onto the in-process bus.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns current time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NewReading carries the caller-supplied fields of a reading. Cost is
// derived from the tariff; callers cannot set it.
type NewReading struct {
	UserID         string
	Timestamp      time.Time
	EnergyKWh      decimal.Decimal
	PowerKW        decimal.Decimal
	Voltage        *decimal.Decimal
	Current        *decimal.Decimal
	BatteryPercent *int
	BatteryStatus  string
}

// IngestService validates and stores meter readings and publishes
// ReadingRecorded events.
type IngestService struct {
	repo   readings.ReadingRepository
	tariff pricing.Tariff
	bus    EventPublisher
	clock  Clock
}

// NewIngestService constructs an ingest service.
func NewIngestService(repo readings.ReadingRepository, tariff pricing.Tariff, bus EventPublisher, clock Clock) (*IngestService, error) {
	if repo == nil {
		return nil, errors.New("ingest service: nil repository")
	}
	if bus == nil {
		return nil, errors.New("ingest service: nil event publisher")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &IngestService{repo: repo, tariff: tariff, bus: bus, clock: clock}, nil
}

// Record validates a single reading, derives its cost, stores it, and
// publishes a ReadingRecorded event. Validation failures reject the input
// before any write.
func (s *IngestService) Record(ctx context.Context, input NewReading) (*readings.Reading, error) {
	reading, err := s.build(input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, *reading); err != nil {
		return nil, err
	}
	if err := s.publish(ctx, *reading); err != nil {
		return nil, err
	}
	return reading, nil
}

// RecordBatch stores multiple readings at once. The whole batch is
// validated up front; nothing is written if any entry is invalid.
func (s *IngestService) RecordBatch(ctx context.Context, inputs []NewReading) ([]readings.Reading, error) {
	if len(inputs) == 0 {
		return nil, errors.New("ingest service: empty batch")
	}
	batch := make([]readings.Reading, 0, len(inputs))
	for _, input := range inputs {
		reading, err := s.build(input)
		if err != nil {
			return nil, err
		}
		batch = append(batch, *reading)
	}
	if err := s.repo.InsertBatch(ctx, batch); err != nil {
		return nil, err
	}
	for _, reading := range batch {
		if err := s.publish(ctx, reading); err != nil {
			return nil, err
		}
	}
	return batch, nil
}

// Latest returns the newest reading for a user.
func (s *IngestService) Latest(ctx context.Context, userID string) (*readings.Reading, error) {
	if userID == "" {
		return nil, readings.ErrEmptyUserID
	}
	return s.repo.Latest(ctx, userID)
}

func (s *IngestService) build(input NewReading) (*readings.Reading, error) {
	now := s.clock.Now().UTC()
	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = now
	}
	reading := readings.Reading{
		ID:             uuid.NewString(),
		UserID:         input.UserID,
		Timestamp:      timestamp.UTC(),
		EnergyKWh:      input.EnergyKWh,
		PowerKW:        input.PowerKW,
		Cost:           s.tariff.Cost(input.EnergyKWh),
		Voltage:        input.Voltage,
		Current:        input.Current,
		BatteryPercent: input.BatteryPercent,
		BatteryStatus:  input.BatteryStatus,
		CreatedAt:      now,
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}
	return &reading, nil
}

func (s *IngestService) publish(ctx context.Context, reading readings.Reading) error {
	return s.bus.Publish(ctx, events.ReadingRecorded{
		ReadingID:  reading.ID,
		UserID:     reading.UserID,
		Timestamp:  reading.Timestamp,
		EnergyKWh:  reading.EnergyKWh,
		PowerKW:    reading.PowerKW,
		Cost:       reading.Cost,
		OccurredAt: s.clock.Now().UTC(),
	})
}
