package application

import (
	"context"
	"errors"
	"fmt"
	"log"

	accounts "prepaid-meter-cloud/internal/accounts/domain"
	alerts "prepaid-meter-cloud/internal/alerts/domain"
	billingevents "prepaid-meter-cloud/internal/billing/application/events"
	readingevents "prepaid-meter-cloud/internal/readings/application/events"
)

// Evaluator turns usage and balance events into threshold alerts. It keeps
// no state between events: every qualifying event raises a fresh alert, and
// a disabled flag suppresses evaluation entirely.
type Evaluator struct {
	settings   SettingsReader
	dispatcher *Dispatcher
	logger     *log.Logger
}

// NewEvaluator constructs an evaluator.
func NewEvaluator(settings SettingsReader, dispatcher *Dispatcher, logger *log.Logger) (*Evaluator, error) {
	if settings == nil {
		return nil, errors.New("alert evaluator: nil settings reader")
	}
	if dispatcher == nil {
		return nil, errors.New("alert evaluator: nil dispatcher")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Evaluator{settings: settings, dispatcher: dispatcher, logger: logger}, nil
}

// HandleReadingRecorded raises a high_usage alert when the reading's energy
// meets or exceeds the user's usage threshold.
func (e *Evaluator) HandleReadingRecorded(ctx context.Context, event any) error {
	evt, ok := event.(readingevents.ReadingRecorded)
	if !ok {
		return fmt.Errorf("alert evaluator: unexpected event %T", event)
	}

	settings, err := e.settingsFor(ctx, evt.UserID)
	if err != nil {
		return err
	}
	if !settings.UsageAlertEnabled {
		return nil
	}
	if evt.EnergyKWh.LessThan(settings.UsageThresholdKWh) {
		return nil
	}

	message := fmt.Sprintf(
		"Your energy usage of %skWh exceeds your threshold of %skWh.",
		evt.EnergyKWh.String(), settings.UsageThresholdKWh.String(),
	)
	alert, err := e.dispatcher.Raise(ctx, evt.UserID, alerts.KindHighUsage, "High Energy Usage Alert", message, map[string]any{
		"reading_id": evt.ReadingID,
		"energy_kwh": evt.EnergyKWh.String(),
		"threshold":  settings.UsageThresholdKWh.String(),
	})
	if err != nil {
		return err
	}
	e.dispatcher.DeliverAll(ctx, alert.ID)
	return nil
}

// HandleBalanceChanged raises a low_balance alert when the new balance is at
// or below the user's low-balance threshold.
func (e *Evaluator) HandleBalanceChanged(ctx context.Context, event any) error {
	evt, ok := event.(billingevents.BalanceChanged)
	if !ok {
		return fmt.Errorf("alert evaluator: unexpected event %T", event)
	}

	settings, err := e.settingsFor(ctx, evt.UserID)
	if err != nil {
		return err
	}
	if !settings.LowBalanceAlertEnabled {
		return nil
	}
	if evt.Balance.GreaterThan(settings.LowBalanceThreshold) {
		return nil
	}

	message := fmt.Sprintf(
		"Your current balance of $%s is below your threshold of $%s. Please top up soon.",
		evt.Balance.String(), settings.LowBalanceThreshold.String(),
	)
	alert, err := e.dispatcher.Raise(ctx, evt.UserID, alerts.KindLowBalance, "Low Balance Alert", message, map[string]any{
		"balance":   evt.Balance.String(),
		"threshold": settings.LowBalanceThreshold.String(),
	})
	if err != nil {
		return err
	}
	e.dispatcher.DeliverAll(ctx, alert.ID)
	return nil
}

func (e *Evaluator) settingsFor(ctx context.Context, userID string) (*accounts.Settings, error) {
	settings, err := e.settings.Get(ctx, userID)
	if errors.Is(err, accounts.ErrNotFound) {
		return accounts.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}
