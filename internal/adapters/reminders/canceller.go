// Package reminders bridges to the platform notification scheduler.
// The CLI build only records cancellations as analytics events; the
// mobile shell swaps in its own implementation of the port.
package reminders

import (
	"context"
	"time"

	"github.com/ldeneuve/felicare/internal/ports"
)

type EventCanceller struct {
	sink ports.AnalyticsSink
}

var _ ports.ReminderCanceller = (*EventCanceller)(nil)

func NewEventCanceller(sink ports.AnalyticsSink) *EventCanceller {
	return &EventCanceller{sink: sink}
}

func (c *EventCanceller) CancelReminder(_ context.Context, scheduleID string, slot time.Time) error {
	c.sink.Emit("reminder_cancelled", map[string]any{
		"schedule_id": scheduleID,
		"slot":        slot.Format(time.RFC3339),
	})
	return nil
}
