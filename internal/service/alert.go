package service

import (
	"log"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Alerter escalates conditions that must reach an operator. Today there is
// exactly one such condition: a claimed driver that could not be returned to
// the queue, which silently shrinks the driver pool if nobody notices.
type Alerter interface {
	CompensationFailure(bookingID, driverID string, err error)
}

// NewRelicAlerter reports alerts as New Relic custom events, with a log line
// as the always-on fallback.
type NewRelicAlerter struct {
	app *newrelic.Application
}

// NewNewRelicAlerter creates a new NewRelicAlerter. A nil application is
// allowed; alerts then only reach the log.
func NewNewRelicAlerter(app *newrelic.Application) *NewRelicAlerter {
	return &NewRelicAlerter{app: app}
}

// CompensationFailure reports a failed driver re-enqueue.
func (a *NewRelicAlerter) CompensationFailure(bookingID, driverID string, err error) {
	log.Printf("[ALERT] compensation failure: booking=%s driver=%s err=%v", bookingID, driverID, err)

	if a.app != nil {
		a.app.RecordCustomEvent("DispatchCompensationFailure", map[string]interface{}{
			"bookingId": bookingID,
			"driverId":  driverID,
			"error":     err.Error(),
		})
	}
}

// Ensure NewRelicAlerter implements Alerter.
var _ Alerter = (*NewRelicAlerter)(nil)
