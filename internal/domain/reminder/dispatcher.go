package reminder

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/platform/notify"
)

// DefaultTickInterval is the polling interval of the dispatch loop. The loop
// only needs minute resolution; the short interval exists so a dose time is
// observed promptly within its minute, not for throughput.
const DefaultTickInterval = time.Second

// DefaultFollowUpCheckTime is the wall-clock minute at which follow-up
// reminders are evaluated each day.
const DefaultFollowUpCheckTime = "09:00"

// Dispatcher runs the background tick loop: on every tick it asks the Manager
// which occurrences are due and delivers each through the Gateway at most
// once. An occurrence is consumed when delivery is attempted, success or not;
// failures are logged and never retried, so a flaky gateway cannot cause
// duplicate delivery storms.
type Dispatcher struct {
	manager   *Manager
	gateway   notify.Gateway
	logger    zerolog.Logger
	interval  time.Duration
	checkTime string

	// fired dedupes occurrences: medication keys carry the calendar day, so a
	// dose fires once per day; follow-up keys carry the offset, so a
	// (schedule, daysBefore) pair fires once ever. Only the loop goroutine
	// touches it.
	fired    map[string]struct{}
	firedDay string

	stopCh   chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher with the default tick interval and
// follow-up check time.
func NewDispatcher(manager *Manager, gateway notify.Gateway, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		manager:   manager,
		gateway:   gateway,
		logger:    logger.With().Str("component", "reminder-dispatcher").Logger(),
		interval:  DefaultTickInterval,
		checkTime: DefaultFollowUpCheckTime,
		fired:     make(map[string]struct{}),
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// SetFollowUpCheckTime overrides the daily follow-up check minute. Must be
// called before Start.
func (d *Dispatcher) SetFollowUpCheckTime(hhmm string) error {
	if err := ValidateClockTime(hhmm); err != nil {
		return err
	}
	d.checkTime = hhmm
	return nil
}

// Start launches the tick loop in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info().
		Dur("interval", d.interval).
		Str("followup_check_time", d.checkTime).
		Msg("starting reminder dispatcher")
	go d.run(ctx)
}

// Stop signals the loop to exit. The loop observes the signal within one tick
// interval; an in-flight delivery is never interrupted.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

func (d *Dispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Tick(ctx)
		case <-d.stopCh:
			d.logger.Info().Msg("reminder dispatcher stopped")
			return
		case <-ctx.Done():
			d.logger.Info().Msg("reminder dispatcher cancelled")
			return
		}
	}
}

// Tick evaluates and delivers everything due at the current wall-clock time.
// Exposed so callers (and tests) can drive the loop with their own clock.
func (d *Dispatcher) Tick(ctx context.Context) {
	now := d.now()
	d.pruneFired(now)

	for _, occ := range d.manager.collectDue(now, d.checkTime) {
		if _, done := d.fired[occ.key]; done {
			continue
		}
		// Consume before delivering: at-most-once, a failed delivery is not
		// re-fired later in the same minute.
		d.fired[occ.key] = struct{}{}
		d.deliver(ctx, occ)
	}
}

// deliver sends one occurrence, isolating panics and errors so a single bad
// delivery cannot take down the loop or block the rest of the tick.
func (d *Dispatcher) deliver(ctx context.Context, occ occurrence) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Str("occurrence", occ.key).Interface("panic", r).Msg("panic during reminder delivery")
		}
	}()

	var err error
	switch occ.kind {
	case occurrenceMedication:
		err = d.gateway.DeliverMedicationReminder(ctx, occ.recipient, occ.medicationName, occ.dosage, occ.whenLabel, occ.notes)
	case occurrenceFollowUp:
		err = d.gateway.DeliverFollowUpReminder(ctx, occ.appointmentType, occ.appointmentDate, occ.appointmentTime, occ.location, occ.notes)
	}

	if err != nil {
		d.logger.Error().Err(err).Str("occurrence", occ.key).Msg("reminder delivery failed")
		return
	}
	d.logger.Info().Str("occurrence", occ.key).Msg("reminder delivered")
}

// pruneFired drops medication dedup entries from previous days once the
// calendar day changes. Follow-up entries are kept for the process lifetime;
// each can fire only once anyway.
func (d *Dispatcher) pruneFired(now time.Time) {
	today := now.Format("2006-01-02")
	if d.firedDay == today {
		return
	}
	d.firedDay = today
	for key := range d.fired {
		if strings.HasPrefix(key, "med|") && !strings.HasSuffix(key, today) {
			delete(d.fired, key)
		}
	}
}
