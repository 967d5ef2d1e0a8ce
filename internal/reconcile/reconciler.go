// Package reconcile mirrors source task records into destination calendar
// events.
//
// A Reconciler walks the configured targets in order. For each target it
// resolves (or creates) the destination calendar, fetches the records changed
// since the delta threshold, and for every record either deletes its event
// (status Done) or creates/updates it. The event id is written back onto the
// record so later runs update instead of duplicating. After every record the
// loop pauses for the configured interval to stay under the source API's
// rate limit.
//
// Failures are contained as close to their origin as possible: a bad record
// is logged and skipped, a bad target is logged and the next one is tried.
// Only a cancelled context or a panic ends the run early, and even then Run
// returns normally with Report.Critical set.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"notioncal/internal/service"
)

// DefaultTimeZone is used when Options.TimeZone is empty.
const DefaultTimeZone = "America/Guayaquil"

// Options tunes a Reconciler.
type Options struct {
	// TimeZone is applied to created calendars and timed events.
	TimeZone string

	// DeltaWindow limits each query to records edited within it.
	// Zero queries every record.
	DeltaWindow time.Duration

	// Pace is the pause after every processed record.
	Pace time.Duration

	// Now and Sleep replace the clock in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Reconciler syncs source records into calendar events.
type Reconciler struct {
	source   service.Source
	calendar service.Calendar
	targets  []service.SyncTarget
	opts     Options
	log      *zap.Logger
}

// New creates a Reconciler for the given targets.
func New(source service.Source, calendar service.Calendar, targets []service.SyncTarget, opts Options, log *zap.Logger) *Reconciler {
	if opts.TimeZone == "" {
		opts.TimeZone = DefaultTimeZone
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		source:   source,
		calendar: calendar,
		targets:  targets,
		opts:     opts,
		log:      log,
	}
}

// Run performs one sync over every target and never returns an error:
// the outcome is in the Report and in the log.
func (r *Reconciler) Run(ctx context.Context) (report Report) {
	report.Started = r.opts.Now()
	if r.opts.DeltaWindow > 0 {
		report.Since = report.Started.Add(-r.opts.DeltaWindow)
	}

	defer func() {
		if p := recover(); p != nil {
			report.Critical = fmt.Errorf("panic: %v", p)
			r.log.Error("sync failed", zap.Error(report.Critical), zap.Stack("stack"))
		}
		report.Finished = r.opts.Now()
	}()

	if report.Since.IsZero() {
		r.log.Info("starting sync", zap.Int("targets", len(r.targets)), zap.String("delta_filter", "off"))
	} else {
		r.log.Info("starting sync", zap.Int("targets", len(r.targets)), zap.Time("since", report.Since))
	}

	for _, target := range r.targets {
		if err := ctx.Err(); err != nil {
			report.Critical = err
			break
		}
		report.Targets = append(report.Targets, r.syncTarget(ctx, target, report.Since))
		if err := ctx.Err(); err != nil {
			report.Critical = err
			break
		}
	}

	if report.Critical != nil {
		r.log.Error("sync failed", errorFields(report.Critical)...)
		return report
	}

	r.log.Info("sync complete",
		zap.Int("created", report.Count(OutcomeCreated)),
		zap.Int("updated", report.Count(OutcomeUpdated)),
		zap.Int("deleted", report.Count(OutcomeDeleted)),
		zap.Int("healed", report.Count(OutcomeHealed)),
		zap.Int("failed", report.Count(OutcomeFailed)),
	)
	return report
}

func (r *Reconciler) syncTarget(ctx context.Context, target service.SyncTarget, since time.Time) TargetResult {
	res := TargetResult{Target: target, Outcomes: make(map[Outcome]int)}
	log := r.log.With(zap.String("calendar", target.CalendarName), zap.String("collection", target.CollectionID))

	calendarID, err := r.ResolveCalendar(ctx, target)
	if err != nil {
		log.Error("failed to resolve calendar", errorFields(err)...)
		res.Err = err
		return res
	}
	res.CalendarID = calendarID

	records, err := r.FetchChangedRecords(ctx, target.CollectionID, since)
	if err != nil {
		log.Error("failed to fetch changed records", errorFields(err)...)
		res.Err = err
		return res
	}
	log.Info("fetched changed records", zap.Int("count", len(records)))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		res.Records++
		res.Outcomes[r.process(ctx, calendarID, target, rec)]++

		if err := r.pause(ctx); err != nil {
			res.Err = err
			return res
		}
	}

	return res
}

// process validates, classifies and dispatches one record.
func (r *Reconciler) process(ctx context.Context, calendarID string, target service.SyncTarget, rec service.Record) Outcome {
	if err := Validate(rec); err != nil {
		r.log.Error("skipping record", zap.String("record_id", rec.ID), zap.Error(err))
		return OutcomeSkipped
	}

	if Classify(rec) == StatusDone {
		return r.Remove(ctx, calendarID, rec)
	}
	return r.Upsert(ctx, calendarID, target, rec)
}

// ResolveCalendar returns the id of the calendar named after the target,
// creating it when absent.
func (r *Reconciler) ResolveCalendar(ctx context.Context, target service.SyncTarget) (string, error) {
	log := r.log.With(zap.String("calendar", target.CalendarName))

	calendars, err := r.calendar.ListCalendars(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list calendars: %w", err)
	}
	for _, c := range calendars {
		if c.Name == target.CalendarName {
			log.Debug("found existing calendar", zap.String("calendar_id", c.ID))
			return c.ID, nil
		}
	}

	id, err := r.calendar.CreateCalendar(ctx, target.CalendarName, r.opts.TimeZone)
	if err != nil {
		return "", fmt.Errorf("failed to create calendar %q: %w", target.CalendarName, err)
	}
	if id == "" {
		return "", fmt.Errorf("calendar %q was created without an id", target.CalendarName)
	}
	log.Info("created calendar", zap.String("calendar_id", id), zap.String("time_zone", r.opts.TimeZone))
	return id, nil
}

// FetchChangedRecords returns the records of a collection edited at or
// after since, in store order. A zero since returns every record.
func (r *Reconciler) FetchChangedRecords(ctx context.Context, collectionID string, since time.Time) ([]service.Record, error) {
	dataSourceID, err := r.source.DataSourceID(ctx, collectionID)
	if err != nil {
		return nil, &service.ConfigurationError{CollectionID: collectionID, Err: err}
	}

	records, err := r.source.Query(ctx, dataSourceID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query data source %s: %w", dataSourceID, err)
	}
	return records, nil
}

func (r *Reconciler) pause(ctx context.Context) error {
	if r.opts.Pace <= 0 {
		return ctx.Err()
	}
	return r.opts.Sleep(ctx, r.opts.Pace)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// errorFields logs err together with any response payload it carries.
func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	if details := service.Details(err); details != "" {
		fields = append(fields, zap.String("details", details))
	}
	var cfgErr *service.ConfigurationError
	if errors.As(err, &cfgErr) {
		fields = append(fields, zap.Bool("configuration", true))
	}
	return fields
}
