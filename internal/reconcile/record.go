package reconcile

import (
	"context"

	"go.uber.org/zap"

	"notioncal/internal/service"
)

// UntitledTask replaces an empty record title.
const UntitledTask = "Untitled"

// DescriptionPrefix starts the description of every synced event.
const DescriptionPrefix = "Synced from Notion database: "

// Status is the classification of a record.
type Status int

const (
	StatusActive Status = iota
	StatusDone
)

func (s Status) String() string {
	if s == StatusDone {
		return "done"
	}
	return "active"
}

// Classify returns StatusDone iff the record's status is exactly "Done".
func Classify(rec service.Record) Status {
	if rec.Status == service.StatusDone {
		return StatusDone
	}
	return StatusActive
}

// Validate rejects records whose schema lacks a required property.
func Validate(rec service.Record) error {
	if len(rec.Missing) > 0 {
		return &service.SchemaError{RecordID: rec.ID, Missing: rec.Missing}
	}
	return nil
}

// BuildEvent renders a scheduled record as a calendar event.
// A start without a time of day yields an all-day event; otherwise both ends
// carry timeZone. A missing end defaults to the start.
func BuildEvent(rec service.Record, target service.SyncTarget, timeZone string) service.Event {
	event := service.Event{
		Summary:     title(rec),
		Description: DescriptionPrefix + target.CalendarName,
	}
	if rec.Due == nil {
		return event
	}

	start, end := rec.Due.Start, rec.Due.End
	if end == "" {
		end = start
	}

	if rec.Due.AllDay() {
		event.Start = service.EventTime{Date: start}
		event.End = service.EventTime{Date: end}
	} else {
		event.Start = service.EventTime{DateTime: start, TimeZone: timeZone}
		event.End = service.EventTime{DateTime: end, TimeZone: timeZone}
	}
	return event
}

// Upsert creates the record's event, or updates it when the record already
// carries an event id. Records without a due date are left alone.
func (r *Reconciler) Upsert(ctx context.Context, calendarID string, target service.SyncTarget, rec service.Record) Outcome {
	log := r.recordLogger(calendarID, rec)

	if rec.Due == nil {
		log.Debug("no due date, not scheduling")
		return OutcomeUnscheduled
	}

	event := BuildEvent(rec, target, r.opts.TimeZone)

	if rec.EventID == "" {
		id, err := r.calendar.InsertEvent(ctx, calendarID, event)
		if err != nil {
			log.Error("failed to create event", zap.Error(err))
			return OutcomeFailed
		}
		if id == "" {
			log.Warn("event created without an id, not linking")
			return OutcomeCreated
		}
		if err := r.source.SetEventID(ctx, rec.ID, id); err != nil {
			log.Error("created event but failed to store its id", zap.String("event_id", id), zap.Error(err))
			return OutcomeFailed
		}
		log.Info("created event", zap.String("event_id", id))
		return OutcomeCreated
	}

	log = log.With(zap.String("event_id", rec.EventID))
	err := r.calendar.UpdateEvent(ctx, calendarID, rec.EventID, event)
	switch {
	case err == nil:
		log.Info("updated event")
		return OutcomeUpdated
	case service.IsNotFound(err) || service.IsGone(err):
		log.Warn("event not found in calendar, clearing id for recreation")
		return r.clear(ctx, rec, log, OutcomeHealed)
	default:
		log.Error("failed to update event", zap.Error(err))
		return OutcomeFailed
	}
}

// Remove deletes the record's event and clears its event id. An event that
// is already gone counts as deleted.
func (r *Reconciler) Remove(ctx context.Context, calendarID string, rec service.Record) Outcome {
	if rec.EventID == "" {
		return OutcomeUnchanged
	}
	log := r.recordLogger(calendarID, rec).With(zap.String("event_id", rec.EventID))

	err := r.calendar.DeleteEvent(ctx, calendarID, rec.EventID)
	switch {
	case err == nil:
		log.Info("deleted finished task from calendar")
	case service.IsNotFound(err) || service.IsGone(err):
		log.Info("event already deleted from calendar, clearing id")
	default:
		log.Error("failed to delete event", zap.Error(err))
		return OutcomeFailed
	}
	return r.clear(ctx, rec, log, OutcomeDeleted)
}

// clear empties the record's event id and reports success as ok.
func (r *Reconciler) clear(ctx context.Context, rec service.Record, log *zap.Logger, ok Outcome) Outcome {
	if err := r.source.SetEventID(ctx, rec.ID, ""); err != nil {
		log.Error("failed to clear event id", zap.Error(err))
		return OutcomeFailed
	}
	return ok
}

func (r *Reconciler) recordLogger(calendarID string, rec service.Record) *zap.Logger {
	return r.log.With(
		zap.String("calendar_id", calendarID),
		zap.String("record_id", rec.ID),
		zap.String("task", title(rec)),
	)
}

func title(rec service.Record) string {
	if rec.Title == "" {
		return UntitledTask
	}
	return rec.Title
}
