// Package service defines the backend-agnostic interfaces for the two remote
// services the sync talks to.
package service

import (
	"context"
	"time"
)

// Source is the structured-data workspace holding task records.
// The reconciler never imports the Notion client directly.
type Source interface {
	// DataSourceID retrieves a collection's metadata and returns the id of
	// its queryable data source.
	DataSourceID(ctx context.Context, collectionID string) (string, error)

	// Query returns the records of a data source in store order.
	// When since is non-zero only records edited at or after it are returned.
	Query(ctx context.Context, dataSourceID string, since time.Time) ([]Record, error)

	// SetEventID writes the correspondence id onto a record.
	// An empty eventID clears it.
	SetEventID(ctx context.Context, recordID, eventID string) error
}

// Calendar is the destination calendar service.
type Calendar interface {
	// ListCalendars returns every calendar of the authenticated account.
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)

	// CreateCalendar creates a calendar and returns its id.
	CreateCalendar(ctx context.Context, name, timeZone string) (string, error)

	// InsertEvent creates an event and returns its id.
	InsertEvent(ctx context.Context, calendarID string, event Event) (string, error)

	// UpdateEvent replaces an existing event.
	UpdateEvent(ctx context.Context, calendarID, eventID string, event Event) error

	// DeleteEvent deletes an event.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
