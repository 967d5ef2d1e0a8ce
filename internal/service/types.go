package service

import (
	"strings"
	"time"
)

// StatusDone is the status value that marks a record as complete.
const StatusDone = "Done"

// SyncTarget pairs one source collection with one destination calendar name.
type SyncTarget struct {
	CollectionID string
	CalendarName string
}

// Record is a task record decoded from the source store.
type Record struct {
	ID         string
	Title      string
	Due        *DueDate // nil when the date property is empty
	Status     string   // "" when there is no status
	EventID    string   // correspondence id, "" when unsynced
	LastEdited time.Time

	// Missing names required properties absent from the record's schema.
	Missing []string
}

// DueDate holds the raw date strings as returned by the source.
type DueDate struct {
	Start string
	End   string // optional
}

// AllDay reports whether the start carries no time of day.
func (d DueDate) AllDay() bool {
	return !strings.Contains(d.Start, "T")
}

// CalendarInfo is a destination calendar.
type CalendarInfo struct {
	ID   string
	Name string
}

// Event is the destination representation of a record.
type Event struct {
	Summary     string
	Description string
	Start       EventTime
	End         EventTime
}

// EventTime is either a date (all-day) or a date-time with a time zone.
type EventTime struct {
	Date     string
	DateTime string
	TimeZone string
}
