// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"notioncal/internal/service"
)

// NotFound is the error a fake returns for an unknown event.
func NotFound() error {
	return &service.APIError{Service: "calendar", Code: http.StatusNotFound}
}

// Gone is the error a fake returns for an event that was already deleted.
func Gone() error {
	return &service.APIError{Service: "calendar", Code: http.StatusGone}
}

// CallLog records the mutating calls made against fakes, in order.
type CallLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *CallLog) add(format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

// Calls returns a copy of the recorded calls.
func (l *CallLog) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// NewFakes returns a source and a calendar sharing one call log.
func NewFakes() (*FakeSource, *FakeCalendar, *CallLog) {
	log := &CallLog{}
	src := NewFakeSource()
	src.Log = log
	cal := NewFakeCalendar()
	cal.Log = log
	return src, cal, log
}

// FakeSource is an in-memory implementation of service.Source for testing.
type FakeSource struct {
	mu          sync.RWMutex
	dataSources map[string]string // collectionID -> dataSourceID
	records     map[string][]service.Record

	// Log receives "patch <record> <eventID>" entries.
	Log *CallLog

	// LastSince is the since value of the most recent Query.
	LastSince time.Time

	// Error injection for testing
	DataSourceErr map[string]error // collectionID -> error
	QueryErr      map[string]error // dataSourceID -> error
	SetEventIDErr error
}

// NewFakeSource creates an empty FakeSource.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		dataSources:   make(map[string]string),
		records:       make(map[string][]service.Record),
		DataSourceErr: make(map[string]error),
		QueryErr:      make(map[string]error),
	}
}

// AddCollection registers a collection whose single data source has the given id.
// An empty dataSourceID registers a collection without a data source.
func (f *FakeSource) AddCollection(collectionID, dataSourceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataSources[collectionID] = dataSourceID
}

// AddRecord appends a record to a data source.
func (f *FakeSource) AddRecord(dataSourceID string, r service.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[dataSourceID] = append(f.records[dataSourceID], r)
}

// EventID returns the stored correspondence id of a record.
func (f *FakeSource) EventID(recordID string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, recs := range f.records {
		for _, r := range recs {
			if r.ID == recordID {
				return r.EventID, true
			}
		}
	}
	return "", false
}

// DataSourceID implements service.Source.
func (f *FakeSource) DataSourceID(ctx context.Context, collectionID string) (string, error) {
	if err := f.DataSourceErr[collectionID]; err != nil {
		return "", err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	id, ok := f.dataSources[collectionID]
	if !ok {
		return "", &service.APIError{Service: "notion", Code: http.StatusNotFound}
	}
	if id == "" {
		return "", service.ErrNoDataSource
	}
	return id, nil
}

// Query implements service.Source.
func (f *FakeSource) Query(ctx context.Context, dataSourceID string, since time.Time) ([]service.Record, error) {
	if err := f.QueryErr[dataSourceID]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastSince = since

	var result []service.Record
	for _, r := range f.records[dataSourceID] {
		if !since.IsZero() && r.LastEdited.Before(since) {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

// SetEventID implements service.Source.
func (f *FakeSource) SetEventID(ctx context.Context, recordID, eventID string) error {
	if f.SetEventIDErr != nil {
		return f.SetEventIDErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for ds, recs := range f.records {
		for i, r := range recs {
			if r.ID == recordID {
				f.records[ds][i].EventID = eventID
				f.Log.add("patch %s %q", recordID, eventID)
				return nil
			}
		}
	}
	return &service.APIError{Service: "notion", Code: http.StatusNotFound}
}

// FakeCalendar is an in-memory implementation of service.Calendar for testing.
type FakeCalendar struct {
	mu        sync.RWMutex
	calendars []service.CalendarInfo
	events    map[string]map[string]service.Event // calendarID -> eventID -> event
	gone      map[string]bool                     // eventIDs deleted before
	nextID    int

	// Log receives "create-calendar", "insert", "update" and "delete" entries.
	Log *CallLog

	// Error injection for testing
	ListCalendarsErr  error
	CreateCalendarErr error
	InsertEventErr    error
	UpdateEventErr    map[string]error // eventID -> error
	DeleteEventErr    map[string]error // eventID -> error

	// InsertReturnsNoID makes InsertEvent succeed without an id.
	InsertReturnsNoID bool
}

// NewFakeCalendar creates a FakeCalendar with only a primary calendar.
func NewFakeCalendar() *FakeCalendar {
	return &FakeCalendar{
		calendars:      []service.CalendarInfo{{ID: "primary", Name: "me@example.com"}},
		events:         make(map[string]map[string]service.Event),
		gone:           make(map[string]bool),
		UpdateEventErr: make(map[string]error),
		DeleteEventErr: make(map[string]error),
	}
}

// AddCalendar adds an existing calendar.
func (f *FakeCalendar) AddCalendar(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calendars = append(f.calendars, service.CalendarInfo{ID: id, Name: name})
	if f.events[id] == nil {
		f.events[id] = make(map[string]service.Event)
	}
}

// AddEvent stores an existing event.
func (f *FakeCalendar) AddEvent(calendarID, eventID string, e service.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.events[calendarID] == nil {
		f.events[calendarID] = make(map[string]service.Event)
	}
	f.events[calendarID][eventID] = e
}

// MarkGone records eventID as deleted, so later calls answer 410.
func (f *FakeCalendar) MarkGone(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gone[eventID] = true
}

// Event returns a stored event.
func (f *FakeCalendar) Event(calendarID, eventID string) (service.Event, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.events[calendarID][eventID]
	return e, ok
}

// Events returns the number of events stored in a calendar.
func (f *FakeCalendar) Events(calendarID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.events[calendarID])
}

// Calendars returns the current calendar list.
func (f *FakeCalendar) Calendars() []service.CalendarInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.CalendarInfo, len(f.calendars))
	copy(out, f.calendars)
	return out
}

// ListCalendars implements service.Calendar.
func (f *FakeCalendar) ListCalendars(ctx context.Context) ([]service.CalendarInfo, error) {
	if f.ListCalendarsErr != nil {
		return nil, f.ListCalendarsErr
	}
	return f.Calendars(), nil
}

// CreateCalendar implements service.Calendar.
func (f *FakeCalendar) CreateCalendar(ctx context.Context, name, timeZone string) (string, error) {
	if f.CreateCalendarErr != nil {
		return "", f.CreateCalendarErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := fmt.Sprintf("cal-%d", f.nextID)
	f.calendars = append(f.calendars, service.CalendarInfo{ID: id, Name: name})
	f.events[id] = make(map[string]service.Event)
	f.Log.add("create-calendar %s %s", name, timeZone)
	return id, nil
}

// InsertEvent implements service.Calendar.
func (f *FakeCalendar) InsertEvent(ctx context.Context, calendarID string, e service.Event) (string, error) {
	if f.InsertEventErr != nil {
		return "", f.InsertEventErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	cal, ok := f.events[calendarID]
	if !ok {
		return "", NotFound()
	}

	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	cal[id] = e
	f.Log.add("insert %s %s", calendarID, e.Summary)
	if f.InsertReturnsNoID {
		return "", nil
	}
	return id, nil
}

// UpdateEvent implements service.Calendar.
func (f *FakeCalendar) UpdateEvent(ctx context.Context, calendarID, eventID string, e service.Event) error {
	f.Log.add("update %s %s", calendarID, eventID)
	if err := f.UpdateEventErr[eventID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gone[eventID] {
		return Gone()
	}
	if _, ok := f.events[calendarID][eventID]; !ok {
		return NotFound()
	}
	f.events[calendarID][eventID] = e
	return nil
}

// DeleteEvent implements service.Calendar.
func (f *FakeCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.Log.add("delete %s %s", calendarID, eventID)
	if err := f.DeleteEventErr[eventID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.gone[eventID] {
		return Gone()
	}
	if _, ok := f.events[calendarID][eventID]; !ok {
		return NotFound()
	}
	delete(f.events[calendarID], eventID)
	f.gone[eventID] = true
	return nil
}
