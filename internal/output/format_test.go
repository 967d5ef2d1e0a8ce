package output_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"notioncal/internal/output"
	"notioncal/internal/reconcile"
	"notioncal/internal/service"
	"notioncal/internal/testutil"
)

func TestFormatReport(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report := reconcile.Report{
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Since:    started.Add(-30 * time.Minute),
		Targets: []reconcile.TargetResult{
			{
				Target:     service.SyncTarget{CollectionID: "db-hw", CalendarName: "Homework"},
				CalendarID: "cal-hw",
				Records:    3,
				Outcomes: map[reconcile.Outcome]int{
					reconcile.OutcomeCreated: 1,
					reconcile.OutcomeUpdated: 1,
					reconcile.OutcomeDeleted: 1,
				},
			},
			{
				Target:     service.SyncTarget{CollectionID: "db-as", CalendarName: "Assessments"},
				CalendarID: "cal-as",
				Records:    2,
				Outcomes: map[reconcile.Outcome]int{
					reconcile.OutcomeFailed:  1,
					reconcile.OutcomeSkipped: 1,
				},
			},
			{
				Target:   service.SyncTarget{CollectionID: "db-q", CalendarName: "Quiz"},
				Outcomes: map[reconcile.Outcome]int{},
				Err:      errors.New("failed to list calendars: boom"),
			},
		},
	}

	var buf bytes.Buffer
	output.FormatReport(&buf, report)
	testutil.Golden(t, "report", buf.String())
}

func TestFormatReport_Aborted(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report := reconcile.Report{
		Started:  started,
		Finished: started,
		Targets: []reconcile.TargetResult{{
			Target:   service.SyncTarget{CollectionID: "db-hw", CalendarName: "Homework"},
			Records:  1,
			Outcomes: map[reconcile.Outcome]int{reconcile.OutcomeHealed: 1},
			Err:      context.Canceled,
		}},
		Critical: context.Canceled,
	}

	var buf bytes.Buffer
	output.FormatReport(&buf, report)
	testutil.Golden(t, "report_aborted", buf.String())
}

func TestFormatTarget_MultilineError(t *testing.T) {
	var buf bytes.Buffer
	output.FormatTarget(&buf, reconcile.TargetResult{
		Target: service.SyncTarget{CalendarName: "  "},
		Err:    errors.New("first\nsecond"),
	})
	assert.Equal(t, "(untitled): 0 records; error: first second\n", buf.String())
}

func TestFormatCalendar(t *testing.T) {
	tests := []struct {
		name string
		cal  service.CalendarInfo
		want string
	}{
		{"simple", service.CalendarInfo{ID: "cal-1", Name: "Homework"}, "Homework  cal-1\n"},
		{"empty name", service.CalendarInfo{ID: "cal-2", Name: ""}, "(untitled)  cal-2\n"},
		{"newline", service.CalendarInfo{ID: "cal-3", Name: "Line1\nLine2"}, "Line1 Line2  cal-3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			output.FormatCalendar(&buf, tt.cal)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
