package cli_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"notioncal/internal/cli"
	"notioncal/internal/config"
	"notioncal/internal/exitcode"
	"notioncal/internal/service"
	"notioncal/internal/testutil"
)

type harness struct {
	src  *testutil.FakeSource
	cal  *testutil.FakeCalendar
	cfg  *config.Config
	logs *observer.ObservedLogs

	loadedDir string
	logLevel  string

	sourceErr   error
	calendarErr error
	built       []string

	dispatcher *cli.Dispatcher
}

func validConfig() *config.Config {
	return &config.Config{
		Notion:   config.NotionConfig{Token: "secret"},
		Google:   config.GoogleConfig{ClientID: "id", ClientSecret: "s", RefreshToken: "r"},
		Database: config.DatabaseConfig{ID1: "db-hw", Name1: "Homework"},
		Sync:     config.SyncConfig{TimeZone: "UTC"},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
}

func newHarness() *harness {
	h := &harness{cfg: validConfig()}
	h.src, h.cal, _ = testutil.NewFakes()
	h.cal.AddCalendar("cal-hw", "Homework")
	h.src.AddCollection("db-hw", "ds-hw")

	core, logs := observer.New(zapcore.DebugLevel)
	h.logs = logs

	h.dispatcher = cli.NewDispatcher(cli.Backends{
		Source: func(ctx context.Context, cfg *config.Config) (service.Source, error) {
			h.built = append(h.built, "source")
			if h.sourceErr != nil {
				return nil, h.sourceErr
			}
			return h.src, nil
		},
		Calendar: func(ctx context.Context, cfg *config.Config) (service.Calendar, error) {
			h.built = append(h.built, "calendar")
			if h.calendarErr != nil {
				return nil, h.calendarErr
			}
			return h.cal, nil
		},
	})
	h.dispatcher.LoadConfig = func(dir string) (*config.Config, error) {
		h.loadedDir = dir
		if h.cfg == nil {
			return nil, errors.New("broken .env")
		}
		return h.cfg, nil
	}
	h.dispatcher.NewLogger = func(cfg config.LogConfig) (*zap.Logger, error) {
		h.logLevel = cfg.Level
		return zap.New(core), nil
	}
	return h
}

func (h *harness) run(ctx context.Context, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := h.dispatcher.Run(ctx, args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestDispatcher_VersionCommand(t *testing.T) {
	h := newHarness()

	code, stdout, stderr := h.run(context.Background(), "version")

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "notioncal 0.1.0\n", stdout)
	assert.Empty(t, stderr)
	assert.Empty(t, h.built)
}

func TestDispatcher_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown command", []string{"unknowncmd"}, `unknown command "unknowncmd"`},
		{"unknown flag", []string{"--quiet"}, "unknown flag: --quiet"},
		{"missing flag value", []string{"--config"}, "flag needs an argument"},
		{"extra argument", []string{"version", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()

			code, stdout, stderr := h.run(context.Background(), tt.args...)

			assert.Equal(t, exitcode.UserError, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "error: ")
			assert.Contains(t, stderr, tt.wantErr)
			assert.Empty(t, h.built)
		})
	}
}

func TestDispatcher_SyncCreatesEvents(t *testing.T) {
	h := newHarness()
	h.src.AddRecord("ds-hw", service.Record{ID: "page-1", Title: "Essay", Due: &service.DueDate{Start: "2024-05-01"}})

	code, stdout, stderr := h.run(context.Background())

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Contains(t, stdout, "Homework: 1 records, 1 created\n")
	assert.Contains(t, stdout, "total: 1 created\n")

	id, _ := h.src.EventID("page-1")
	assert.Equal(t, "evt-1", id)
	assert.Equal(t, []string{"source", "calendar"}, h.built)

	complete := h.logs.FilterMessage("sync complete").All()
	require.Len(t, complete, 1)
	assert.NotEmpty(t, complete[0].ContextMap()["run_id"])
}

func TestDispatcher_SyncExitsZeroOnCriticalError(t *testing.T) {
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	code, stdout, _ := h.run(ctx)

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "aborted: context canceled\n")
}

func TestDispatcher_SyncExitsZeroWhenTargetFails(t *testing.T) {
	h := newHarness()
	h.cal.ListCalendarsErr = errors.New("calendar down")

	code, stdout, _ := h.run(context.Background())

	assert.Equal(t, exitcode.Success, code)
	assert.Contains(t, stdout, "Homework: 0 records; error: failed to list calendars: calendar down\n")
}

func TestDispatcher_SyncConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(h *harness)
		wantErr string
	}{
		{"load fails", func(h *harness) { h.cfg = nil }, "config error: broken .env"},
		{"missing token", func(h *harness) { h.cfg.Notion.Token = "" }, "NOTION_TOKEN"},
		{"no databases", func(h *harness) { h.cfg.Database = config.DatabaseConfig{} }, "no database configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.mutate(h)

			code, stdout, stderr := h.run(context.Background())

			assert.Equal(t, exitcode.ConfigError, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, tt.wantErr)
			assert.Empty(t, h.built)
		})
	}
}

func TestDispatcher_SyncBackendErrors(t *testing.T) {
	t.Run("source", func(t *testing.T) {
		h := newHarness()
		h.sourceErr = errors.New("notion token is required")

		code, _, stderr := h.run(context.Background())

		assert.Equal(t, exitcode.BackendError, code)
		assert.Equal(t, "error: backend error: notion token is required\n", stderr)
	})

	t.Run("calendar", func(t *testing.T) {
		h := newHarness()
		h.calendarErr = errors.New("oauth failure")

		code, _, stderr := h.run(context.Background())

		assert.Equal(t, exitcode.BackendError, code)
		assert.Equal(t, "error: backend error: oauth failure\n", stderr)
		assert.Equal(t, []string{"source", "calendar"}, h.built)
	})
}

func TestDispatcher_GlobalFlags(t *testing.T) {
	h := newHarness()

	code, _, _ := h.run(context.Background(), "--config", "/tmp/notioncal", "--debug")

	assert.Equal(t, exitcode.Success, code)
	assert.Equal(t, "/tmp/notioncal", h.loadedDir)
	assert.Equal(t, "debug", h.logLevel)
}

func TestDispatcher_CalendarsCommand(t *testing.T) {
	h := newHarness()
	h.cfg.Notion.Token = ""
	h.cfg.Database = config.DatabaseConfig{}

	code, stdout, stderr := h.run(context.Background(), "calendars")

	assert.Equal(t, exitcode.Success, code)
	assert.Empty(t, stderr)
	assert.Equal(t, "me@example.com  primary\nHomework  cal-hw\n", stdout)
	assert.Equal(t, []string{"calendar"}, h.built)
}

func TestDispatcher_CalendarsCommandErrors(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		h := newHarness()
		h.cfg.Google.RefreshToken = ""

		code, _, stderr := h.run(context.Background(), "calendars")

		assert.Equal(t, exitcode.ConfigError, code)
		assert.Contains(t, stderr, "GOOGLE_REFRESH_TOKEN")
	})

	t.Run("list fails", func(t *testing.T) {
		h := newHarness()
		h.cal.ListCalendarsErr = &service.APIError{Service: "calendar", Code: 403, Message: "forbidden", Body: `{"error":"forbidden"}`}

		code, stdout, stderr := h.run(context.Background(), "calendars")

		assert.Equal(t, exitcode.BackendError, code)
		assert.Empty(t, stdout)
		assert.Contains(t, stderr, "error: backend error: ")

		entries := h.logs.FilterMessage("failed to list calendars").All()
		require.Len(t, entries, 1)
		assert.Equal(t, `{"error":"forbidden"}`, entries[0].ContextMap()["details"])
	})
}
