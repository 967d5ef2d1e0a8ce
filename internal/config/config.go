// Package config loads sync configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"notioncal/internal/service"
)

const (
	// AppName is the application directory name.
	AppName = "notioncal"

	// EnvFile is the optional dotenv filename.
	EnvFile = ".env"
)

// Config holds all configuration for a sync run.
type Config struct {
	// Notion holds the source store connection settings.
	Notion NotionConfig `mapstructure:"notion"`
	// Google holds the destination calendar credentials.
	Google GoogleConfig `mapstructure:"google"`
	// Database holds the configured collections and their calendar names.
	Database DatabaseConfig `mapstructure:"database"`
	// Sync holds reconciliation tuning.
	Sync SyncConfig `mapstructure:"sync"`
	// Log holds logger settings.
	Log LogConfig `mapstructure:"log"`

	// Dir is the configuration directory that was searched for a dotenv file.
	Dir string `mapstructure:"-"`
}

// NotionConfig configures the Notion client.
type NotionConfig struct {
	Token   string `mapstructure:"token" default:""`
	BaseURL string `mapstructure:"base_url" default:"https://api.notion.com"`
	Version string `mapstructure:"version" default:"2025-09-03"`
	// Prop holds the property names the records are read through.
	Prop PropConfig `mapstructure:"prop"`
}

// PropConfig names the required Notion properties.
type PropConfig struct {
	Task    string `mapstructure:"task" default:"Task"`
	Due     string `mapstructure:"due" default:"Due Date"`
	EventID string `mapstructure:"event_id" default:"GCal_ID"`
	Status  string `mapstructure:"status" default:"Status"`
}

// GoogleConfig holds the OAuth client and the long-lived refresh token.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id" default:""`
	ClientSecret string `mapstructure:"client_secret" default:""`
	RefreshToken string `mapstructure:"refresh_token" default:""`
}

// DatabaseConfig lists the two configured source collections.
// A collection with an empty id is not synced.
type DatabaseConfig struct {
	ID1   string `mapstructure:"id1" default:""`
	Name1 string `mapstructure:"name1" default:"Homework"`
	ID2   string `mapstructure:"id2" default:""`
	Name2 string `mapstructure:"name2" default:"Assessments"`
}

// SyncConfig tunes the reconciliation loop.
type SyncConfig struct {
	// TimeZone is used for created calendars and timed events.
	TimeZone string `mapstructure:"time_zone" default:"America/Guayaquil"`
	// DeltaWindow limits the query to records edited within it. Zero disables the filter.
	DeltaWindow time.Duration `mapstructure:"delta_window" default:"30m"`
	// Pace is the pause after every processed record.
	Pace time.Duration `mapstructure:"pace" default:"350ms"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" default:"info"`
	Format string `mapstructure:"format" default:"console"`
}

// Load reads configuration from the environment.
// Dotenv files in dir and in the XDG config directory seed variables that
// are not already set; real environment variables always win.
func Load(dir string) (*Config, error) {
	configDir := DefaultConfigDir()

	// Missing dotenv files are not an error.
	if dir != "" {
		_ = godotenv.Load(filepath.Join(dir, EnvFile))
	}
	_ = godotenv.Load(filepath.Join(configDir, EnvFile))

	v := viper.New()
	bindValues(v, Config{}, "")

	// notion.prop.task -> NOTION_PROP_TASK
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Dir = configDir

	return &cfg, nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/notioncal.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Targets returns the configured sync targets in configuration order.
func (c *Config) Targets() []service.SyncTarget {
	var targets []service.SyncTarget
	for _, t := range []service.SyncTarget{
		{CollectionID: c.Database.ID1, CalendarName: c.Database.Name1},
		{CollectionID: c.Database.ID2, CalendarName: c.Database.Name2},
	} {
		t.CollectionID = strings.TrimSpace(t.CollectionID)
		t.CalendarName = strings.TrimSpace(t.CalendarName)
		if t.CollectionID == "" {
			continue
		}
		targets = append(targets, t)
	}
	return targets
}

// Validate reports every missing setting required for a sync.
func (c *Config) Validate() error {
	var errs []error
	if c.Notion.Token == "" {
		errs = append(errs, errors.New("NOTION_TOKEN is not set"))
	}
	if err := c.ValidateGoogle(); err != nil {
		errs = append(errs, err)
	}
	targets := c.Targets()
	if len(targets) == 0 {
		errs = append(errs, errors.New("no database configured (set DATABASE_ID1 or DATABASE_ID2)"))
	}
	for _, t := range targets {
		if t.CalendarName == "" {
			errs = append(errs, fmt.Errorf("database %s has no calendar name", t.CollectionID))
		}
	}
	if _, err := time.LoadLocation(c.Sync.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("invalid SYNC_TIME_ZONE %q", c.Sync.TimeZone))
	}
	if c.Sync.Pace < 0 || c.Sync.DeltaWindow < 0 {
		errs = append(errs, errors.New("SYNC_PACE and SYNC_DELTA_WINDOW must not be negative"))
	}
	return errors.Join(errs...)
}

// ValidateGoogle reports missing Google credentials.
func (c *Config) ValidateGoogle() error {
	var errs []error
	if c.Google.ClientID == "" || c.Google.ClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set"))
	}
	if c.Google.RefreshToken == "" {
		errs = append(errs, errors.New("GOOGLE_REFRESH_TOKEN is not set"))
	}
	return errors.Join(errs...)
}

// HasEnvFile checks if a dotenv file exists in the config directory.
func (c *Config) HasEnvFile() bool {
	_, err := os.Stat(filepath.Join(c.Dir, EnvFile))
	return err == nil
}

// bindValues walks the struct and registers every mapstructure key with its
// default so AutomaticEnv can resolve it.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		v.SetDefault(key, field.Tag.Get("default"))
	}
}
