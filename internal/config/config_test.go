package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "api-key", cfg.AuthMode)
	assert.Equal(t, 10*time.Second, cfg.DataServiceTimeout)
	assert.Equal(t, 3, cfg.DataServiceRetries)
	assert.Equal(t, 256, cfg.ViewCacheSize)
	assert.False(t, cfg.RemoteDataService())
	assert.False(t, cfg.SlackEnabled())

	day, err := cfg.WeekStartDay()
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("TIMEZONE", "America/New_York")
	t.Setenv("WEEK_START", "Mon")
	t.Setenv("DATA_SERVICE_URL", "http://data:8080")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_CHANNEL", "#timeline")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.True(t, cfg.RemoteDataService())
	assert.True(t, cfg.SlackEnabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOriginList())

	day, err := cfg.WeekStartDay()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("TIMELINE_LISTEN_ADDR", ":7070")
	cfg, err := LoadWithPrefix("TIMELINE")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{Timezone: "UTC", WeekStart: "sunday", AuthMode: AuthNone}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.AuthMode = AuthAPIKey
	assert.ErrorIs(t, c.Validate(), perrors.ErrInvalidInput)
	c.APIKey = "secret"
	assert.NoError(t, c.Validate())

	c = base()
	c.AuthMode = AuthJWT
	assert.Error(t, c.Validate())
	c.JWTSecret = "signing-key"
	assert.NoError(t, c.Validate())

	c = base()
	c.AuthMode = "oauth"
	assert.Error(t, c.Validate())

	c = base()
	c.Timezone = "Mars/Olympus"
	assert.ErrorIs(t, c.Validate(), perrors.ErrInvalidInput)

	c = base()
	c.WeekStart = "funday"
	assert.ErrorIs(t, c.Validate(), perrors.ErrInvalidInput)

	c = base()
	c.TLSCert = "cert.pem"
	assert.Error(t, c.Validate())
}

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"":          time.Sunday,
		"Sunday":    time.Sunday,
		"mon":       time.Monday,
		" SATURDAY": time.Saturday,
	}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestDefaultViews(t *testing.T) {
	v := DefaultViews()
	require.Len(t, v.Options, 2)
	assert.Equal(t, "View by Day", v.Options[0].Label)
	assert.Equal(t, "1/14", v.Options[0].Value)
	assert.Equal(t, calendar.WeekView, v.Default())
	assert.Equal(t, 7, v.DateShiftDays)
	assert.NoError(t, v.Validate())
}

func TestLoadViewsBytes(t *testing.T) {
	t.Setenv("TIMELINE_SHIFT", "14")
	data := []byte(`
views:
  - label: Fortnight by day
    value: "1/14"
  - label: Quarter by week
    value: "7/13"
default_view: "7/13"
date_shift_days: ${TIMELINE_SHIFT}
week_start: monday
`)
	v, err := LoadViewsBytes(data)
	require.NoError(t, err)
	assert.Equal(t, 14, v.DateShiftDays)
	assert.Equal(t, calendar.View{SlotSize: 7, SlotCount: 13}, v.Default())
	assert.Equal(t, "monday", v.WeekStart)

	got, err := v.Lookup("1/14")
	require.NoError(t, err)
	assert.Equal(t, calendar.DayView, got)
	_, err = v.Lookup("7/10")
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)
}

func TestLoadViewsBytes_Invalid(t *testing.T) {
	_, err := LoadViewsBytes([]byte("views:\n  - label: Broken\n    value: \"0/3\"\ndefault_view: \"0/3\"\n"))
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = LoadViewsBytes([]byte("default_view: \"2/5\"\n"))
	assert.ErrorIs(t, err, perrors.ErrInvalidInput)

	_, err = LoadViewsBytes([]byte("views: [\n"))
	assert.Error(t, err)
}

func TestLoadViews_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "views.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_view: \"1/14\"\n"), 0o600))

	v, err := LoadViews(path)
	require.NoError(t, err)
	assert.Equal(t, calendar.DayView, v.Default())

	_, err = LoadViews(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
