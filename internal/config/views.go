package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-blackswan/allocation-timeline/internal/calendar"
	perrors "github.com/p-blackswan/allocation-timeline/internal/errors"
)

// ViewOption is one entry of the view picker.
type ViewOption struct {
	Label string `yaml:"label" json:"label"`
	Value string `yaml:"value" json:"value"`
}

// Views configures the view picker and navigation step.
type Views struct {
	Options       []ViewOption `yaml:"views" json:"views"`
	DefaultView   string       `yaml:"default_view" json:"default_view"`
	DateShiftDays int          `yaml:"date_shift_days" json:"date_shift_days"`
	WeekStart     string       `yaml:"week_start" json:"week_start,omitempty"`
}

// DefaultViews is used when no views file is configured.
func DefaultViews() *Views {
	v := &Views{}
	applyDefaults(v)
	return v
}

// LoadViews reads and parses a views file, expanding env vars.
func LoadViews(path string) (*Views, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	v, err := LoadViewsBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return v, nil
}

// LoadViewsBytes parses a views file from bytes.
func LoadViewsBytes(data []byte) (*Views, error) {
	expanded := expandEnvVars(string(data))
	var v Views
	if err := yaml.Unmarshal([]byte(expanded), &v); err != nil {
		return nil, fmt.Errorf("parse views: %w", err)
	}
	applyDefaults(&v)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// Validate checks every view value parses and the default is one of them.
func (v *Views) Validate() error {
	found := false
	for _, o := range v.Options {
		if _, err := calendar.ParseView(o.Value); err != nil {
			return fmt.Errorf("view %q: %w", o.Label, err)
		}
		if o.Value == v.DefaultView {
			found = true
		}
	}
	if !found {
		return perrors.Invalid("default view %q is not one of the configured views", v.DefaultView)
	}
	if v.DateShiftDays < 1 {
		return perrors.Invalid("date_shift_days must be >= 1")
	}
	if v.WeekStart != "" {
		if _, err := ParseWeekday(v.WeekStart); err != nil {
			return err
		}
	}
	return nil
}

// Default returns the parsed default view.
func (v *Views) Default() calendar.View {
	view, err := calendar.ParseView(v.DefaultView)
	if err != nil {
		return calendar.WeekView
	}
	return view
}

// Lookup parses value if it is one of the configured options.
func (v *Views) Lookup(value string) (calendar.View, error) {
	for _, o := range v.Options {
		if o.Value == value {
			return calendar.ParseView(value)
		}
	}
	return calendar.View{}, perrors.Invalid("view %q is not available", value)
}

func applyDefaults(v *Views) {
	if len(v.Options) == 0 {
		v.Options = []ViewOption{
			{Label: "View by Day", Value: calendar.DayView.String()},
			{Label: "View by Week", Value: calendar.WeekView.String()},
		}
	}
	if v.DefaultView == "" {
		v.DefaultView = calendar.WeekView.String()
	}
	if v.DateShiftDays == 0 {
		v.DateShiftDays = 7
	}
}

// envVarPattern matches ${VAR_NAME} and $VAR_NAME.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars replaces ${VAR} and $VAR with the environment value. Missing
// vars become empty.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimSuffix(name, "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}
