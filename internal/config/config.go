// SPDX-License-Identifier: EPL-2.0

// Package config loads audacq settings from defaults, an optional YAML
// file, AUDACQ_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. AUDACQ_SESSION_SAMPLE_RATE.
const EnvPrefix = "AUDACQ"

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Writer modes.
const (
	ModeContinuous = "continuous"
	ModeTriggered  = "triggered"
)

// Bus kinds.
const (
	BusInproc = "inproc"
	BusMQTT   = "mqtt"
)

type Session struct {
	Name       string `mapstructure:"name"`
	SampleRate int    `mapstructure:"sample_rate"`
	PeriodSize int    `mapstructure:"period_size"`
	Channels   int    `mapstructure:"channels"`
}

type Writer struct {
	Mode           string  `mapstructure:"mode"`
	BufferSeconds  float64 `mapstructure:"buffer_seconds"`
	Pretrigger     float64 `mapstructure:"pretrigger"`
	Posttrigger    float64 `mapstructure:"posttrigger"`
	TriggerChannel string  `mapstructure:"trigger_channel"`
	LogBatch       int     `mapstructure:"log_batch"`
}

// Detect configures the gate that generates trigger markers. Windows are
// in seconds.
type Detect struct {
	Enabled        bool    `mapstructure:"enabled"`
	Channel        int     `mapstructure:"channel"`
	OpenThreshold  float64 `mapstructure:"open_threshold"`
	OpenCount      int     `mapstructure:"open_count"`
	OpenWindow     float64 `mapstructure:"open_window"`
	CloseThreshold float64 `mapstructure:"close_threshold"`
	CloseCount     int     `mapstructure:"close_count"`
	CloseWindow    float64 `mapstructure:"close_window"`
	PeriodSize     int     `mapstructure:"period_size"`
}

type Sink struct {
	Kind string `mapstructure:"kind"`
	Dir  string `mapstructure:"dir"`
}

type Bus struct {
	Kind     string `mapstructure:"kind"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type Monitor struct {
	Enabled  bool    `mapstructure:"enabled"`
	Interval float64 `mapstructure:"interval"`
}

// Settings is the complete configuration.
type Settings struct {
	Session Session `mapstructure:"session"`
	Writer  Writer  `mapstructure:"writer"`
	Detect  Detect  `mapstructure:"detect"`
	Sink    Sink    `mapstructure:"sink"`
	Bus     Bus     `mapstructure:"bus"`
	Metrics Metrics `mapstructure:"metrics"`
	Log     Log     `mapstructure:"log"`
	Monitor Monitor `mapstructure:"monitor"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("session.name", "audacq")
	v.SetDefault("session.sample_rate", 48000)
	v.SetDefault("session.period_size", 1024)
	v.SetDefault("session.channels", 1)

	v.SetDefault("writer.mode", ModeTriggered)
	v.SetDefault("writer.buffer_seconds", 2.0)
	v.SetDefault("writer.pretrigger", 1.0)
	v.SetDefault("writer.posttrigger", 0.5)
	v.SetDefault("writer.trigger_channel", "trig")
	v.SetDefault("writer.log_batch", 10)

	v.SetDefault("detect.enabled", true)
	v.SetDefault("detect.channel", 0)
	v.SetDefault("detect.open_threshold", 0.01)
	v.SetDefault("detect.open_count", 20)
	v.SetDefault("detect.open_window", 0.25)
	v.SetDefault("detect.close_threshold", 0.01)
	v.SetDefault("detect.close_count", 5)
	v.SetDefault("detect.close_window", 0.5)
	v.SetDefault("detect.period_size", 0)

	v.SetDefault("sink.kind", "wav")
	v.SetDefault("sink.dir", "data")

	v.SetDefault("bus.kind", BusInproc)
	v.SetDefault("bus.broker", "tcp://localhost:1883")
	v.SetDefault("bus.client_id", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9100")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.interval", 5.0)
}

// flagKeys maps command line flags to settings keys.
var flagKeys = map[string]string{
	"name":           "session.name",
	"rate":           "session.sample_rate",
	"period":         "session.period_size",
	"channels":       "session.channels",
	"mode":           "writer.mode",
	"buffer":         "writer.buffer_seconds",
	"pretrigger":     "writer.pretrigger",
	"posttrigger":    "writer.posttrigger",
	"detect":         "detect.enabled",
	"detect-channel": "detect.channel",
	"open-thresh":    "detect.open_threshold",
	"open-count":     "detect.open_count",
	"close-thresh":   "detect.close_threshold",
	"close-count":    "detect.close_count",
	"sink":           "sink.kind",
	"dir":            "sink.dir",
	"bus":            "bus.kind",
	"broker":         "bus.broker",
	"metrics":        "metrics.enabled",
	"listen":         "metrics.listen",
	"log-level":      "log.level",
	"dev":            "log.development",
	"monitor":        "monitor.enabled",
}

// BindFlags binds every known flag present in fs to its settings key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads file (if not empty) and the environment into v and decodes
// the result. Defaults must already be set.
func Load(v *viper.Viper, file string) (*Settings, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for values no component can run with.
func (s *Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.Session.Name != "", "session.name is empty")
	check(s.Session.SampleRate > 0, "session.sample_rate %d must be positive", s.Session.SampleRate)
	check(s.Session.PeriodSize > 0, "session.period_size %d must be positive", s.Session.PeriodSize)
	check(s.Session.Channels > 0, "session.channels %d must be positive", s.Session.Channels)

	check(s.Writer.Mode == ModeContinuous || s.Writer.Mode == ModeTriggered, "writer.mode %q is unknown", s.Writer.Mode)
	check(s.Writer.BufferSeconds > 0, "writer.buffer_seconds must be positive")
	check(s.Writer.Pretrigger >= 0, "writer.pretrigger must not be negative")
	check(s.Writer.Posttrigger >= 0, "writer.posttrigger must not be negative")
	check(s.Writer.TriggerChannel != "", "writer.trigger_channel is empty")
	check(s.Writer.LogBatch > 0, "writer.log_batch must be positive")

	if s.Detect.Enabled {
		check(s.Detect.Channel >= 0 && s.Detect.Channel < s.Session.Channels,
			"detect.channel %d outside 0..%d", s.Detect.Channel, s.Session.Channels-1)
		check(s.Detect.OpenWindow > 0 && s.Detect.CloseWindow > 0, "detect windows must be positive")
		check(s.Detect.OpenCount >= 0 && s.Detect.CloseCount >= 0, "detect counts must not be negative")
		check(s.Detect.PeriodSize >= 0, "detect.period_size must not be negative")
	}

	switch strings.ToLower(s.Sink.Kind) {
	case "null", "stream", "wav":
	default:
		check(false, "sink.kind %q is unknown", s.Sink.Kind)
	}
	check(s.Sink.Dir != "" || !strings.EqualFold(s.Sink.Kind, "wav"), "sink.dir is empty")

	check(s.Bus.Kind == BusInproc || s.Bus.Kind == BusMQTT, "bus.kind %q is unknown", s.Bus.Kind)
	check(s.Bus.Kind != BusMQTT || s.Bus.Broker != "", "bus.broker is empty")
	check(!s.Monitor.Enabled || s.Monitor.Interval > 0, "monitor.interval must be positive")

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// Frames converts seconds to frames at the session sample rate.
func (s *Settings) Frames(sec float64) int {
	return int(math.Round(sec * float64(s.Session.SampleRate)))
}

// AnalysisPeriod returns the detector period in frames.
func (s *Settings) AnalysisPeriod() int {
	if s.Detect.PeriodSize > 0 {
		return s.Detect.PeriodSize
	}
	return s.Session.PeriodSize
}

// Periods converts a window in seconds to a whole number of analysis
// periods, at least one.
func (s *Settings) Periods(sec float64) int {
	return max(1, int(math.Round(float64(s.Frames(sec))/float64(s.AnalysisPeriod()))))
}
