// Package config loads the operator-tunable knobs described in
// SPEC_FULL.md §1.3 — ring buffer capacities, body/preview byte limits,
// the log-tab flush interval, the redaction pattern file path, and log
// level — through viper, so they can come from a config file (JSON/YAML/
// TOML), "SNAPO_"-prefixed environment variables, or pflag-bound CLI
// flags, with the file path optionally hot-reloaded via fsnotify into a
// running logtab.Processor.
//
// Grounded on _teacher_ref/redaction/redaction.go's
// NewRedactionEngine(configPath)/loadConfig convention (a single
// operator-supplied file path feeding pattern overrides): this package
// generalizes that single-purpose JSON loader into the whole module's
// configuration surface, since the teacher itself has no general config
// layer to adapt — the viper/pflag/fsnotify stack instead follows the
// rest of the retrieved pack (SPEC_FULL.md §1.3 names
// conneroisu-templar as the model for this combination).
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/brennhill/snapo-core/internal/redaction"
)

// Config is the fully-resolved set of operator-tunable knobs.
type Config struct {
	// LogLevel selects telemetry.NewLogger's verbosity: "debug" or "info".
	LogLevel string

	// LogTabRingCapacity bounds the log-tab processor's ring buffer
	// (spec.md §4.7 default 20000).
	LogTabRingCapacity int

	// HTTPMaxBodyBytes/HTTPPreviewChars feed httpcapture.Config.
	HTTPMaxBodyBytes int
	HTTPPreviewChars int

	// WSTextPreviewChars/WSBinaryPreviewBytes feed wscapture.Config.
	WSTextPreviewChars   int
	WSBinaryPreviewBytes int

	// PublisherQueueCapacity bounds publisher.NewQueue's backlog channel.
	PublisherQueueCapacity int

	// RedactionPatternsFile, if non-empty, is a JSON file of extra
	// redaction.Pattern entries layered on top of the built-in set.
	RedactionPatternsFile string
}

// Defaults returns the configuration this module ships with when no
// file, environment variable, or flag overrides a key.
func Defaults() Config {
	return Config{
		LogLevel:               "info",
		LogTabRingCapacity:     20000,
		HTTPMaxBodyBytes:       1 << 20,
		HTTPPreviewChars:       2048,
		WSTextPreviewChars:     2048,
		WSBinaryPreviewBytes:   256,
		PublisherQueueCapacity: 1024,
		RedactionPatternsFile:  "",
	}
}

// BindFlags registers every knob onto fs with its Defaults() value, for
// cmd/snapoctl to call before parsing os.Args.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("log-level", d.LogLevel, "log verbosity: debug or info")
	fs.Int("logtab-ring-capacity", d.LogTabRingCapacity, "log-tab ring buffer capacity")
	fs.Int("http-max-body-bytes", d.HTTPMaxBodyBytes, "max HTTP body bytes retained before truncation")
	fs.Int("http-preview-chars", d.HTTPPreviewChars, "code points kept in HTTP body previews")
	fs.Int("ws-text-preview-chars", d.WSTextPreviewChars, "code points kept in WebSocket text previews")
	fs.Int("ws-binary-preview-bytes", d.WSBinaryPreviewBytes, "bytes kept in WebSocket binary previews")
	fs.Int("publisher-queue-capacity", d.PublisherQueueCapacity, "bounded publisher queue depth")
	fs.String("redaction-patterns-file", d.RedactionPatternsFile, "path to a JSON file of extra redaction patterns")
}

// Load builds a viper instance layering, in increasing priority: built-in
// defaults, an optional config file (configPath, any viper-supported
// format — empty skips file loading), "SNAPO_"-prefixed environment
// variables, then fs's flags (if non-nil and already parsed). It returns
// the resolved Config and the *viper.Viper instance so callers can use
// WatchConfig/OnConfigChange for hot reload.
func Load(configPath string, fs *pflag.FlagSet) (Config, *viper.Viper, error) {
	v := viper.New()

	d := Defaults()
	v.SetDefault("log-level", d.LogLevel)
	v.SetDefault("logtab-ring-capacity", d.LogTabRingCapacity)
	v.SetDefault("http-max-body-bytes", d.HTTPMaxBodyBytes)
	v.SetDefault("http-preview-chars", d.HTTPPreviewChars)
	v.SetDefault("ws-text-preview-chars", d.WSTextPreviewChars)
	v.SetDefault("ws-binary-preview-bytes", d.WSBinaryPreviewBytes)
	v.SetDefault("publisher-queue-capacity", d.PublisherQueueCapacity)
	v.SetDefault("redaction-patterns-file", d.RedactionPatternsFile)

	v.SetEnvPrefix("SNAPO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, nil, fmt.Errorf("config: binding flags: %w", err)
		}
	}

	return Config{
		LogLevel:               v.GetString("log-level"),
		LogTabRingCapacity:     v.GetInt("logtab-ring-capacity"),
		HTTPMaxBodyBytes:       v.GetInt("http-max-body-bytes"),
		HTTPPreviewChars:       v.GetInt("http-preview-chars"),
		WSTextPreviewChars:     v.GetInt("ws-text-preview-chars"),
		WSBinaryPreviewBytes:   v.GetInt("ws-binary-preview-bytes"),
		PublisherQueueCapacity: v.GetInt("publisher-queue-capacity"),
		RedactionPatternsFile:  v.GetString("redaction-patterns-file"),
	}, v, nil
}

// WatchAndReload arms fsnotify-driven hot reload (via viper.WatchConfig)
// on v, invoking onChange with the newly re-resolved Config every time the
// underlying file is written. It is a no-op if v has no config file set
// (viper.WatchConfig panics otherwise). Reload errors from
// loadRedactionPatterns/re-resolution are reported through onError rather
// than propagated, since a bad edit to a live config file must never bring
// down the running process (spec.md §7's "non-fatal by default" posture).
func WatchAndReload(v *viper.Viper, onChange func(Config), onError func(error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg := Config{
			LogLevel:               v.GetString("log-level"),
			LogTabRingCapacity:     v.GetInt("logtab-ring-capacity"),
			HTTPMaxBodyBytes:       v.GetInt("http-max-body-bytes"),
			HTTPPreviewChars:       v.GetInt("http-preview-chars"),
			WSTextPreviewChars:     v.GetInt("ws-text-preview-chars"),
			WSBinaryPreviewBytes:   v.GetInt("ws-binary-preview-bytes"),
			PublisherQueueCapacity: v.GetInt("publisher-queue-capacity"),
			RedactionPatternsFile:  v.GetString("redaction-patterns-file"),
		}
		if cfg.RedactionPatternsFile != "" {
			if _, err := LoadRedactionPatterns(cfg.RedactionPatternsFile); err != nil {
				onError(err)
				return
			}
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// NewRedactionEngine builds a redaction.Engine using cfg's
// RedactionPatternsFile, if any, as extra patterns on top of the built-in
// set (internal/redaction.New's built-ins are always active).
func (c Config) NewRedactionEngine() (*redaction.Engine, error) {
	if c.RedactionPatternsFile == "" {
		return redaction.New(), nil
	}
	extra, err := LoadRedactionPatterns(c.RedactionPatternsFile)
	if err != nil {
		return nil, err
	}
	return redaction.New(extra...), nil
}
