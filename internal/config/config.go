// Package config manages persistent user preferences for the vitarp client.
// Settings live in a TOML file under a top-level [settings] section,
// loaded and written through spf13/viper. A one-off migration promotes a
// legacy flat-root or [general] layout into [settings] on first load, and
// keys this build doesn't recognize round-trip untouched.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// LoggingSettings controls the bounded ring-buffer log writer.
type LoggingSettings struct {
	Profile    string `mapstructure:"profile"`
	QueueDepth int    `mapstructure:"queue_depth"`
	Path       string `mapstructure:"path"`
}

// Settings holds all persistent user preferences, mirroring the
// configuration key table.
type Settings struct {
	Resolution              string             `mapstructure:"resolution"`
	FPS                     int                `mapstructure:"fps"`
	LatencyMode             string             `mapstructure:"latency_mode"`
	Force30FPS              bool               `mapstructure:"force_30fps"`
	StretchVideo            bool               `mapstructure:"stretch_video"`
	ShowLatency             bool               `mapstructure:"show_latency"`
	ShowNetworkIndicator    bool               `mapstructure:"show_network_indicator"`
	ShowStreamExitHint      bool               `mapstructure:"show_stream_exit_hint"`
	ClampSoftRestartBitrate bool               `mapstructure:"clamp_soft_restart_bitrate"`
	AutoDiscovery           bool               `mapstructure:"auto_discovery"`
	PSButtonDualMode        bool               `mapstructure:"ps_button_dual_mode"`
	CircleBtnConfirm        bool               `mapstructure:"circle_btn_confirm"`
	ControllerMapID         int                `mapstructure:"controller_map_id"`
	CustomMaps              [3]map[string]string `mapstructure:"custom_maps"`
	Logging                 LoggingSettings    `mapstructure:"logging"`
}

var validResolutions = map[string]bool{"720p": true, "1080p": true}
var validLatencyModes = map[string]bool{"UltraLow": true, "Low": true, "Balanced": true, "High": true, "Max": true}
var validLoggingProfiles = map[string]bool{"Off": true, "Errors": true, "Standard": true, "Verbose": true}

// Default returns the baseline Settings used when no config file exists and
// as the fallback target for invalid individual fields.
func Default() Settings {
	return Settings{
		Resolution:           "720p",
		FPS:                  30,
		LatencyMode:          "Balanced",
		ShowStreamExitHint:   true,
		AutoDiscovery:        true,
		CircleBtnConfirm:     true,
		CustomMaps:           [3]map[string]string{{}, {}, {}},
		Logging: LoggingSettings{
			Profile:    "Standard",
			QueueDepth: 512,
			Path:       "vitarp.log",
		},
	}
}

// Normalize clamps every field to a valid value, falling back to Default's
// value for anything invalid rather than erroring:
// `fps=42` silently becomes 30, 1080p auto-downgrades to 720p on this target.
func Normalize(s *Settings) {
	def := Default()
	if s.Resolution != "720p" && s.Resolution != "1080p" {
		s.Resolution = def.Resolution
	}
	if s.Resolution == "1080p" {
		s.Resolution = "720p"
	}
	if s.FPS != 30 && s.FPS != 60 {
		s.FPS = def.FPS
	}
	if !validLatencyModes[s.LatencyMode] {
		s.LatencyMode = def.LatencyMode
	}
	if s.ControllerMapID < 0 {
		s.ControllerMapID = 0
	}
	for i := range s.CustomMaps {
		if s.CustomMaps[i] == nil {
			s.CustomMaps[i] = map[string]string{}
		}
	}
	if !validLoggingProfiles[s.Logging.Profile] {
		s.Logging.Profile = def.Logging.Profile
	}
	if s.Logging.QueueDepth <= 0 {
		s.Logging.QueueDepth = def.Logging.QueueDepth
	}
	if s.Logging.Path == "" {
		s.Logging.Path = def.Logging.Path
	}
}

// Config is a loaded settings file: the typed Settings plus whatever this
// build didn't recognize, kept around so Save round-trips it untouched.
type Config struct {
	Settings Settings

	// extraSettings holds keys found inside [settings] that don't map to a
	// known Settings field (forward-compat with a newer client).
	extraSettings map[string]interface{}
	// otherSections holds top-level keys/tables outside [settings] that
	// migration didn't touch, e.g. an orphan [controller_custom_map_1].
	otherSections map[string]interface{}
}

// Path returns the absolute path to the config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "vitarp", "config.toml"), nil
}

// Load reads the config file at path (or the default location when path is
// empty), migrating a legacy layout into [settings] and normalizing invalid
// fields. A missing file is not an error: Load returns Default() settings.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		resolved, err := Path()
		if err != nil {
			return &Config{Settings: Default(), otherSections: map[string]interface{}{}}, nil
		}
		v.AddConfigPath(filepath.Dir(resolved))
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return &Config{Settings: Default(), otherSections: map[string]interface{}{}}, nil
		}
		if os.IsNotExist(err) {
			return &Config{Settings: Default(), otherSections: map[string]interface{}{}}, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	root := v.AllSettings()
	settingsMap := migrateLegacyLayout(root)

	var decoded struct {
		Settings `mapstructure:",squash"`
		Extra    map[string]interface{} `mapstructure:",remain"`
	}
	if err := mapstructure.Decode(settingsMap, &decoded); err != nil {
		return nil, fmt.Errorf("config: failed to decode [settings]: %w", err)
	}

	cfg := &Config{
		Settings:      decoded.Settings,
		extraSettings: decoded.Extra,
		otherSections: root,
	}
	Normalize(&cfg.Settings)
	return cfg, nil
}

// migrateLegacyLayout extracts the [settings] table from root, promoting a
// legacy [general] table and any flat top-level keys that match a known
// Settings field into it. root is mutated: every key folded into the
// returned map is deleted from it, so whatever remains in root is an
// unrelated section Save must preserve verbatim.
func migrateLegacyLayout(root map[string]interface{}) map[string]interface{} {
	settingsMap := map[string]interface{}{}
	if existing, ok := root["settings"].(map[string]interface{}); ok {
		for k, val := range existing {
			settingsMap[k] = val
		}
	}
	delete(root, "settings")

	if general, ok := root["general"].(map[string]interface{}); ok {
		for k, val := range general {
			if _, known := settingsFieldKeys[k]; known {
				if _, already := settingsMap[k]; !already {
					settingsMap[k] = val
				}
			}
		}
	}
	delete(root, "general")

	for k, val := range root {
		if _, known := settingsFieldKeys[k]; known {
			if _, already := settingsMap[k]; !already {
				settingsMap[k] = val
			}
			delete(root, k)
		}
	}

	return settingsMap
}

// settingsFieldKeys is the set of recognized [settings] keys, used to decide
// which flat-root/[general] keys a legacy file's migration should promote.
var settingsFieldKeys = map[string]struct{}{
	"resolution":                 {},
	"fps":                        {},
	"latency_mode":                {},
	"force_30fps":                {},
	"stretch_video":               {},
	"show_latency":                {},
	"show_network_indicator":      {},
	"show_stream_exit_hint":       {},
	"clamp_soft_restart_bitrate":  {},
	"auto_discovery":              {},
	"ps_button_dual_mode":         {},
	"circle_btn_confirm":          {},
	"controller_map_id":           {},
	"custom_maps":                 {},
	"logging":                     {},
}

// Save writes cfg to path (or the default location when path is empty),
// creating the parent directory if needed. Unknown [settings] keys and
// unrelated top-level sections are written back verbatim.
func Save(cfg *Config, path string) error {
	if path == "" {
		resolved, err := Path()
		if err != nil {
			return err
		}
		path = resolved
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: failed to create config directory: %w", err)
	}

	var structMap map[string]interface{}
	if err := mapstructure.Decode(cfg.Settings, &structMap); err != nil {
		return fmt.Errorf("config: failed to encode settings: %w", err)
	}
	for k, val := range cfg.extraSettings {
		if _, ok := structMap[k]; !ok {
			structMap[k] = val
		}
	}

	out := viper.New()
	out.SetConfigType("toml")
	for k, val := range cfg.otherSections {
		out.Set(k, val)
	}
	out.Set("settings", structMap)

	if err := out.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}
