// Package config loads and saves application settings. Settings live in
// YAML under the user config directory; later files override earlier ones
// and anything unset falls back to the defaults the desktop app shipped
// with.
package config

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/config"
	"gopkg.in/yaml.v3"

	"github.com/c0lornote/c0lornote/logger"
	"github.com/c0lornote/c0lornote/store"
)

const (
	appName = "c0lornote"

	// SettingsFileName is the settings file under the config directory.
	SettingsFileName = "settings.yaml"
)

// ThemeConfig holds appearance settings.
type ThemeConfig struct {
	Name           string `yaml:"name"`
	DarkMode       bool   `yaml:"dark_mode"`
	UseSystemTheme bool   `yaml:"use_system_theme"`
}

// WindowConfig holds window geometry. X and Y are nil when the window
// should be centered.
type WindowConfig struct {
	Width     int  `yaml:"width"`
	Height    int  `yaml:"height"`
	X         *int `yaml:"x"`
	Y         *int `yaml:"y"`
	Maximized bool `yaml:"maximized"`
}

// FontConfig is one font selection.
type FontConfig struct {
	Family string `yaml:"family"`
	Size   int    `yaml:"size"`
}

// EditorConfig holds note and code editor settings.
type EditorConfig struct {
	NoteFont    FontConfig `yaml:"note_font"`
	CodeFont    FontConfig `yaml:"code_font"`
	SidebarFont FontConfig `yaml:"sidebar_font"`
	RichText    bool       `yaml:"rich_text"`
}

// BehaviorConfig holds general application behavior.
type BehaviorConfig struct {
	AutosaveInterval time.Duration `yaml:"autosave_interval"`
	ConfirmOnDelete  bool          `yaml:"confirm_on_delete"`
	ShowTimestamps   bool          `yaml:"show_timestamps"`
}

// BackupConfig controls database backups.
type BackupConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Dir        string        `yaml:"dir"`
	Interval   time.Duration `yaml:"interval"`
	MaxBackups int           `yaml:"max_backups"`
}

// AppConfig holds all application configuration.
type AppConfig struct {
	Logger   logger.Config  `yaml:"logger"`
	Theme    ThemeConfig    `yaml:"theme"`
	Window   WindowConfig   `yaml:"window"`
	Editor   EditorConfig   `yaml:"editor"`
	Behavior BehaviorConfig `yaml:"behavior"`
	Store    store.Config   `yaml:"store"`
	Backup   BackupConfig   `yaml:"backup"`
}

// Dir returns the application config directory (~/.config/c0lornote on
// Linux).
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, appName), nil
}

// EnsureDir creates the config directory if needed and returns it.
func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// SettingsPath returns the default settings file location.
func SettingsPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// Load reads configuration from the specified YAML files. Files are merged
// in order, with later files overriding earlier ones. Missing files are
// silently ignored; if none exist, Load returns os.ErrNotExist.
func Load(files ...string) (*AppConfig, error) {
	opts := make([]config.YAMLOption, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			opts = append(opts, config.File(f))
		}
	}

	if len(opts) == 0 {
		return nil, os.ErrNotExist
	}

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration on top of the application defaults.
// The defaults act as the lowest-priority source, so settings merge per key:
// a file that sets only backup.dir still inherits the rest of the backup
// defaults. When no settings file exists yet it returns the pure defaults,
// matching first-run behavior.
func LoadWithDefaults(files ...string) (*AppConfig, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	opts := make([]config.YAMLOption, 0, len(files)+1)
	opts = append(opts, config.Static(defaultSettings(configDir)))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			opts = append(opts, config.File(f))
		}
	}

	provider, err := config.NewYAML(opts...)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := provider.Get(config.Root).Populate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaultSettings are the settings the desktop app ships with.
func defaultSettings(configDir string) AppConfig {
	return AppConfig{
		Logger: logger.Config{Dir: configDir},
		Theme: ThemeConfig{
			Name:           "arc",
			UseSystemTheme: true,
		},
		Window: WindowConfig{Width: 1000, Height: 700},
		Editor: EditorConfig{
			NoteFont:    FontConfig{Family: "DejaVu Sans", Size: 11},
			CodeFont:    FontConfig{Family: "DejaVu Sans Mono", Size: 12},
			SidebarFont: FontConfig{Family: "DejaVu Sans", Size: 10},
			RichText:    true,
		},
		Behavior: BehaviorConfig{
			AutosaveInterval: 5 * time.Minute,
			ConfirmOnDelete:  true,
			ShowTimestamps:   true,
		},
		Store: store.Config{Path: filepath.Join(configDir, "notes.db")},
		Backup: BackupConfig{
			Enabled:    true,
			Dir:        filepath.Join(configDir, "backups"),
			Interval:   24 * time.Hour,
			MaxBackups: 5,
		},
	}
}

// Save writes the configuration to path as YAML, creating the parent
// directory if needed.
func Save(cfg *AppConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
