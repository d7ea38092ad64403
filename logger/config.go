package logger

// Config holds logger configuration.
type Config struct {
	// Name is the root logger name. Empty means DefaultName.
	Name string `yaml:"name"`
	// ConsoleLevel is the minimum severity written to stdout ("debug",
	// "info", "warn", "error"). Empty means info.
	ConsoleLevel string `yaml:"console_level"`
	// FileLevel is the minimum severity written to the rotating log file.
	// Empty means debug.
	FileLevel string `yaml:"file_level"`
	// Dir is the directory the logs/ subdirectory is created under. Empty
	// means the application config directory.
	Dir string `yaml:"dir"`
}
