package config

// Config represents the complete tool configuration. All paths are
// relative to the project root unless absolute.
type Config struct {
	SpecsDir string        `yaml:"specifications_dir"`
	ImplDir  string        `yaml:"implementations_dir"`
	StateDir string        `yaml:"state_dir"`
	Logging  LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a config with default values.
func DefaultConfig() *Config {
	return &Config{
		SpecsDir: "specifications",
		ImplDir:  "implementations",
		StateDir: ".specsync",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
