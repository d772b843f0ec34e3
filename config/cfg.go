package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Duration is time.Duration that accepts human readable YAML literals
// ("50ms", "2s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Value returns the wrapped standard duration.
func (d Duration) Value() time.Duration { return time.Duration(d) }

type (
	// ReconcileConfig holds guard rails for the post-build numbering repair pass.
	ReconcileConfig struct {
		// WarnAfter is the wall-clock threshold after which a completed pass is
		// reported as slow. The pass is never aborted.
		WarnAfter Duration `yaml:"warn_after"`
		// WarnElements is the element-count threshold for the same warning.
		WarnElements int `yaml:"warn_elements"`
	}

	DocumentConfig struct {
		// TokensPath points to the design token set used for the build.
		TokensPath string `yaml:"tokens_path"`
		// BasePackagePath, when set, names an existing package to extend
		// instead of starting from an empty one.
		BasePackagePath string `yaml:"base_package_path"`
		// OutputNameTemplate controls generated file names, expanded with
		// values from the content description.
		OutputNameTemplate string `yaml:"output_name_template"`
		// NativeLists selects native numbering for bullet lists; when false
		// bullets are emitted as literal text glyphs.
		NativeLists bool            `yaml:"native_lists"`
		Reconcile   ReconcileConfig `yaml:"reconcile"`
	}

	Config struct {
		Version   int            `yaml:"version"`
		Document  DocumentConfig `yaml:"document"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// Default returns configuration used when no configuration file is provided.
func Default() *Config {
	return &Config{
		Version: 1,
		Document: DocumentConfig{
			OutputNameTemplate: `{{.Name}} - {{.Title}}`,
			NativeLists:        true,
			Reconcile: ReconcileConfig{
				WarnAfter:    Duration(50 * time.Millisecond),
				WarnElements: 2000,
			},
		},
		Logging: LoggingConfig{
			ConsoleLogger: LoggerConfig{Level: "normal"},
			FileLogger:    LoggerConfig{Level: "none", Mode: "append"},
		},
	}
}

// LoadConfiguration reads and validates program configuration. Empty path
// means defaults.
func LoadConfiguration(fname string) (*Config, error) {
	cfg := Default()
	if len(fname) == 0 {
		return cfg, nil
	}

	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to read configuration: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported configuration version %d", cfg.Version)
	}
	for _, l := range []LoggerConfig{cfg.Logging.ConsoleLogger, cfg.Logging.FileLogger} {
		switch l.Level {
		case "", "none", "normal", "debug":
		default:
			return fmt.Errorf("unsupported log level %q", l.Level)
		}
		switch l.Mode {
		case "", "append", "overwrite":
		default:
			return fmt.Errorf("unsupported log file mode %q", l.Mode)
		}
	}
	if len(cfg.Logging.FileLogger.Level) != 0 && cfg.Logging.FileLogger.Level != "none" && len(cfg.Logging.FileLogger.Destination) == 0 {
		return fmt.Errorf("file logging requested without destination")
	}
	if cfg.Document.Reconcile.WarnAfter < 0 {
		return fmt.Errorf("reconcile warn_after cannot be negative")
	}
	if cfg.Document.Reconcile.WarnElements < 0 {
		return fmt.Errorf("reconcile warn_elements cannot be negative")
	}
	return nil
}

// Dump serializes processed configuration, to be stored in the debug report.
func Dump(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
